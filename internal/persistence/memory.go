package persistence

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	saves   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Load(ctx context.Context, name string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), r.Data...), nil
}

func (s *MemoryStore) Save(ctx context.Context, name string, record json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged, err := mergeRecord(s.records[name].Data, record)
	if err != nil {
		return err
	}
	s.records[name] = Record{Name: name, Data: merged, UpdatedAt: time.Now()}
	s.saves++
	return nil
}

// List returns all records ordered by name.
func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Saves reports how many successful Save calls the store received.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
