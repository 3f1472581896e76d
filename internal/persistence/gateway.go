// Package persistence stores one JSON record per module name.
//
// Two stores implement Gateway:
//
//   - SQLiteStore: the production store, a single table managed by goose
//     migrations on a pure-Go SQLite driver.
//   - MemoryStore: an in-process map for tests and ephemeral runs.
//
// Both merge on Save: top-level keys of the incoming record replace the stored
// ones and keys the caller did not send are kept, so a record written by a newer
// module version survives a round trip through an older one.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Gateway loads and saves module records keyed by module name.
type Gateway interface {
	// Load returns the stored record or an error satisfying IsNotFound.
	Load(ctx context.Context, name string) (json.RawMessage, error)
	Save(ctx context.Context, name string, record json.RawMessage) error
}

// Record is a stored module record as listed by operators.
type Record struct {
	Name      string
	Data      json.RawMessage
	UpdatedAt time.Time
}

// ErrNotFound is returned by Load when no record exists for a name.
var ErrNotFound = errors.New("record not found")

// IsNotFound reports whether err indicates an absent record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// mergeRecord overlays the top-level keys of incoming onto existing.
func mergeRecord(existing, incoming json.RawMessage) (json.RawMessage, error) {
	var next map[string]json.RawMessage
	if err := json.Unmarshal(incoming, &next); err != nil {
		return nil, fmt.Errorf("record must be a JSON object: %w", err)
	}
	if len(existing) == 0 {
		return json.Marshal(next)
	}
	var prev map[string]json.RawMessage
	if err := json.Unmarshal(existing, &prev); err != nil || prev == nil {
		// unreadable previous record: the new one replaces it
		return json.Marshal(next)
	}
	for k, v := range next {
		prev[k] = v
	}
	return json.Marshal(prev)
}
