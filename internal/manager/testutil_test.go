package manager

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"botd/internal/module"
	"botd/internal/persistence"
)

// stubModule is a configurable module for manager tests.
type stubModule struct {
	*module.Base

	mu       sync.Mutex
	greeting string
	count    int
	settings bool // expose Greeting/Count settings

	startErr error
	startFn  func(ctx context.Context) error
	stopLog  *[]string
	restarts int
	starts   int
}

func newStub(name string, required bool) *stubModule {
	return &stubModule{Base: module.NewBase(name, required), greeting: "hello", count: 1, settings: true}
}

type stubData struct {
	module.Data
	Greeting string `json:"greeting"`
	Count    int    `json:"count"`
}

func (s *stubModule) Start(ctx context.Context) error {
	s.mu.Lock()
	s.starts++
	s.mu.Unlock()
	if s.startFn != nil {
		return s.startFn(ctx)
	}
	return s.startErr
}

func (s *stubModule) Restart(ctx context.Context) error {
	s.mu.Lock()
	s.restarts++
	s.mu.Unlock()
	return nil
}

func (s *stubModule) Stop(ctx context.Context) error {
	if s.stopLog != nil {
		*s.stopLog = append(*s.stopLog, s.Name())
	}
	return nil
}

func (s *stubModule) data() stubData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stubData{Data: s.BaseData(), Greeting: s.greeting, Count: s.count}
}

func (s *stubModule) ToData() (json.RawMessage, error) { return json.Marshal(s.data()) }

func (s *stubModule) FromData(raw json.RawMessage) error {
	d := s.data()
	if err := module.Decode(s.Name(), raw, &d); err != nil {
		return err
	}
	s.ApplyData(d.Data)
	s.mu.Lock()
	s.greeting, s.count = d.Greeting, d.Count
	s.mu.Unlock()
	return nil
}

func (s *stubModule) Settings() []module.Setting {
	out := s.Base.Settings()
	if !s.settings {
		return out
	}
	d := s.data()
	return append(out, module.TextSetting("Greeting", d.Greeting), module.TextSetting("Count", itoa(d.Count)))
}

func (s *stubModule) SetSettings(settings []module.Setting) error {
	count := -1
	for _, st := range settings {
		if st.Name == "Count" {
			n, err := st.AsNumber()
			if err != nil {
				return err
			}
			count = n
		}
	}
	_ = s.Base.SetSettings(settings)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range settings {
		if st.Name == "Greeting" {
			s.greeting = st.AsText()
		}
	}
	if count >= 0 {
		s.count = count
	}
	return nil
}

func (s *stubModule) snapshot() (greeting string, count, starts, restarts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.greeting, s.count, s.starts, s.restarts
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

// failingStore fails every call.
type failingStore struct{ err error }

func (f failingStore) Load(ctx context.Context, name string) (json.RawMessage, error) {
	return nil, f.err
}

func (f failingStore) Save(ctx context.Context, name string, record json.RawMessage) error {
	return f.err
}

var _ persistence.Gateway = failingStore{}

var errBoom = errors.New("boom")
