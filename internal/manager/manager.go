package manager

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"botd/internal/module"
	"botd/internal/persistence"
)

type Manager struct {
	mu       sync.RWMutex
	state    State
	err      string
	updating int
	modules  map[string]module.Module
	order    []string // registration order, first position wins on name reuse
	status   map[string]*moduleState

	store  persistence.Gateway
	events EventPublisher
	log    zerolog.Logger
}

// New returns a Manager persisting records in store.
func New(store persistence.Gateway) *Manager {
	return NewWithConfig(ManagerConfig{Store: store})
}

// SetEventPublisher replaces the lifecycle event publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.events = p
	m.mu.Unlock()
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.events
	m.mu.RUnlock()
	p.Publish(e)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// State returns the registry lifecycle state. A ready manager applying a
// settings update reports StateUpdating.
func (m *Manager) State() State {
	return m.Snapshot().State
}

// Ready reports whether every module started successfully.
func (m *Manager) Ready() bool {
	s := m.Snapshot().State
	return s == StateReady || s == StateUpdating
}

// Module looks up a registered module by name.
func (m *Manager) Module(name string) (module.Module, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mod, ok := m.modules[name]
	return mod, ok
}

// ModuleNames returns module names in registration order.
func (m *Manager) ModuleNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// modulesInOrder returns the registered modules in registration order.
func (m *Manager) modulesInOrder() []module.Module {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]module.Module, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.modules[name])
	}
	return out
}

// Initialize registers mods in the given order and starts them.
func (m *Manager) Initialize(ctx context.Context, mods ...module.Module) error {
	m.RegisterModules(ctx, mods...)
	return m.StartModules(ctx)
}

// RegisterModules adds mods in order. Order matters: modules constructed
// earlier subscribed to the bus earlier and receive messages first.
func (m *Manager) RegisterModules(ctx context.Context, mods ...module.Module) {
	m.setState(StateRegistering)
	for _, mod := range mods {
		m.AddModule(ctx, mod)
	}
}

// AddModule applies the persisted record of mod, if any, and registers it
// under its name, replacing any module already registered with that name.
// A missing or unreadable record leaves the module at its defaults.
func (m *Manager) AddModule(ctx context.Context, mod module.Module) {
	m.setState(StateLoading)
	name := mod.Name()
	log := m.log.With().Str("module", name).Logger()

	fromRecord := false
	raw, err := m.store.Load(ctx, name)
	switch {
	case err == nil:
		if err := mod.FromData(raw); err != nil {
			log.Warn().Err(err).Msg("ignoring unreadable record; using defaults")
		} else {
			fromRecord = true
		}
	case persistence.IsNotFound(err):
		log.Debug().Msg("no persisted record; using defaults")
	default:
		log.Warn().Err(err).Msg("loading record failed; using defaults")
	}

	m.mu.Lock()
	if _, exists := m.modules[name]; exists {
		log.Warn().Msg("module name registered twice; last registration wins")
	} else {
		m.order = append(m.order, name)
	}
	m.modules[name] = mod
	m.status[name] = &moduleState{}
	m.mu.Unlock()

	m.publish(Event{Name: "module_loaded", Module: name, Fields: map[string]any{"from_record": fromRecord}})
}

// StopModules stops modules implementing module.Stopper in reverse
// registration order and returns their joined errors.
func (m *Manager) StopModules(ctx context.Context) error {
	m.setState(StateTerminating)
	mods := m.modulesInOrder()
	var errs []error
	for i := len(mods) - 1; i >= 0; i-- {
		s, ok := mods[i].(module.Stopper)
		if !ok {
			continue
		}
		if err := s.Stop(ctx); err != nil {
			m.log.Warn().Err(err).Str("module", mods[i].Name()).Msg("stop failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
