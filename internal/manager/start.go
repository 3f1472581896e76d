package manager

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// StartModules starts every registered module concurrently and waits for all
// of them. A failing module does not cancel the others; the first failure is
// returned and the manager enters StateError.
func (m *Manager) StartModules(ctx context.Context) error {
	m.setState(StateStarting)

	var g errgroup.Group
	for _, mod := range m.modulesInOrder() {
		mod := mod
		g.Go(func() error {
			name := mod.Name()
			if err := mod.Start(ctx); err != nil {
				m.markStarted(name, err)
				m.log.Error().Err(err).Str("module", name).Msg("start failed")
				m.publish(Event{Name: "module_start_failed", Module: name, Fields: map[string]any{"error": err.Error()}})
				return ErrStartFailed(name, err)
			}
			m.markStarted(name, nil)
			m.log.Info().Str("module", name).Msg("started")
			m.publish(Event{Name: "module_started", Module: name})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		m.mu.Lock()
		m.state = StateError
		m.err = err.Error()
		m.mu.Unlock()
		return err
	}
	m.setState(StateReady)
	return nil
}

func (m *Manager) markStarted(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[name]
	if !ok {
		return
	}
	st.started = err == nil
	if err != nil {
		st.err = err.Error()
	}
}
