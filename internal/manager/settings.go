package manager

import (
	"context"
	"fmt"

	"botd/internal/module"
)

// ListSettings returns the settings of every module exposing at least one,
// keyed by module name.
func (m *Manager) ListSettings() map[string][]module.Setting {
	out := make(map[string][]module.Setting)
	for _, mod := range m.modulesInOrder() {
		if s := mod.Settings(); len(s) > 0 {
			out[mod.Name()] = s
		}
	}
	return out
}

// UpdateSettings applies settings to the named module, saves its record and
// restarts it. An unknown name is not an error and changes nothing. Save
// failures are logged and do not fail the update.
func (m *Manager) UpdateSettings(ctx context.Context, name string, settings []module.Setting) error {
	mod, ok := m.Module(name)
	if !ok {
		m.log.Debug().Str("module", name).Msg("settings update for unknown module ignored")
		m.publish(Event{Name: "settings_unknown_module", Module: name})
		return nil
	}

	m.mu.Lock()
	m.updating++
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.updating--
		m.mu.Unlock()
	}()

	if err := mod.SetSettings(settings); err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}
	m.save(ctx, mod)

	if err := mod.Restart(ctx); err != nil {
		return fmt.Errorf("restart %s: %w", name, err)
	}
	m.log.Info().Str("module", name).Int("settings", len(settings)).Msg("settings updated")
	m.publish(Event{Name: "settings_updated", Module: name})
	return nil
}

func (m *Manager) save(ctx context.Context, mod module.Module) {
	raw, err := mod.ToData()
	if err != nil {
		m.log.Error().Err(err).Str("module", mod.Name()).Msg("encode record failed")
		return
	}
	if err := m.store.Save(ctx, mod.Name(), raw); err != nil {
		m.log.Error().Err(err).Str("module", mod.Name()).Msg("save record failed")
	}
}
