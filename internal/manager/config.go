package manager

import (
	"github.com/rs/zerolog"

	"botd/internal/module"
	"botd/internal/persistence"
)

// ManagerConfig encapsulates all dependencies for Manager construction.
type ManagerConfig struct {
	// Store holds persisted module records. Defaults to an in-memory store.
	Store persistence.Gateway
	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger
	// Events receives lifecycle events. Defaults to a no-op publisher.
	Events EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig, applying defaults
// for unset fields.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:   StateUninitialized,
		modules: make(map[string]module.Module),
		status:  make(map[string]*moduleState),
		store:   cfg.Store,
		events:  cfg.Events,
	}
	if m.store == nil {
		m.store = persistence.NewMemoryStore()
	}
	if m.events == nil {
		m.events = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	} else {
		m.log = zerolog.Nop()
	}
	return m
}
