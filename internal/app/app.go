// Package app wires the bus, the persistence store, the module manager and
// the HTTP API into a running bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"botd/internal/bus"
	"botd/internal/config"
	"botd/internal/httpapi"
	"botd/internal/manager"
	"botd/internal/module"
	"botd/internal/modules"
	"botd/internal/persistence"
)

// ErrRestartRequested is returned by Run when a module asked for a restart.
// The caller should exit so its supervisor relaunches the process.
var ErrRestartRequested = errors.New("restart requested")

const defaultShutdownTimeout = 5 * time.Second

// ModuleFactory builds the module set on b.
type ModuleFactory func(b *bus.Bus, store persistence.Gateway, cfg config.Config, log *zerolog.Logger) []module.Module

// Options configures Run.
type Options struct {
	Config config.Config
	// Store defaults to the SQLite database at Config.DBPath.
	Store persistence.Gateway
	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger
	// Modules defaults to modules.Default.
	Modules ModuleFactory
	// Events receives manager lifecycle events.
	Events manager.EventPublisher
	// ShutdownTimeout bounds StopModules. Defaults to 5s.
	ShutdownTimeout time.Duration
	// Ready, if set, is called with the manager once modules are started.
	Ready func(*manager.Manager)
}

// Run starts every module and blocks until ctx is done or a restart is
// requested. Modules are stopped before it returns.
func Run(ctx context.Context, opts Options) error {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	cfg := opts.Config
	if opts.Modules == nil {
		opts.Modules = modules.Default
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	store := opts.Store
	if store == nil {
		db, err := persistence.OpenSQLite(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()
		store = db
	}

	b := bus.New()
	restart := make(chan struct{}, 1)
	bus.Subscribe(b, bus.Restart, func(context.Context, struct{}) error {
		select {
		case restart <- struct{}{}:
		default:
		}
		return nil
	})

	mgr := manager.NewWithConfig(manager.ManagerConfig{Store: store, Logger: &log, Events: opts.Events})
	mods := opts.Modules(b, store, cfg, &log)
	if err := httpapi.Register(ctx, b, mgr, &log); err != nil {
		return err
	}
	if err := mgr.Initialize(ctx, mods...); err != nil {
		// failed modules are reported on /status; the rest keep running
		log.Error().Err(err).Msg("module start failed")
	}
	for _, name := range cfg.Streams {
		if err := bus.Publish(ctx, b, bus.AddStream, bus.Stream{Name: name, URI: "/" + name}); err != nil {
			log.Error().Err(err).Str("stream", name).Msg("open stream failed")
		}
	}
	log.Info().Str("state", string(mgr.State())).Int("modules", len(mods)).Msg("bot running")
	if opts.Ready != nil {
		opts.Ready(mgr)
	}

	var result error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case <-restart:
		log.Info().Msg("restart requested; shutting down")
		result = ErrRestartRequested
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := mgr.StopModules(stopCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown incomplete")
	}
	return result
}
