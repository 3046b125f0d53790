package runtime

import (
	"fmt"
	"log/slog"

	"github.com/tjfontaine/dagview/internal/adapters/storage/sqlite"
	"github.com/tjfontaine/dagview/internal/core/ports"
	"github.com/tjfontaine/dagview/internal/layout"
	"github.com/tjfontaine/dagview/internal/pkg/config"
)

// Option is a functional option for configuring a Viewer.
type Option func(*Viewer) error

// WithConfig uses an already loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(v *Viewer) error {
		v.cfg = cfg
		return nil
	}
}

// WithFileConfig loads configuration from path and DAGVIEW_ environment
// variables.
func WithFileConfig(path string) Option {
	return func(v *Viewer) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		v.cfg = cfg
		return nil
	}
}

// WithSQLite reads and appends events in the SQLite database at path,
// overriding storage.sqlite.path.
func WithSQLite(path string) Option {
	return func(v *Viewer) error {
		store, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		v.store = store
		v.watchPath = store.Path()
		return nil
	}
}

// WithStore sets a custom event store. File watching is disabled; changes
// are picked up by polling and after appends made through the Viewer.
func WithStore(store ports.EventStore) Option {
	return func(v *Viewer) error {
		v.store = store
		v.watchPath = ""
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Viewer) error {
		v.logger = logger
		return nil
	}
}

// WithLayouts replaces the builtin layout registry.
func WithLayouts(layouts *layout.Registry) Option {
	return func(v *Viewer) error {
		if layouts == nil {
			return fmt.Errorf("layout registry cannot be nil")
		}
		v.layouts = layouts
		return nil
	}
}

// WithEngineFactory replaces the SVG engine used for browser viewers.
func WithEngineFactory(factory ports.EngineFactory) Option {
	return func(v *Viewer) error {
		v.engines = factory
		return nil
	}
}
