// Package extension provides a Forge extension entry point for Ostiary.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/ostiary/ostiary"
	"github.com/ostiary/ostiary/cache"
	"github.com/ostiary/ostiary/hook"
	"github.com/ostiary/ostiary/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "ostiary"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Hierarchical permission matching and role-based data scoping"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Ostiary as a Forge extension.
type Extension struct {
	config     Config
	eng        *ostiary.Engine
	logger     *slog.Logger
	engineOpts []ostiary.Option
	hooks      []hook.Hook
}

// New creates an Ostiary Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying Ostiary engine.
func (e *Extension) Engine() *ostiary.Engine { return e.eng }

// Register implements [forge.Extension]. It initializes the engine and
// registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*ostiary.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("ostiary: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := make([]ostiary.Option, 0, len(e.engineOpts)+len(e.hooks)+3)
	opts = append(opts, ostiary.WithLogger(logger))

	// Default cache; the engine applies the effective configuration
	// (TTLs, sizing) to it. User options may replace it.
	opts = append(opts, ostiary.WithCache(cache.NewMemory()))

	if e.config.EnvConfig {
		cfg, err := ostiary.ConfigFromEnv()
		if err != nil {
			return fmt.Errorf("ostiary: load env config: %w", err)
		}
		opts = append(opts, ostiary.WithConfig(cfg))
	}

	// Try to resolve store from DI container, fall back to option-provided store.
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		opts = append(opts, ostiary.WithStore(s))
	}

	// Append user-provided options (may override store).
	opts = append(opts, e.engineOpts...)

	for _, h := range e.hooks {
		opts = append(opts, ostiary.WithHook(h))
	}

	eng, err := ostiary.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("ostiary: create engine: %w", err)
	}
	e.eng = eng

	return nil
}

// Start runs migrations if enabled and starts the engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("ostiary: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if s := e.eng.Store(); s != nil {
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("ostiary: migration failed: %w", err)
			}
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("ostiary: extension not initialized")
	}
	s := e.eng.Store()
	if s == nil {
		return errors.New("ostiary: no store configured")
	}
	return s.Ping(ctx)
}
