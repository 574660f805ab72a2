package extension

import (
	"log/slog"

	"github.com/ostiary/ostiary"
	"github.com/ostiary/ostiary/hook"
	"github.com/ostiary/ostiary/store"
)

// ExtOption configures the Ostiary Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, ostiary.WithStore(s))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...ostiary.Option) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opts...)
	}
}

// WithHook registers a lifecycle hook.
func WithHook(h hook.Hook) ExtOption {
	return func(e *Extension) {
		e.hooks = append(e.hooks, h)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithEnvConfig loads the engine configuration from OSTIARY_* environment
// variables during Register.
func WithEnvConfig() ExtOption {
	return func(e *Extension) {
		e.config.EnvConfig = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
