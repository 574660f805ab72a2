package ostiary

import (
	"log/slog"

	"github.com/ostiary/ostiary/hook"
	"github.com/ostiary/ostiary/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the backing permission store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithCache sets the permission cache. A nil cache disables caching:
// every load goes to the store.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithHook registers a lifecycle hook with the engine.
func WithHook(h hook.Hook) Option {
	return func(e *Engine) {
		if e.hooks == nil {
			e.hooks = hook.NewRegistry(e.logger)
		}
		e.hooks.Register(h)
	}
}
