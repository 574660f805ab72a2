package hook

import (
	"context"
	"log/slog"
)

// Named entry types pair a hook with its name for logging.

type beforeCheckEntry struct {
	name string
	hook BeforeCheck
}
type afterCheckEntry struct {
	name string
	hook AfterCheck
}
type userInvalidatedEntry struct {
	name string
	hook UserInvalidated
}
type cacheFlushedEntry struct {
	name string
	hook CacheFlushed
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered hooks and dispatches lifecycle events.
// It type-caches hooks at registration time so emit calls iterate only
// over hooks implementing the relevant event.
type Registry struct {
	hooks  []Hook
	logger *slog.Logger

	beforeCheck     []beforeCheckEntry
	afterCheck      []afterCheckEntry
	userInvalidated []userInvalidatedEntry
	cacheFlushed    []cacheFlushedEntry
	shutdown        []shutdownEntry
}

// NewRegistry creates a hook registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a hook and type-asserts it into all applicable event
// caches. Hooks are notified in registration order.
func (r *Registry) Register(h Hook) {
	r.hooks = append(r.hooks, h)
	name := h.Name()

	if e, ok := h.(BeforeCheck); ok {
		r.beforeCheck = append(r.beforeCheck, beforeCheckEntry{name, e})
	}
	if e, ok := h.(AfterCheck); ok {
		r.afterCheck = append(r.afterCheck, afterCheckEntry{name, e})
	}
	if e, ok := h.(UserInvalidated); ok {
		r.userInvalidated = append(r.userInvalidated, userInvalidatedEntry{name, e})
	}
	if e, ok := h.(CacheFlushed); ok {
		r.cacheFlushed = append(r.cacheFlushed, cacheFlushedEntry{name, e})
	}
	if e, ok := h.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, e})
	}
}

// Hooks returns all registered hooks.
func (r *Registry) Hooks() []Hook { return r.hooks }

// EmitBeforeCheck notifies all hooks that implement BeforeCheck.
func (r *Registry) EmitBeforeCheck(ctx context.Context, userID string, req any) {
	for _, e := range r.beforeCheck {
		if err := e.hook.OnBeforeCheck(ctx, userID, req); err != nil {
			r.logHookError("OnBeforeCheck", e.name, err)
		}
	}
}

// EmitAfterCheck notifies all hooks that implement AfterCheck.
func (r *Registry) EmitAfterCheck(ctx context.Context, userID string, req, decision any) {
	for _, e := range r.afterCheck {
		if err := e.hook.OnAfterCheck(ctx, userID, req, decision); err != nil {
			r.logHookError("OnAfterCheck", e.name, err)
		}
	}
}

// EmitUserInvalidated notifies all hooks that implement UserInvalidated.
func (r *Registry) EmitUserInvalidated(ctx context.Context, userID string) {
	for _, e := range r.userInvalidated {
		if err := e.hook.OnUserInvalidated(ctx, userID); err != nil {
			r.logHookError("OnUserInvalidated", e.name, err)
		}
	}
}

// EmitCacheFlushed notifies all hooks that implement CacheFlushed.
func (r *Registry) EmitCacheFlushed(ctx context.Context) {
	for _, e := range r.cacheFlushed {
		if err := e.hook.OnCacheFlushed(ctx); err != nil {
			r.logHookError("OnCacheFlushed", e.name, err)
		}
	}
}

// EmitShutdown notifies all hooks that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the
// pipeline.
func (r *Registry) logHookError(event, hookName string, err error) {
	r.logger.Warn("hook error",
		slog.String("event", event),
		slog.String("hook", hookName),
		slog.String("error", err.Error()),
	)
}
