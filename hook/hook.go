// Package hook defines the lifecycle hook system for Ostiary.
// Hooks are notified of engine events (check evaluated, cache
// invalidated, shutdown) and can react — logging, metrics, tracing, etc.
//
// Each lifecycle event is a separate interface so hooks opt in only to
// the events they care about.
package hook

import "context"

// Hook is the base interface all hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// BeforeCheck is called before an authorization check is evaluated.
// The req parameter is *ostiary.Requirement (passed as any to avoid an
// import cycle).
type BeforeCheck interface {
	OnBeforeCheck(ctx context.Context, userID string, req any) error
}

// AfterCheck is called after an authorization check completes.
// The req parameter is *ostiary.Requirement; decision is
// *ostiary.Decision.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, userID string, req, decision any) error
}

// UserInvalidated is called after a user's cached permissions are
// invalidated.
type UserInvalidated interface {
	OnUserInvalidated(ctx context.Context, userID string) error
}

// CacheFlushed is called after the whole cache is cleared.
type CacheFlushed interface {
	OnCacheFlushed(ctx context.Context) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
