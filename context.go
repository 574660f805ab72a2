package ostiary

import "context"

type contextKey int

const (
	ctxKeyIdentity contextKey = iota
	ctxKeyDataContext
	ctxKeyPermissions
)

// WithIdentity returns a context carrying the acting user's ID.
// The HTTP layer sets this after authentication; the guard reads it.
func WithIdentity(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, userID)
}

// IdentityFromContext returns the acting user's ID, if set.
func IdentityFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyIdentity).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithDataContext returns a context carrying a resolved data-level
// context for downstream query filtering.
func WithDataContext(ctx context.Context, dc *DataContext) context.Context {
	return context.WithValue(ctx, ctxKeyDataContext, dc)
}

// DataContextFromContext returns the resolved data-level context, if set.
func DataContextFromContext(ctx context.Context) (*DataContext, bool) {
	dc, ok := ctx.Value(ctxKeyDataContext).(*DataContext)
	return dc, ok && dc != nil
}

// WithPermissions returns a context carrying the user's loaded
// permission set.
func WithPermissions(ctx context.Context, perms []string) context.Context {
	return context.WithValue(ctx, ctxKeyPermissions, perms)
}

// PermissionsFromContext returns the loaded permission set, if set.
func PermissionsFromContext(ctx context.Context) ([]string, bool) {
	perms, ok := ctx.Value(ctxKeyPermissions).([]string)
	return perms, ok
}

// Attach returns a context carrying an allowed decision's loaded
// permission set and data context. Hosts outside a forge chain call this
// after Authorize so downstream code can read both without re-querying
// the engine; BuildDataContext reuses an attached context for the same
// user within the request.
func Attach(ctx context.Context, dec *Decision) context.Context {
	if dec == nil || !dec.Allowed {
		return ctx
	}
	if dec.DataContext != nil {
		ctx = WithDataContext(ctx, dec.DataContext)
	}
	if len(dec.Permissions) > 0 {
		ctx = WithPermissions(ctx, dec.Permissions)
	}
	return ctx
}
