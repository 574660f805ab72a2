package ostiary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ostiary/ostiary/audit"
	"github.com/ostiary/ostiary/hook"
	"github.com/ostiary/ostiary/id"
	"github.com/ostiary/ostiary/store"
)

// Engine is the authorization guard. It loads permission sets through the
// cache, evaluates declared requirements with the matcher, resolves data
// scopes, and fires lifecycle hooks.
type Engine struct {
	store  store.Store
	cache  Cache
	hooks  *hook.Registry
	logger *slog.Logger
	config Config
}

// NewEngine creates a new Ostiary engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("ostiary: store is required")
	}
	e.config = e.config.normalize()
	if c, ok := e.cache.(ConfigurableCache); ok {
		c.ApplyConfig(e.config)
	}
	return e, nil
}

// Store returns the backing store.
func (e *Engine) Store() store.Store { return e.store }

// Hooks returns the hook registry (may be nil).
func (e *Engine) Hooks() *hook.Registry { return e.hooks }

// Config returns the effective engine configuration.
func (e *Engine) Config() Config { return e.config }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown, notifying shutdown hooks.
func (e *Engine) Stop(ctx context.Context) error {
	if e.hooks != nil {
		e.hooks.EmitShutdown(ctx)
	}
	return nil
}

// Authorize evaluates a declared requirement for the identity on the
// context. This is the request-time hot path.
//
// Outcomes are values: a denial is a Decision, not an error. The error
// return is reserved for infrastructure faults (store unavailable) and
// malformed requirements.
func (e *Engine) Authorize(ctx context.Context, req *Requirement) (*Decision, error) {
	start := time.Now()

	// Declared skip: no identity resolution, no permission load.
	if req != nil && req.Skip {
		return &Decision{
			Allowed:    true,
			Status:     StatusAllow,
			Reason:     "check skipped by declaration",
			EvalTimeNs: time.Since(start).Nanoseconds(),
		}, nil
	}

	userID, ok := IdentityFromContext(ctx)
	if !ok {
		dec := &Decision{
			Status:     StatusUnauthenticated,
			Reason:     "no user identity on request",
			EvalTimeNs: time.Since(start).Nanoseconds(),
		}
		e.record(ctx, "", req, dec)
		return dec, nil
	}

	if err := validateRequirement(req); err != nil {
		return nil, err
	}

	if e.hooks != nil {
		e.hooks.EmitBeforeCheck(ctx, userID, req)
	}

	// No requirement declared: downstream handlers may still need the
	// data context for filtering, so resolve and attach it.
	if req == nil || (len(req.Permissions) == 0 && req.Resource == nil) {
		dc, err := e.BuildDataContext(ctx, userID)
		if err != nil {
			return nil, err
		}
		dec := &Decision{
			Allowed:     true,
			Status:      StatusAllow,
			Reason:      "no permission requirement declared",
			DataContext: dc,
			EvalTimeNs:  time.Since(start).Nanoseconds(),
		}
		e.finish(ctx, userID, req, dec)
		return dec, nil
	}

	perms, err := e.UserPermissions(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	dec := e.evaluate(userID, perms, req)
	if dec.Allowed {
		dc, err := e.BuildDataContext(ctx, userID)
		if err != nil {
			return nil, err
		}
		dec.Permissions = perms
		dec.DataContext = dc
	}
	dec.EvalTimeNs = time.Since(start).Nanoseconds()
	e.finish(ctx, userID, req, dec)
	return dec, nil
}

// Enforce returns an error unless the requirement is allowed.
func (e *Engine) Enforce(ctx context.Context, req *Requirement) error {
	dec, err := e.Authorize(ctx, req)
	if err != nil {
		return fmt.Errorf("ostiary authorize: %w", err)
	}
	if dec.Allowed {
		return nil
	}
	if dec.Status == StatusUnauthenticated {
		return ErrUnauthenticated
	}
	return fmt.Errorf("%w: %s", ErrAccessDenied, dec.Reason)
}

// Can is a shorthand: does the identity on the context hold one
// permission?
func (e *Engine) Can(ctx context.Context, permission string) (bool, error) {
	userID, ok := IdentityFromContext(ctx)
	if !ok {
		return false, ErrUnauthenticated
	}
	perms, err := e.UserPermissions(ctx, userID, true)
	if err != nil {
		return false, err
	}
	return Evaluate(perms, permission).Granted, nil
}

// UserPermissions loads a user's permission set, consulting the cache
// first when useCache is true. The cache is populated only after a
// successful store read — a failed or cancelled fetch leaves it
// untouched.
func (e *Engine) UserPermissions(ctx context.Context, userID string, useCache bool) ([]string, error) {
	if useCache && e.cache != nil {
		if perms, ok := e.cache.UserPermissions(ctx, userID); ok {
			return perms, nil
		}
	}

	perms, err := e.store.UserPermissionNames(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ostiary: load permissions for %s: %w", userID, err)
	}
	if e.cache != nil {
		e.cache.SetUserPermissions(ctx, userID, perms)
	}
	return perms, nil
}

// InvalidateUser drops one user's cached permissions. Mutating code
// paths must call this before reporting success so their own subsequent
// reads observe the change.
func (e *Engine) InvalidateUser(ctx context.Context, userID string) {
	if e.cache != nil {
		e.cache.InvalidateUser(ctx, userID)
	}
	if e.hooks != nil {
		e.hooks.EmitUserInvalidated(ctx, userID)
	}
}

// InvalidateAll clears the whole cache: every user entry and the
// hierarchy snapshot.
func (e *Engine) InvalidateAll(ctx context.Context) {
	if e.cache != nil {
		e.cache.InvalidateAll(ctx)
	}
	if e.hooks != nil {
		e.hooks.EmitCacheFlushed(ctx)
	}
}

// CacheStats reports cache occupancy, or the zero value when no cache is
// configured.
func (e *Engine) CacheStats(ctx context.Context) CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats(ctx)
}

// evaluate runs the matcher for a loaded permission set against the
// requirement. Resource-scoped checks win over the permission list.
func (e *Engine) evaluate(userID string, perms []string, req *Requirement) *Decision {
	if req.Resource != nil {
		return e.evaluateResource(userID, perms, req)
	}

	switch req.Mode {
	case ModeAll:
		ok, missing := HasAll(perms, req.Permissions)
		if ok {
			return &Decision{
				Allowed: true,
				Status:  StatusAllow,
				Matched: firstMatch(perms, req.Permissions),
			}
		}
		return &Decision{
			Status:  StatusForbidden,
			Reason:  "missing required permissions",
			Missing: missing,
		}

	default: // ModeAny and unset
		if m := firstMatch(perms, req.Permissions); m != nil {
			return &Decision{Allowed: true, Status: StatusAllow, Matched: m}
		}
		// Only the aggregate requirement is reported: listing which of
		// the alternatives are held would let a caller enumerate the
		// granted set.
		return &Decision{
			Status: StatusForbidden,
			Reason: fmt.Sprintf("requires any of %d permission(s)", len(req.Permissions)),
		}
	}
}

func (e *Engine) evaluateResource(userID string, perms []string, req *Requirement) *Decision {
	r := req.Resource
	res := HasResource(perms, r.Type, r.Action, r.OwnerID, userID)
	if res.Granted {
		return &Decision{Allowed: true, Status: StatusAllow, Matched: &res}
	}
	return &Decision{
		Status:  StatusForbidden,
		Reason:  fmt.Sprintf("not permitted to %s %s", r.Action, r.Type),
		Missing: []string{r.Type + "." + r.Action},
	}
}

// finish emits after-check hooks and records the decision.
func (e *Engine) finish(ctx context.Context, userID string, req *Requirement, dec *Decision) {
	if e.hooks != nil {
		e.hooks.EmitAfterCheck(ctx, userID, req, dec)
	}
	e.record(ctx, userID, req, dec)
}

// record appends the decision to the audit log, best-effort.
func (e *Engine) record(ctx context.Context, userID string, req *Requirement, dec *Decision) {
	if !e.config.AuditEnabled {
		return
	}
	entry := &audit.Entry{
		ID:          id.NewAuditID(),
		UserID:      userID,
		Requirement: describeRequirement(req),
		Status:      string(dec.Status),
		Reason:      dec.Reason,
		Missing:     strings.Join(dec.Missing, ","),
		EvalTimeNs:  dec.EvalTimeNs,
		CreatedAt:   time.Now().UTC(),
	}
	if dec.Matched != nil {
		entry.Matched = dec.Matched.Matched
		entry.MatchType = string(dec.Matched.Type)
	}
	if err := e.store.CreateAuditEntry(ctx, entry); err != nil {
		e.logger.Warn("audit write failed", slog.String("error", err.Error()))
	}
}

// firstMatch returns the match result for the first granted requirement,
// or nil when none match.
func firstMatch(perms, required []string) *MatchResult {
	for _, r := range required {
		if res := Evaluate(perms, r); res.Granted {
			return &res
		}
	}
	return nil
}

// validateRequirement fails fast on programmer errors in a declaration.
func validateRequirement(req *Requirement) error {
	if req == nil {
		return nil
	}
	switch req.Mode {
	case "", ModeAny, ModeAll:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrMalformedRequirement, req.Mode)
	}
	if r := req.Resource; r != nil {
		if r.Type == "" || r.Action == "" {
			return fmt.Errorf("%w: resource requirement needs type and action", ErrMalformedRequirement)
		}
		if r.OwnerID == "" && r.OwnerParam == "" {
			return fmt.Errorf("%w: resource requirement needs an owner source", ErrMalformedRequirement)
		}
	}
	return nil
}

func describeRequirement(req *Requirement) string {
	if req == nil {
		return ""
	}
	if req.Resource != nil {
		return req.Resource.Type + "." + req.Resource.Action
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeAny
	}
	return string(mode) + ":" + strings.Join(req.Permissions, ",")
}
