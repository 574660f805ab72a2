package ostiary

import (
	"context"
	"time"
)

// CacheStats is a point-in-time snapshot of cache occupancy.
type CacheStats struct {
	UserEntries     int           `json:"user_entries"`
	HierarchyCached bool          `json:"hierarchy_cached"`
	HierarchyAge    time.Duration `json:"hierarchy_age"`
}

// Cache provides time-boxed memoization of per-user permission sets and of
// the global permission hierarchy.
//
// The cache is not a correctness boundary: code paths that mutate
// permissions or role assignments must call InvalidateUser/InvalidateAll
// synchronously before reporting success, so the mutator's own subsequent
// reads observe the change.
type Cache interface {
	// UserPermissions returns the cached permission set for a user, if
	// present and unexpired.
	UserPermissions(ctx context.Context, userID string) ([]string, bool)

	// SetUserPermissions stores a user's permission set.
	SetUserPermissions(ctx context.Context, userID string, perms []string)

	// Hierarchy returns the cached hierarchy snapshot, if present and
	// unexpired.
	Hierarchy(ctx context.Context) (*HierarchySnapshot, bool)

	// SetHierarchy stores the hierarchy snapshot.
	SetHierarchy(ctx context.Context, snap *HierarchySnapshot)

	// InvalidateUser removes one user's cached permission set.
	InvalidateUser(ctx context.Context, userID string)

	// InvalidateAll clears everything: all user entries and the hierarchy.
	InvalidateAll(ctx context.Context)

	// Stats returns cache occupancy for introspection.
	Stats(ctx context.Context) CacheStats
}

// ConfigurableCache is implemented by caches that take their TTLs and
// sizing from the engine configuration. NewEngine calls ApplyConfig with
// the effective configuration before the cache sees any traffic; settings
// the cache was explicitly constructed with take precedence.
type ConfigurableCache interface {
	Cache
	ApplyConfig(cfg Config)
}
