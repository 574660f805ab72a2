// Package cache provides in-memory caching for Ostiary permission data.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ostiary/ostiary"
)

// Compile-time interface check.
var _ ostiary.ConfigurableCache = (*Memory)(nil)

// Memory is an in-memory cache with TTL-based expiration. User permission
// sets and the hierarchy snapshot expire independently. Reads of different
// users never block each other beyond the shared read lock.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]*userEntry
	userTTL    time.Duration
	userTTLSet bool
	maxSize    int
	maxSizeSet bool

	hmu             sync.RWMutex
	hierarchy       *ostiary.HierarchySnapshot
	hierarchyAt     time.Time
	hierarchyTTL    time.Duration
	hierarchyTTLSet bool
}

type userEntry struct {
	perms     []string
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithUserTTL sets the time-to-live for per-user permission entries,
// overriding the engine configuration.
func WithUserTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.userTTL = ttl; m.userTTLSet = true }
}

// WithHierarchyTTL sets the time-to-live for the hierarchy snapshot,
// overriding the engine configuration.
func WithHierarchyTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.hierarchyTTL = ttl; m.hierarchyTTLSet = true }
}

// WithMaxUsers sets the maximum number of cached user entries, overriding
// the engine configuration.
func WithMaxUsers(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n; m.maxSizeSet = true }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		users:        make(map[string]*userEntry),
		userTTL:      10 * time.Minute,
		hierarchyTTL: 10 * time.Minute,
		maxSize:      10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ApplyConfig adopts the engine configuration's TTLs and sizing for any
// setting not already pinned by a MemoryOption. The engine calls this
// once at construction, before the cache sees traffic.
func (m *Memory) ApplyConfig(cfg ostiary.Config) {
	m.mu.Lock()
	if !m.userTTLSet && cfg.UserCacheTTL > 0 {
		m.userTTL = cfg.UserCacheTTL
	}
	if !m.maxSizeSet && cfg.CacheMaxUsers > 0 {
		m.maxSize = cfg.CacheMaxUsers
	}
	m.mu.Unlock()

	m.hmu.Lock()
	if !m.hierarchyTTLSet && cfg.HierarchyCacheTTL > 0 {
		m.hierarchyTTL = cfg.HierarchyCacheTTL
	}
	m.hmu.Unlock()
}

// UserPermissions returns the cached permission set for a user.
func (m *Memory) UserPermissions(_ context.Context, userID string) ([]string, bool) {
	m.mu.RLock()
	e, ok := m.users[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.users, userID)
		m.mu.Unlock()
		return nil, false
	}
	perms := make([]string, len(e.perms))
	copy(perms, e.perms)
	return perms, true
}

// SetUserPermissions stores a user's permission set.
func (m *Memory) SetUserPermissions(_ context.Context, userID string, perms []string) {
	stored := make([]string, len(perms))
	copy(stored, perms)

	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.users) >= m.maxSize {
		m.evictExpired()
		if len(m.users) >= m.maxSize {
			m.evictOne()
		}
	}

	m.users[userID] = &userEntry{
		perms:     stored,
		expiresAt: time.Now().Add(m.userTTL),
	}
}

// Hierarchy returns the cached hierarchy snapshot.
func (m *Memory) Hierarchy(_ context.Context) (*ostiary.HierarchySnapshot, bool) {
	m.hmu.RLock()
	defer m.hmu.RUnlock()
	if m.hierarchy == nil {
		return nil, false
	}
	if time.Since(m.hierarchyAt) > m.hierarchyTTL {
		return nil, false
	}
	return m.hierarchy, true
}

// SetHierarchy stores the hierarchy snapshot.
func (m *Memory) SetHierarchy(_ context.Context, snap *ostiary.HierarchySnapshot) {
	m.hmu.Lock()
	m.hierarchy = snap
	m.hierarchyAt = time.Now()
	m.hmu.Unlock()
}

// InvalidateUser removes one user's cached permission set.
func (m *Memory) InvalidateUser(_ context.Context, userID string) {
	m.mu.Lock()
	delete(m.users, userID)
	m.mu.Unlock()
}

// InvalidateAll clears all user entries and the hierarchy snapshot.
func (m *Memory) InvalidateAll(_ context.Context) {
	m.mu.Lock()
	m.users = make(map[string]*userEntry)
	m.mu.Unlock()

	m.hmu.Lock()
	m.hierarchy = nil
	m.hierarchyAt = time.Time{}
	m.hmu.Unlock()
}

// Stats returns cache occupancy.
func (m *Memory) Stats(_ context.Context) ostiary.CacheStats {
	m.mu.RLock()
	users := len(m.users)
	m.mu.RUnlock()

	m.hmu.RLock()
	defer m.hmu.RUnlock()
	stats := ostiary.CacheStats{UserEntries: users}
	if m.hierarchy != nil && time.Since(m.hierarchyAt) <= m.hierarchyTTL {
		stats.HierarchyCached = true
		stats.HierarchyAge = time.Since(m.hierarchyAt)
	}
	return stats
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.users {
		if now.After(e.expiresAt) {
			delete(m.users, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.users {
		delete(m.users, k)
		return
	}
}
