package ostiary

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds configuration for the Ostiary engine.
type Config struct {
	// UserCacheTTL is the time-to-live for cached per-user permission
	// sets. Defaults to 10 minutes.
	UserCacheTTL time.Duration `json:"user_cache_ttl,omitempty" envconfig:"USER_CACHE_TTL"`

	// HierarchyCacheTTL is the time-to-live for the cached permission
	// hierarchy. Defaults to 10 minutes.
	HierarchyCacheTTL time.Duration `json:"hierarchy_cache_ttl,omitempty" envconfig:"HIERARCHY_CACHE_TTL"`

	// CacheMaxUsers caps the number of per-user cache entries.
	// Defaults to 10000.
	CacheMaxUsers int `json:"cache_max_users,omitempty" envconfig:"CACHE_MAX_USERS"`

	// DefaultOwnerColumn is the owner column used by data scoping when a
	// requirement does not name one. Defaults to "user_id".
	DefaultOwnerColumn string `json:"default_owner_column,omitempty" envconfig:"DEFAULT_OWNER_COLUMN"`

	// TeamMembersTable is the team-membership relation referenced by the
	// manager scope subquery. Defaults to "ostiary_team_members".
	TeamMembersTable string `json:"team_members_table,omitempty" envconfig:"TEAM_MEMBERS_TABLE"`

	// IncludeManagerOwnData controls whether a manager's team scope also
	// covers rows the manager owns directly. Defaults to true.
	IncludeManagerOwnData *bool `json:"include_manager_own_data,omitempty" envconfig:"INCLUDE_MANAGER_OWN_DATA"`

	// AuditEnabled records every terminal guard decision to the store's
	// audit log. Defaults to false.
	AuditEnabled bool `json:"audit_enabled,omitempty" envconfig:"AUDIT_ENABLED"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserCacheTTL:       10 * time.Minute,
		HierarchyCacheTTL:  10 * time.Minute,
		CacheMaxUsers:      10000,
		DefaultOwnerColumn: "user_id",
		TeamMembersTable:   "ostiary_team_members",
	}
}

// ConfigFromEnv loads configuration from OSTIARY_* environment variables,
// falling back to defaults for anything unset.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process("ostiary", &cfg); err != nil {
		return Config{}, fmt.Errorf("ostiary: load config from env: %w", err)
	}
	return cfg, nil
}

func (c Config) includeManagerOwnData() bool {
	return c.IncludeManagerOwnData == nil || *c.IncludeManagerOwnData
}

// normalize fills zero-valued fields with defaults.
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.UserCacheTTL <= 0 {
		c.UserCacheTTL = def.UserCacheTTL
	}
	if c.HierarchyCacheTTL <= 0 {
		c.HierarchyCacheTTL = def.HierarchyCacheTTL
	}
	if c.CacheMaxUsers <= 0 {
		c.CacheMaxUsers = def.CacheMaxUsers
	}
	if c.DefaultOwnerColumn == "" {
		c.DefaultOwnerColumn = def.DefaultOwnerColumn
	}
	if c.TeamMembersTable == "" {
		c.TeamMembersTable = def.TeamMembersTable
	}
	return c
}
