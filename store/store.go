// Package store defines the persistence boundary consumed by the Ostiary
// engine. The engine only ever reads through Store; the Admin surface
// exists so permission mutations (the paths that must invalidate the
// engine cache) have a first-class home. Backends: Postgres, SQLite, and
// Memory.
package store

import (
	"context"

	"github.com/ostiary/ostiary/audit"
	"github.com/ostiary/ostiary/id"
)

// PermissionRecord is one persisted permission row: the name plus the
// metadata the hierarchy resolver needs. Parent is the explicitly
// assigned parent permission name, empty when none.
type PermissionRecord struct {
	ID       id.PermissionID `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Parent   string          `json:"parent,omitempty"`
}

// Store is the read boundary the engine depends on.
//
// Every method must signal a "store unavailable" condition (no active
// connection, network fault) by wrapping ostiary.ErrStoreUnavailable,
// distinguishable from an empty result.
type Store interface {
	// UserPermissionNames returns the permission strings granted to a
	// user through their role assignments, deduplicated.
	UserPermissionNames(ctx context.Context, userID string) ([]string, error)

	// UserRoleNames returns the names of the roles assigned to a user.
	UserRoleNames(ctx context.Context, userID string) ([]string, error)

	// ManagerTeamIDs returns the IDs of the teams a user manages.
	ManagerTeamIDs(ctx context.Context, userID string) ([]int64, error)

	// PermissionRelationships returns every persisted permission row with
	// its explicit parent reference.
	PermissionRelationships(ctx context.Context) ([]PermissionRecord, error)

	// TeamMembers returns the user IDs belonging to any of the teams.
	TeamMembers(ctx context.Context, teamIDs []int64) ([]string, error)

	// IsUserInTeams reports whether the user belongs to any of the teams.
	IsUserInTeams(ctx context.Context, userID string, teamIDs []int64) (bool, error)

	audit.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}

// Admin is the mutation surface. Callers performing these operations must
// invalidate the engine cache before reporting success; the engine's
// InvalidateUser/InvalidateAll helpers exist for exactly that.
type Admin interface {
	// CreatePermission persists a permission row. The explicit parent (if
	// any) must already exist.
	CreatePermission(ctx context.Context, rec *PermissionRecord) error

	// DeletePermission removes a permission row by name.
	DeletePermission(ctx context.Context, name string) error

	// CreateRole creates a role granting the given permission names.
	CreateRole(ctx context.Context, name string, permissions []string) error

	// AssignRole assigns a role to a user.
	AssignRole(ctx context.Context, userID, roleName string) error

	// RemoveRole removes a role from a user.
	RemoveRole(ctx context.Context, userID, roleName string) error

	// AddTeamMember adds a user to a team.
	AddTeamMember(ctx context.Context, teamID int64, userID string) error

	// RemoveTeamMember removes a user from a team.
	RemoveTeamMember(ctx context.Context, teamID int64, userID string) error

	// SetTeamManager marks a user as the manager of a team.
	SetTeamManager(ctx context.Context, teamID int64, userID string) error
}
