// Package postgres provides a PostgreSQL implementation of the Ostiary
// store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/ostiary/ostiary"
	"github.com/ostiary/ostiary/audit"
	"github.com/ostiary/ostiary/id"
	"github.com/ostiary/ostiary/store"
)

// Compile-time interface checks.
var (
	_ store.Store = (*Store)(nil)
	_ store.Admin = (*Store)(nil)
)

// Store is a PostgreSQL implementation of the Ostiary store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("ostiary/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("ostiary/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// storeErr marks a backend fault so callers can distinguish it from an
// empty result via errors.Is(err, ostiary.ErrStoreUnavailable).
func storeErr(op string, err error) error {
	return fmt.Errorf("ostiary/postgres: %s: %w", op, errors.Join(ostiary.ErrStoreUnavailable, err))
}

// ──────────────────────────────────────────────────
// Read operations
// ──────────────────────────────────────────────────

func (s *Store) UserPermissionNames(ctx context.Context, userID string) ([]string, error) {
	var models []rolePermissionModel
	err := s.pgdb.NewSelect(&models).
		DistinctOn("ostiary_role_permissions.permission_name").
		Join("JOIN", "ostiary_user_roles AS ur", "ur.role_name = ostiary_role_permissions.role_name").
		Where("ur.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, storeErr("user permission names", err)
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.PermissionName
	}
	return names, nil
}

func (s *Store) UserRoleNames(ctx context.Context, userID string) ([]string, error) {
	var models []userRoleModel
	err := s.pgdb.NewSelect(&models).
		Where("user_id = ?", userID).
		OrderExpr("role_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, storeErr("user role names", err)
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.RoleName
	}
	return names, nil
}

func (s *Store) ManagerTeamIDs(ctx context.Context, userID string) ([]int64, error) {
	var models []teamManagerModel
	err := s.pgdb.NewSelect(&models).
		Where("user_id = ?", userID).
		OrderExpr("team_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storeErr("manager team ids", err)
	}
	teams := make([]int64, len(models))
	for i, m := range models {
		teams[i] = m.TeamID
	}
	return teams, nil
}

func (s *Store) PermissionRelationships(ctx context.Context) ([]store.PermissionRecord, error) {
	var models []permissionModel
	err := s.pgdb.NewSelect(&models).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, storeErr("permission relationships", err)
	}
	records := make([]store.PermissionRecord, len(models))
	for i := range models {
		records[i] = permissionFromModel(&models[i])
	}
	return records, nil
}

func (s *Store) TeamMembers(ctx context.Context, teamIDs []int64) ([]string, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	var models []teamMemberModel
	err := s.pgdb.NewSelect(&models).
		DistinctOn("ostiary_team_members.user_id").
		Where("team_id IN (?)", teamIDs).
		Scan(ctx)
	if err != nil {
		return nil, storeErr("team members", err)
	}
	users := make([]string, len(models))
	for i, m := range models {
		users[i] = m.UserID
	}
	return users, nil
}

func (s *Store) IsUserInTeams(ctx context.Context, userID string, teamIDs []int64) (bool, error) {
	if len(teamIDs) == 0 {
		return false, nil
	}
	count, err := s.pgdb.NewSelect((*teamMemberModel)(nil)).
		Where("user_id = ?", userID).
		Where("team_id IN (?)", teamIDs).
		Count(ctx)
	if err != nil {
		return false, storeErr("team membership", err)
	}
	return count > 0, nil
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *audit.Entry) error {
	if e.ID.IsNil() {
		e.ID = id.NewAuditID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m := auditToModel(e)
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return storeErr("create audit entry", err)
	}
	return nil
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.After != nil {
			q = q.Where("created_at > ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at < ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, storeErr("list audit entries", err)
	}
	result := make([]*audit.Entry, len(models))
	for i := range models {
		result[i] = auditFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	q := s.pgdb.NewSelect((*auditModel)(nil))
	if filter != nil {
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.After != nil {
			q = q.Where("created_at > ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at < ?", *filter.Before)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, storeErr("count audit entries", err)
	}
	return count, nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pgdb.NewDelete((*auditModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, storeErr("purge audit entries", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("purge audit entries rows", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Admin operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, rec *store.PermissionRecord) error {
	if rec.Parent != "" {
		count, err := s.pgdb.NewSelect((*permissionModel)(nil)).
			Where("name = ?", rec.Parent).
			Count(ctx)
		if err != nil {
			return storeErr("check parent permission", err)
		}
		if count == 0 {
			return fmt.Errorf("ostiary/postgres: parent %q: %w", rec.Parent, ostiary.ErrPermissionNotFound)
		}
	}
	if rec.ID.IsNil() {
		rec.ID = id.NewPermissionID()
	}
	m := permissionToModel(rec)
	m.CreatedAt = time.Now().UTC()
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return storeErr("create permission", err)
	}
	return nil
}

func (s *Store) DeletePermission(ctx context.Context, name string) error {
	_, err := s.pgdb.NewDelete((*permissionModel)(nil)).
		Where("name = ?", name).Exec(ctx)
	if err != nil {
		return storeErr("delete permission", err)
	}
	return nil
}

func (s *Store) CreateRole(ctx context.Context, name string, permissions []string) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return storeErr("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	role := &roleModel{Name: name, CreatedAt: time.Now().UTC()}
	_, err = tx.NewInsert(role).
		OnConflict("(name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return storeErr("create role", err)
	}

	_, err = tx.NewDelete((*rolePermissionModel)(nil)).
		Where("role_name = ?", name).
		Exec(ctx)
	if err != nil {
		return storeErr("clear role permissions", err)
	}

	if len(permissions) > 0 {
		models := make([]rolePermissionModel, len(permissions))
		for i, p := range permissions {
			models[i] = rolePermissionModel{RoleName: name, PermissionName: p}
		}
		_, err = tx.NewInsert(&models).Exec(ctx)
		if err != nil {
			return storeErr("set role permissions", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit tx", err)
	}
	return nil
}

func (s *Store) AssignRole(ctx context.Context, userID, roleName string) error {
	m := &userRoleModel{UserID: userID, RoleName: roleName, CreatedAt: time.Now().UTC()}
	_, err := s.pgdb.NewInsert(m).
		OnConflict("(user_id, role_name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return storeErr("assign role", err)
	}
	return nil
}

func (s *Store) RemoveRole(ctx context.Context, userID, roleName string) error {
	_, err := s.pgdb.NewDelete((*userRoleModel)(nil)).
		Where("user_id = ?", userID).
		Where("role_name = ?", roleName).
		Exec(ctx)
	if err != nil {
		return storeErr("remove role", err)
	}
	return nil
}

func (s *Store) AddTeamMember(ctx context.Context, teamID int64, userID string) error {
	m := &teamMemberModel{TeamID: teamID, UserID: userID}
	_, err := s.pgdb.NewInsert(m).
		OnConflict("(team_id, user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return storeErr("add team member", err)
	}
	return nil
}

func (s *Store) RemoveTeamMember(ctx context.Context, teamID int64, userID string) error {
	_, err := s.pgdb.NewDelete((*teamMemberModel)(nil)).
		Where("team_id = ?", teamID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return storeErr("remove team member", err)
	}
	return nil
}

func (s *Store) SetTeamManager(ctx context.Context, teamID int64, userID string) error {
	m := &teamManagerModel{TeamID: teamID, UserID: userID}
	_, err := s.pgdb.NewInsert(m).
		OnConflict("(team_id) DO UPDATE SET user_id = EXCLUDED.user_id").
		Exec(ctx)
	if err != nil {
		return storeErr("set team manager", err)
	}
	return nil
}
