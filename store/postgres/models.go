package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/ostiary/ostiary/audit"
	"github.com/ostiary/ostiary/id"
	"github.com/ostiary/ostiary/store"
)

type permissionModel struct {
	grove.BaseModel `grove:"table:ostiary_permissions"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Category        string    `grove:"category"`
	Parent          string    `grove:"parent"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func permissionToModel(rec *store.PermissionRecord) *permissionModel {
	return &permissionModel{
		ID:       rec.ID.String(),
		Name:     rec.Name,
		Category: rec.Category,
		Parent:   rec.Parent,
	}
}

func permissionFromModel(m *permissionModel) store.PermissionRecord {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return store.PermissionRecord{
		ID:       pid,
		Name:     m.Name,
		Category: m.Category,
		Parent:   m.Parent,
	}
}

type roleModel struct {
	grove.BaseModel `grove:"table:ostiary_roles"`
	Name            string    `grove:"name,pk"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

type rolePermissionModel struct {
	grove.BaseModel `grove:"table:ostiary_role_permissions"`
	RoleName        string `grove:"role_name,pk"`
	PermissionName  string `grove:"permission_name,pk"`
}

type userRoleModel struct {
	grove.BaseModel `grove:"table:ostiary_user_roles"`
	UserID          string    `grove:"user_id,pk"`
	RoleName        string    `grove:"role_name,pk"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

type teamMemberModel struct {
	grove.BaseModel `grove:"table:ostiary_team_members"`
	TeamID          int64  `grove:"team_id,pk"`
	UserID          string `grove:"user_id,pk"`
}

type teamManagerModel struct {
	grove.BaseModel `grove:"table:ostiary_team_managers"`
	TeamID          int64  `grove:"team_id,pk"`
	UserID          string `grove:"user_id,notnull"`
}

type auditModel struct {
	grove.BaseModel `grove:"table:ostiary_audit_log"`
	ID              string    `grove:"id,pk"`
	UserID          string    `grove:"user_id,notnull"`
	Requirement     string    `grove:"requirement,notnull"`
	Status          string    `grove:"status,notnull"`
	Reason          string    `grove:"reason"`
	Matched         string    `grove:"matched"`
	MatchType       string    `grove:"match_type"`
	Missing         string    `grove:"missing"`
	EvalTimeNs      int64     `grove:"eval_time_ns,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func auditToModel(e *audit.Entry) *auditModel {
	return &auditModel{
		ID:          e.ID.String(),
		UserID:      e.UserID,
		Requirement: e.Requirement,
		Status:      e.Status,
		Reason:      e.Reason,
		Matched:     e.Matched,
		MatchType:   e.MatchType,
		Missing:     e.Missing,
		EvalTimeNs:  e.EvalTimeNs,
		CreatedAt:   e.CreatedAt,
	}
}

func auditFromModel(m *auditModel) *audit.Entry {
	aid, _ := id.ParseAuditID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &audit.Entry{
		ID:          aid,
		UserID:      m.UserID,
		Requirement: m.Requirement,
		Status:      m.Status,
		Reason:      m.Reason,
		Matched:     m.Matched,
		MatchType:   m.MatchType,
		Missing:     m.Missing,
		EvalTimeNs:  m.EvalTimeNs,
		CreatedAt:   m.CreatedAt,
	}
}
