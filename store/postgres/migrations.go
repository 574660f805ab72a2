package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Ostiary store (PostgreSQL).
var Migrations = migrate.NewGroup("ostiary")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_permissions",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ostiary_permissions (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL UNIQUE,
    category        TEXT NOT NULL DEFAULT '',
    parent          TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ostiary_permissions_parent ON ostiary_permissions (parent);
CREATE INDEX IF NOT EXISTS idx_ostiary_permissions_category ON ostiary_permissions (category);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ostiary_permissions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_roles",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ostiary_roles (
    name            TEXT PRIMARY KEY,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ostiary_role_permissions (
    role_name         TEXT NOT NULL REFERENCES ostiary_roles(name) ON DELETE CASCADE,
    permission_name   TEXT NOT NULL,

    PRIMARY KEY (role_name, permission_name)
);

CREATE INDEX IF NOT EXISTS idx_ostiary_role_perms_role ON ostiary_role_permissions (role_name);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS ostiary_role_permissions;
DROP TABLE IF EXISTS ostiary_roles;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_user_roles",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ostiary_user_roles (
    user_id         TEXT NOT NULL,
    role_name       TEXT NOT NULL REFERENCES ostiary_roles(name) ON DELETE CASCADE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    PRIMARY KEY (user_id, role_name)
);

CREATE INDEX IF NOT EXISTS idx_ostiary_user_roles_user ON ostiary_user_roles (user_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ostiary_user_roles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_teams",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ostiary_team_members (
    team_id         BIGINT NOT NULL,
    user_id         TEXT NOT NULL,

    PRIMARY KEY (team_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_ostiary_team_members_user ON ostiary_team_members (user_id);

CREATE TABLE IF NOT EXISTS ostiary_team_managers (
    team_id         BIGINT PRIMARY KEY,
    user_id         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ostiary_team_managers_user ON ostiary_team_managers (user_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS ostiary_team_managers;
DROP TABLE IF EXISTS ostiary_team_members;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_audit_log",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ostiary_audit_log (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    requirement     TEXT NOT NULL,
    status          TEXT NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    matched         TEXT NOT NULL DEFAULT '',
    match_type      TEXT NOT NULL DEFAULT '',
    missing         TEXT NOT NULL DEFAULT '',
    eval_time_ns    BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ostiary_audit_user ON ostiary_audit_log (user_id);
CREATE INDEX IF NOT EXISTS idx_ostiary_audit_status ON ostiary_audit_log (status);
CREATE INDEX IF NOT EXISTS idx_ostiary_audit_created ON ostiary_audit_log (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ostiary_audit_log`)
				return err
			},
		},
	)
}
