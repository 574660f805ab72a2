package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ostiary/ostiary"
	"github.com/ostiary/ostiary/audit"
	"github.com/ostiary/ostiary/store"
)

func TestUserPermissionNamesUnion(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateRole(ctx, "editor", []string{"posts.create", "posts.update"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := s.CreateRole(ctx, "viewer", []string{"posts.read", "posts.update"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := s.AssignRole(ctx, "u1", "editor"); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if err := s.AssignRole(ctx, "u1", "viewer"); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	perms, err := s.UserPermissionNames(ctx, "u1")
	if err != nil {
		t.Fatalf("UserPermissionNames: %v", err)
	}
	want := []string{"posts.create", "posts.read", "posts.update"}
	if len(perms) != len(want) {
		t.Fatalf("got %v, want %v", perms, want)
	}
	for i := range want {
		if perms[i] != want[i] {
			t.Fatalf("got %v, want %v", perms, want)
		}
	}
}

func TestManagerTeamIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.SetTeamManager(ctx, 7, "mgr"); err != nil {
		t.Fatalf("SetTeamManager: %v", err)
	}
	if err := s.SetTeamManager(ctx, 3, "mgr"); err != nil {
		t.Fatalf("SetTeamManager: %v", err)
	}
	if err := s.SetTeamManager(ctx, 9, "other"); err != nil {
		t.Fatalf("SetTeamManager: %v", err)
	}

	teams, err := s.ManagerTeamIDs(ctx, "mgr")
	if err != nil {
		t.Fatalf("ManagerTeamIDs: %v", err)
	}
	if len(teams) != 2 || teams[0] != 3 || teams[1] != 7 {
		t.Fatalf("got %v, want [3 7]", teams)
	}

	teams, err = s.ManagerTeamIDs(ctx, "nobody")
	if err != nil {
		t.Fatalf("ManagerTeamIDs: %v", err)
	}
	if len(teams) != 0 {
		t.Fatalf("expected no teams, got %v", teams)
	}
}

func TestTeamMembership(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, u := range []string{"a", "b"} {
		if err := s.AddTeamMember(ctx, 1, u); err != nil {
			t.Fatalf("AddTeamMember: %v", err)
		}
	}
	if err := s.AddTeamMember(ctx, 2, "c"); err != nil {
		t.Fatalf("AddTeamMember: %v", err)
	}

	members, err := s.TeamMembers(ctx, []int64{1, 2})
	if err != nil {
		t.Fatalf("TeamMembers: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("got %v, want 3 members", members)
	}

	in, err := s.IsUserInTeams(ctx, "b", []int64{1})
	if err != nil {
		t.Fatalf("IsUserInTeams: %v", err)
	}
	if !in {
		t.Fatal("b should be in team 1")
	}

	if err := s.RemoveTeamMember(ctx, 1, "b"); err != nil {
		t.Fatalf("RemoveTeamMember: %v", err)
	}
	in, err = s.IsUserInTeams(ctx, "b", []int64{1})
	if err != nil {
		t.Fatalf("IsUserInTeams: %v", err)
	}
	if in {
		t.Fatal("b should have been removed from team 1")
	}
}

func TestCreatePermissionParentMustExist(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.CreatePermission(ctx, &store.PermissionRecord{Name: "users.read", Parent: "users.manage"})
	if !errors.Is(err, ostiary.ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound for missing parent, got %v", err)
	}

	if err := s.CreatePermission(ctx, &store.PermissionRecord{Name: "users.manage"}); err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}
	if err := s.CreatePermission(ctx, &store.PermissionRecord{Name: "users.read", Parent: "users.manage"}); err != nil {
		t.Fatalf("CreatePermission with parent: %v", err)
	}

	// Reparenting users.manage under its own descendant must be rejected.
	err = s.CreatePermission(ctx, &store.PermissionRecord{Name: "users.manage", Parent: "users.read"})
	if !errors.Is(err, ostiary.ErrHierarchyCycle) {
		t.Fatalf("expected ErrHierarchyCycle, got %v", err)
	}

	recs, err := s.PermissionRelationships(ctx)
	if err != nil {
		t.Fatalf("PermissionRelationships: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[1].Name != "users.read" || recs[1].Parent != "users.manage" {
		t.Fatalf("unexpected record: %+v", recs[1])
	}
}

func TestAuditLog(t *testing.T) {
	ctx := context.Background()
	s := New()

	old := time.Now().UTC().Add(-48 * time.Hour)
	if err := s.CreateAuditEntry(ctx, &audit.Entry{UserID: "u1", Status: "forbidden", CreatedAt: old}); err != nil {
		t.Fatalf("CreateAuditEntry: %v", err)
	}
	if err := s.CreateAuditEntry(ctx, &audit.Entry{UserID: "u1", Status: "allow"}); err != nil {
		t.Fatalf("CreateAuditEntry: %v", err)
	}
	if err := s.CreateAuditEntry(ctx, &audit.Entry{UserID: "u2", Status: "allow"}); err != nil {
		t.Fatalf("CreateAuditEntry: %v", err)
	}

	entries, err := s.ListAuditEntries(ctx, &audit.QueryFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Status != "allow" {
		t.Fatalf("expected newest entry first, got %+v", entries[0])
	}
	if entries[0].ID.IsNil() {
		t.Fatal("entry should have been assigned an ID")
	}

	n, err := s.CountAuditEntries(ctx, &audit.QueryFilter{Status: "allow"})
	if err != nil {
		t.Fatalf("CountAuditEntries: %v", err)
	}
	if n != 2 {
		t.Fatalf("got count %d, want 2", n)
	}

	purged, err := s.PurgeAuditEntries(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeAuditEntries: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged %d, want 1", purged)
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := s.UserPermissionNames(ctx, "u1"); !errors.Is(err, ostiary.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ostiary.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from Ping, got %v", err)
	}
}
