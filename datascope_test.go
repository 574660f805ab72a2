package ostiary

import (
	"context"
	"fmt"
	"testing"
)

// scopeStore layers role and team fixtures over the inert stub.
type scopeStore struct {
	stubStore
	roles          map[string][]string
	managed        map[string][]int64
	members        map[int64][]string
	failMembership bool
}

func (s *scopeStore) UserRoleNames(_ context.Context, userID string) ([]string, error) {
	return s.roles[userID], nil
}

func (s *scopeStore) ManagerTeamIDs(_ context.Context, userID string) ([]int64, error) {
	return s.managed[userID], nil
}

func (s *scopeStore) IsUserInTeams(_ context.Context, userID string, teamIDs []int64) (bool, error) {
	if s.failMembership {
		return false, fmt.Errorf("%w: connection reset", ErrStoreUnavailable)
	}
	for _, teamID := range teamIDs {
		for _, m := range s.members[teamID] {
			if m == userID {
				return true, nil
			}
		}
	}
	return false, nil
}

func newScopeEngine(t *testing.T, st *scopeStore) *Engine {
	t.Helper()
	e, err := NewEngine(WithStore(st))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestBuildDataContextRoleLevels(t *testing.T) {
	st := &scopeStore{
		roles: map[string][]string{
			"a": {"Admin", "manager"},
			"m": {" MANAGER "},
			"u": {"support", "billing"},
		},
		managed: map[string][]int64{"m": {4, 9}},
	}
	e := newScopeEngine(t, st)
	ctx := context.Background()

	dc, err := e.BuildDataContext(ctx, "a")
	if err != nil {
		t.Fatalf("BuildDataContext: %v", err)
	}
	if dc.Role != RoleAdmin {
		t.Fatalf("expected admin, got %s", dc.Role)
	}
	if len(dc.TeamIDs) != 0 {
		t.Fatalf("admin context should not load teams, got %v", dc.TeamIDs)
	}

	dc, err = e.BuildDataContext(ctx, "m")
	if err != nil {
		t.Fatalf("BuildDataContext: %v", err)
	}
	if dc.Role != RoleManager || len(dc.TeamIDs) != 2 {
		t.Fatalf("expected manager with 2 teams, got %+v", dc)
	}

	dc, err = e.BuildDataContext(ctx, "u")
	if err != nil {
		t.Fatalf("BuildDataContext: %v", err)
	}
	if dc.Role != RoleUser {
		t.Fatalf("expected user, got %s", dc.Role)
	}
}

func TestScopeForAdmin(t *testing.T) {
	e := newScopeEngine(t, &scopeStore{})

	scope := e.ScopeFor(&DataContext{UserID: "a", Role: RoleAdmin}, nil)
	if scope.Type != ScopeAll || scope.Condition != "1=1" || len(scope.Params) != 0 {
		t.Fatalf("unexpected admin scope: %+v", scope)
	}
}

func TestScopeForUser(t *testing.T) {
	e := newScopeEngine(t, &scopeStore{})

	scope := e.ScopeFor(&DataContext{UserID: "u", Role: RoleUser}, nil)
	if scope.Type != ScopeOwn {
		t.Fatalf("expected own scope, got %+v", scope)
	}
	if scope.Condition != "user_id = $1" {
		t.Fatalf("unexpected condition %q", scope.Condition)
	}
	if len(scope.Params) != 1 || scope.Params[0] != "u" {
		t.Fatalf("unexpected params %v", scope.Params)
	}
}

func TestScopeForManagerTeams(t *testing.T) {
	e := newScopeEngine(t, &scopeStore{})
	dc := &DataContext{UserID: "m", Role: RoleManager, TeamIDs: []int64{4, 9}}

	scope := e.ScopeFor(dc, nil)
	if scope.Type != ScopeTeam {
		t.Fatalf("expected team scope, got %+v", scope)
	}
	want := "user_id IN (SELECT user_id FROM ostiary_team_members WHERE team_id IN ($1, $2)) OR user_id = $3"
	if scope.Condition != want {
		t.Fatalf("condition = %q, want %q", scope.Condition, want)
	}
	if len(scope.Params) != 3 || scope.Params[0] != int64(4) || scope.Params[1] != int64(9) || scope.Params[2] != "m" {
		t.Fatalf("unexpected params %v", scope.Params)
	}
}

func TestScopeForManagerWithoutOwnData(t *testing.T) {
	e := newScopeEngine(t, &scopeStore{})
	dc := &DataContext{UserID: "m", Role: RoleManager, TeamIDs: []int64{4}}
	off := false

	scope := e.ScopeFor(dc, &DataFilter{IncludeOwnData: &off})
	want := "user_id IN (SELECT user_id FROM ostiary_team_members WHERE team_id IN ($1))"
	if scope.Condition != want {
		t.Fatalf("condition = %q, want %q", scope.Condition, want)
	}
	if len(scope.Params) != 1 {
		t.Fatalf("unexpected params %v", scope.Params)
	}
}

func TestScopeForManagerTeamColumn(t *testing.T) {
	e := newScopeEngine(t, &scopeStore{})
	dc := &DataContext{UserID: "m", Role: RoleManager, TeamIDs: []int64{4, 9}}

	scope := e.ScopeFor(dc, &DataFilter{TeamColumn: "team_id", TableAlias: "o"})
	if scope.Type != ScopeTeam {
		t.Fatalf("expected team scope, got %+v", scope)
	}
	want := "o.team_id IN ($1, $2) OR o.user_id = $3"
	if scope.Condition != want {
		t.Fatalf("condition = %q, want %q", scope.Condition, want)
	}
	if len(scope.Params) != 3 || scope.Params[0] != int64(4) || scope.Params[2] != "m" {
		t.Fatalf("unexpected params %v", scope.Params)
	}
}

func TestScopeForManagerNoTeamsFallsBackToOwn(t *testing.T) {
	e := newScopeEngine(t, &scopeStore{})
	dc := &DataContext{UserID: "m", Role: RoleManager}

	scope := e.ScopeFor(dc, nil)
	if scope.Type != ScopeOwn || scope.Condition != "user_id = $1" {
		t.Fatalf("expected own-data fallback, got %+v", scope)
	}
}

func TestScopeForColumnOverrides(t *testing.T) {
	e := newScopeEngine(t, &scopeStore{})
	dc := &DataContext{UserID: "u", Role: RoleUser}

	scope := e.ScopeFor(dc, &DataFilter{OwnerColumn: "created_by", TableAlias: "o"})
	if scope.Condition != "o.created_by = $1" {
		t.Fatalf("unexpected condition %q", scope.Condition)
	}
}

func TestScopeForIsIdempotent(t *testing.T) {
	e := newScopeEngine(t, &scopeStore{})
	dc := &DataContext{UserID: "m", Role: RoleManager, TeamIDs: []int64{4, 9}}

	first := e.ScopeFor(dc, nil)
	second := e.ScopeFor(dc, nil)
	if first.Condition != second.Condition || len(first.Params) != len(second.Params) {
		t.Fatalf("repeated calls diverged: %q vs %q", first.Condition, second.Condition)
	}
}

func TestCanAccessResource(t *testing.T) {
	st := &scopeStore{
		roles: map[string][]string{
			"a": {"admin"},
			"m": {"manager"},
			"u": {"user"},
		},
		managed: map[string][]int64{"m": {1}},
		members: map[int64][]string{1: {"u"}},
	}
	e := newScopeEngine(t, st)
	ctx := context.Background()
	team2 := int64(2)
	team1 := int64(1)

	cases := []struct {
		name            string
		userID, ownerID string
		teamID          *int64
		want            bool
	}{
		{"admin reaches anything", "a", "stranger", nil, true},
		{"owner reaches own", "u", "u", nil, true},
		{"user denied others", "u", "m", nil, false},
		{"manager via resource team", "m", "stranger", &team1, true},
		{"manager wrong team falls to membership", "m", "u", &team2, true},
		{"manager via owner membership", "m", "u", nil, true},
		{"manager denied outside teams", "m", "stranger", nil, false},
	}
	for _, tc := range cases {
		got, err := e.CanAccessResource(ctx, tc.userID, tc.ownerID, tc.teamID)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCanAccessResourceFailsClosed(t *testing.T) {
	st := &scopeStore{
		roles:          map[string][]string{"m": {"manager"}},
		managed:        map[string][]int64{"m": {1}},
		failMembership: true,
	}
	e := newScopeEngine(t, st)

	ok, err := e.CanAccessResource(context.Background(), "m", "someone", nil)
	if err != nil {
		t.Fatalf("membership fault must not propagate, got %v", err)
	}
	if ok {
		t.Fatal("membership fault must deny, not grant")
	}
}
