package ostiary

import "testing"

func TestEvaluateExactMatch(t *testing.T) {
	res := Evaluate([]string{"users.create", "roles.read"}, "users.create")
	if !res.Granted {
		t.Fatal("expected granted")
	}
	if res.Type != MatchExact {
		t.Fatalf("expected exact match, got %s", res.Type)
	}
	if res.Matched != "users.create" {
		t.Fatalf("expected matched users.create, got %q", res.Matched)
	}
}

func TestEvaluateSuperAdmin(t *testing.T) {
	for _, grant := range []string{SuperAdminPermission, WildcardAll} {
		for _, required := range []string{"users.create", "anything.at.all", "x"} {
			res := Evaluate([]string{grant}, required)
			if !res.Granted {
				t.Fatalf("grant %q should cover %q", grant, required)
			}
			if res.Type != MatchAdmin {
				t.Fatalf("expected admin match for %q, got %s", grant, res.Type)
			}
		}
	}
}

func TestEvaluateExactBeatsAdmin(t *testing.T) {
	// Exact match has priority even when an admin grant is also held.
	res := Evaluate([]string{"system.admin", "users.read"}, "users.read")
	if res.Type != MatchExact {
		t.Fatalf("expected exact match to win, got %s", res.Type)
	}
}

func TestEvaluateCategoryWildcard(t *testing.T) {
	if !Evaluate([]string{"users.*"}, "users.delete").Granted {
		t.Fatal("users.* should cover users.delete")
	}
	if !Evaluate([]string{"users.*"}, "users.profile.read").Granted {
		t.Fatal("users.* should cover users.profile.read")
	}
	if Evaluate([]string{"users.*"}, "roles.read").Granted {
		t.Fatal("users.* must not cover roles.read")
	}
	if Evaluate([]string{"users.*"}, "usersx.delete").Granted {
		t.Fatal("users.* must not cover usersx.delete")
	}
}

func TestEvaluateSegmentWildcard(t *testing.T) {
	if !Evaluate([]string{"users.*.read"}, "users.profile.read").Granted {
		t.Fatal("users.*.read should cover users.profile.read")
	}
	if Evaluate([]string{"users.*.read"}, "users.profile.write").Granted {
		t.Fatal("users.*.read must not cover users.profile.write")
	}
	if Evaluate([]string{"users.*.read"}, "users.read").Granted {
		t.Fatal("non-trailing * matches exactly one segment")
	}
	res := Evaluate([]string{"users.*.read"}, "users.profile.read")
	if res.Type != MatchWildcard {
		t.Fatalf("expected wildcard match, got %s", res.Type)
	}
}

func TestEvaluateTrailingSegmentWildcardDepth(t *testing.T) {
	// A trailing * matches any number of remaining segments.
	if !Evaluate([]string{"users.profile.*"}, "users.profile.avatar.update").Granted {
		t.Fatal("users.profile.* should cover deeper names")
	}
	if !Evaluate([]string{"users.profile.*"}, "users.profile").Granted {
		t.Fatal("trailing * also matches zero remaining segments")
	}
}

func TestEvaluateNoMatch(t *testing.T) {
	res := Evaluate([]string{"roles.read"}, "users.create")
	if res.Granted {
		t.Fatal("expected denied")
	}
	if res.Matched != "" || res.Type != "" {
		t.Fatalf("denied result should be empty, got %+v", res)
	}
}

func TestEvaluateEmptyGrantedSet(t *testing.T) {
	if Evaluate(nil, "users.read").Granted {
		t.Fatal("empty set grants nothing")
	}
}

func TestHasAnyVacuouslyTrue(t *testing.T) {
	if !HasAny(nil, nil) {
		t.Fatal("HasAny with empty required must be true for the empty set")
	}
	if !HasAny([]string{"a.b"}, []string{}) {
		t.Fatal("HasAny with empty required must be true")
	}
}

func TestHasAny(t *testing.T) {
	granted := []string{"users.read"}
	if !HasAny(granted, []string{"roles.edit", "users.read"}) {
		t.Fatal("expected any-match")
	}
	if HasAny(granted, []string{"roles.edit", "roles.read"}) {
		t.Fatal("expected no match")
	}
}

func TestHasAllVacuouslyTrue(t *testing.T) {
	ok, missing := HasAll([]string{}, nil)
	if !ok {
		t.Fatal("HasAll with empty required must be granted")
	}
	if len(missing) != 0 {
		t.Fatalf("expected no missing permissions, got %v", missing)
	}
}

func TestHasAllReportsEveryGap(t *testing.T) {
	ok, missing := HasAll([]string{"users.read"}, []string{"users.read", "users.update", "users.delete"})
	if ok {
		t.Fatal("expected denied")
	}
	if len(missing) != 2 {
		t.Fatalf("expected both gaps reported, got %v", missing)
	}
	if missing[0] != "users.update" || missing[1] != "users.delete" {
		t.Fatalf("unexpected missing list %v", missing)
	}
}

func TestHasAllViaWildcard(t *testing.T) {
	ok, missing := HasAll([]string{"users.*"}, []string{"users.read", "users.update", "users.delete"})
	if !ok {
		t.Fatalf("users.* should satisfy all, missing %v", missing)
	}
}

func TestHasResourceGeneralPermission(t *testing.T) {
	res := HasResource([]string{"tasks.update"}, "tasks", "update", "someone-else", "me")
	if !res.Granted {
		t.Fatal("general permission should grant regardless of ownership")
	}
}

func TestHasResourceOwnVariant(t *testing.T) {
	granted := []string{"tasks.update.own"}

	res := HasResource(granted, "tasks", "update", "me", "me")
	if !res.Granted {
		t.Fatal("own variant should grant for the owner")
	}
	if res.Matched != "tasks.update.own" {
		t.Fatalf("expected own variant matched, got %q", res.Matched)
	}

	res = HasResource(granted, "tasks", "update", "someone-else", "me")
	if res.Granted {
		t.Fatal("own variant must deny cross-user access")
	}
}

func TestHasResourceEmptyOwner(t *testing.T) {
	// Without a resolvable owner the own variant never applies.
	res := HasResource([]string{"tasks.update.own"}, "tasks", "update", "", "")
	if res.Granted {
		t.Fatal("empty owner must not satisfy the own variant")
	}
}
