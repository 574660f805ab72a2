package ostiary

import "strings"

// SuperAdminPermission grants everything regardless of the required string.
const SuperAdminPermission = "system.admin"

// WildcardAll is the bare wildcard; holding it is equivalent to holding
// SuperAdminPermission.
const WildcardAll = "*"

// Evaluate decides whether the granted set covers the required permission.
// Matching runs in priority order and short-circuits on the first hit:
// exact match, super-admin override, trailing category wildcard
// ("users.*" covers "users.delete"), then segment wildcards
// ("users.*.read" covers "users.profile.read").
func Evaluate(granted []string, required string) MatchResult {
	for _, g := range granted {
		if g == required {
			return MatchResult{Granted: true, Matched: g, Type: MatchExact}
		}
	}

	for _, g := range granted {
		if g == SuperAdminPermission || g == WildcardAll {
			return MatchResult{Granted: true, Matched: g, Type: MatchAdmin}
		}
	}

	for _, g := range granted {
		if matchCategoryWildcard(g, required) {
			return MatchResult{Granted: true, Matched: g, Type: MatchWildcard}
		}
	}

	for _, g := range granted {
		if strings.Contains(g, WildcardAll) && matchSegments(g, required) {
			return MatchResult{Granted: true, Matched: g, Type: MatchWildcard}
		}
	}

	return MatchResult{}
}

// HasAny reports whether at least one required permission is granted.
// An empty required list imposes no restriction and is vacuously true;
// endpoints that require "any of no permissions" are unrestricted on
// purpose.
func HasAny(granted, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if Evaluate(granted, r).Granted {
			return true
		}
	}
	return false
}

// HasAll reports whether every required permission is granted, and lists
// every one that is not. Each requirement is evaluated independently —
// no short-circuit — so the caller sees all gaps at once. Vacuously
// granted for an empty list.
func HasAll(granted, required []string) (bool, []string) {
	var missing []string
	for _, r := range required {
		if !Evaluate(granted, r).Granted {
			missing = append(missing, r)
		}
	}
	return len(missing) == 0, missing
}

// HasResource evaluates a resource-scoped check: the general
// "{resourceType}.{action}" permission first, then the ".own" variant,
// which additionally requires that the acting user owns the resource.
func HasResource(granted []string, resourceType, action, ownerID, userID string) MatchResult {
	general := resourceType + "." + action
	if res := Evaluate(granted, general); res.Granted {
		return res
	}
	if ownerID != "" && ownerID == userID {
		return Evaluate(granted, general+".own")
	}
	return MatchResult{}
}

// matchCategoryWildcard reports whether pattern is a trailing-wildcard
// category grant ("users.*") whose prefix dot-prefixes the required name.
// The pattern "users.*" covers "users.delete" and "users.profile.read"
// but not "usersx.delete".
func matchCategoryWildcard(pattern, required string) bool {
	if !strings.HasSuffix(pattern, ".*") {
		return false
	}
	prefix := strings.TrimSuffix(pattern, "*")
	return strings.HasPrefix(required, prefix)
}

// matchSegments matches a pattern containing "*" segments against a
// required name, segment by segment. A trailing "*" segment matches any
// remaining target segments; a non-trailing "*" matches exactly one.
func matchSegments(pattern, required string) bool {
	ps := strings.Split(pattern, ".")
	ts := strings.Split(required, ".")

	if ps[len(ps)-1] == WildcardAll {
		// Trailing wildcard: fixed segments must all line up, the rest of
		// the target may be anything (including nothing).
		if len(ts) < len(ps)-1 {
			return false
		}
		for i := 0; i < len(ps)-1; i++ {
			if ps[i] != WildcardAll && ps[i] != ts[i] {
				return false
			}
		}
		return true
	}

	if len(ps) != len(ts) {
		return false
	}
	for i := range ps {
		if ps[i] != WildcardAll && ps[i] != ts[i] {
			return false
		}
	}
	return true
}
