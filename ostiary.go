// Package ostiary provides hierarchical permission matching and role-based
// data scoping for Go back-office services.
//
// The library evaluates dot-delimited, wildcard-capable permission strings
// (RBAC with category inheritance) and, for every authorized request,
// produces a data-scope descriptor that can be rendered into a parameterized
// SQL predicate for row-level filtering. It is invoked in-process by the
// surrounding HTTP layer; it defines no wire protocol of its own.
//
//	eng, err := ostiary.NewEngine(
//	    ostiary.WithStore(memStore),
//	)
//	dec, err := eng.Authorize(ostiary.WithIdentity(ctx, "user-42"), &ostiary.Requirement{
//	    Permissions: []string{"users.update"},
//	    Mode:        ostiary.ModeAny,
//	})
package ostiary

// CheckMode selects OR-semantics or AND-semantics when a requirement names
// several permissions.
type CheckMode string

const (
	// ModeAny grants if at least one listed permission is held.
	ModeAny CheckMode = "any"

	// ModeAll grants only if every listed permission is held.
	ModeAll CheckMode = "all"
)

// ResourceRequirement declares a resource-scoped check: the general
// "{Type}.{Action}" permission, falling back to "{Type}.{Action}.own"
// when the acting user owns the resource.
type ResourceRequirement struct {
	Type       string `json:"type"`
	Action     string `json:"action"`
	OwnerID    string `json:"owner_id,omitempty"`
	OwnerParam string `json:"owner_param,omitempty"`
}

// DataFilter declares how a handler's queries should be row-filtered.
//
// TeamColumn names a team reference column on the queried table itself.
// When set, the manager scope filters that column against the manager's
// team IDs directly instead of going through the membership subquery.
type DataFilter struct {
	OwnerColumn string `json:"owner_column,omitempty"`
	TeamColumn  string `json:"team_column,omitempty"`
	TableAlias  string `json:"table_alias,omitempty"`

	// IncludeOwnData overrides the engine default for whether a manager's
	// team scope also covers rows the manager owns directly.
	IncludeOwnData *bool `json:"include_own_data,omitempty"`
}

// Requirement is the declared authorization metadata for one operation.
type Requirement struct {
	Permissions []string             `json:"permissions,omitempty"`
	Mode        CheckMode            `json:"mode,omitempty"`
	Resource    *ResourceRequirement `json:"resource,omitempty"`
	DataFilter  *DataFilter          `json:"data_filter,omitempty"`
	Skip        bool                 `json:"skip,omitempty"`
}

// MatchType describes how a required permission was satisfied.
type MatchType string

const (
	// MatchExact means the required string was directly granted.
	MatchExact MatchType = "exact"

	// MatchWildcard means a wildcard pattern in the granted set covered it.
	MatchWildcard MatchType = "wildcard"

	// MatchAdmin means the super-admin override granted it.
	MatchAdmin MatchType = "admin"
)

// MatchResult is the outcome of matching one required permission against a
// granted set.
type MatchResult struct {
	Granted bool      `json:"granted"`
	Matched string    `json:"matched,omitempty"`
	Type    MatchType `json:"type,omitempty"`
}

// Status is the terminal state of an authorization check.
type Status string

const (
	// StatusAllow means the request may proceed.
	StatusAllow Status = "allow"

	// StatusForbidden means the user is identified but lacks permission.
	StatusForbidden Status = "forbidden"

	// StatusUnauthenticated means no user identity could be resolved.
	StatusUnauthenticated Status = "unauthenticated"
)

// Decision is the outcome of a guard evaluation.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`

	// Missing lists unmet permissions. Populated for ALL-mode denials;
	// ANY-mode denials report only the aggregate requirement so a caller
	// cannot enumerate which permissions are held.
	Missing []string `json:"missing,omitempty"`

	// Matched records which permission and match type satisfied the check.
	Matched *MatchResult `json:"matched,omitempty"`

	// Permissions is the user's loaded permission set (allow only).
	Permissions []string `json:"permissions,omitempty"`

	// DataContext is the resolved data-level context (allow only).
	DataContext *DataContext `json:"data_context,omitempty"`

	EvalTimeNs int64 `json:"eval_time_ns"`
}

// RoleLevel is the coarse role classification driving data scoping.
type RoleLevel string

const (
	// RoleAdmin sees all rows.
	RoleAdmin RoleLevel = "admin"

	// RoleManager sees rows owned by members of the teams they manage.
	RoleManager RoleLevel = "manager"

	// RoleUser sees only rows they own.
	RoleUser RoleLevel = "user"
)

// DataContext is the request-scoped data-level context for one user.
// It is built fresh per authorization check and never cached: team
// membership must be observed live.
type DataContext struct {
	UserID  string    `json:"user_id"`
	Role    RoleLevel `json:"role"`
	TeamIDs []int64   `json:"team_ids,omitempty"`
}

// ScopeType classifies a data scope.
type ScopeType string

const (
	// ScopeAll imposes no row restriction.
	ScopeAll ScopeType = "all"

	// ScopeTeam restricts rows to a manager's team members.
	ScopeTeam ScopeType = "team"

	// ScopeOwn restricts rows to the acting user's own.
	ScopeOwn ScopeType = "own"
)

// Scope is a declarative row-access descriptor: a SQL condition template
// with positional placeholders numbered from $1 relative to Params.
// The filter builder renumbers the template when splicing it into a
// larger query. Scopes are request-scoped and must not be cached.
type Scope struct {
	Condition   string    `json:"condition"`
	Params      []any     `json:"params"`
	Type        ScopeType `json:"type"`
	Description string    `json:"description,omitempty"`
}
