package ostiary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// BuildDataContext resolves the data-level context for a user: their role
// level and, for managers, the teams they manage. Team membership must be
// observed live, so the result is never cached across requests — but one
// already attached to the request context (via Attach) is reused for the
// same user.
//
// Role lookup order: any role named "admin" wins, then any role named
// "manager", else the default user level.
func (e *Engine) BuildDataContext(ctx context.Context, userID string) (*DataContext, error) {
	if dc, ok := DataContextFromContext(ctx); ok && dc.UserID == userID {
		return dc, nil
	}

	roles, err := e.store.UserRoleNames(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ostiary: load roles for %s: %w", userID, err)
	}

	dc := &DataContext{UserID: userID, Role: roleLevelOf(roles)}
	if dc.Role == RoleManager {
		teamIDs, err := e.store.ManagerTeamIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("ostiary: load teams for %s: %w", userID, err)
		}
		dc.TeamIDs = teamIDs
	}
	return dc, nil
}

// ScopeFor renders a data context into a declarative scope descriptor.
// Placeholders in the condition are numbered from $1 relative to the
// scope's own parameter list; BuildFilteredQuery renumbers them when
// splicing into a larger query.
func (e *Engine) ScopeFor(dc *DataContext, f *DataFilter) *Scope {
	ownerColumn := e.config.DefaultOwnerColumn
	teamColumn := ""
	tableAlias := ""
	includeOwn := e.config.includeManagerOwnData()
	if f != nil {
		if f.OwnerColumn != "" {
			ownerColumn = f.OwnerColumn
		}
		teamColumn = f.TeamColumn
		tableAlias = f.TableAlias
		if f.IncludeOwnData != nil {
			includeOwn = *f.IncludeOwnData
		}
	}
	col := ownerColumn
	teamCol := teamColumn
	if tableAlias != "" {
		col = tableAlias + "." + ownerColumn
		if teamColumn != "" {
			teamCol = tableAlias + "." + teamColumn
		}
	}

	switch dc.Role {
	case RoleAdmin:
		return &Scope{
			Condition:   "1=1",
			Params:      []any{},
			Type:        ScopeAll,
			Description: "admin: unrestricted",
		}

	case RoleManager:
		if len(dc.TeamIDs) == 0 {
			return &Scope{
				Condition:   col + " = $1",
				Params:      []any{dc.UserID},
				Type:        ScopeOwn,
				Description: "manager with no team: own data only",
			}
		}
		return e.teamScope(dc, col, teamCol, includeOwn)

	default:
		return &Scope{
			Condition:   col + " = $1",
			Params:      []any{dc.UserID},
			Type:        ScopeOwn,
			Description: "user: own data only",
		}
	}
}

// teamScope restricts rows to the manager's teams: directly on a team
// column when the queried table carries one, otherwise through the owner
// column and the team-membership relation. Optionally includes the
// manager's own rows.
func (e *Engine) teamScope(dc *DataContext, col, teamCol string, includeOwn bool) *Scope {
	placeholders := make([]string, len(dc.TeamIDs))
	params := make([]any, 0, len(dc.TeamIDs)+1)
	for i, teamID := range dc.TeamIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		params = append(params, teamID)
	}

	var condition string
	if teamCol != "" {
		condition = fmt.Sprintf("%s IN (%s)", teamCol, strings.Join(placeholders, ", "))
	} else {
		condition = fmt.Sprintf("%s IN (SELECT user_id FROM %s WHERE team_id IN (%s))",
			col, e.config.TeamMembersTable, strings.Join(placeholders, ", "))
	}
	description := "manager: team data"

	if includeOwn {
		condition = fmt.Sprintf("%s OR %s = $%d", condition, col, len(dc.TeamIDs)+1)
		params = append(params, dc.UserID)
		description = "manager: team data and own data"
	}

	return &Scope{
		Condition:   condition,
		Params:      params,
		Type:        ScopeTeam,
		Description: description,
	}
}

// CanAccessResource decides whether a user may touch one specific
// resource, given its owner and (optionally) its team.
//
// Admins always may; owners always may. A manager may when the resource's
// team is one of theirs, or when its owner is a member of one of their
// teams. That last membership lookup fails closed: a store fault there is
// logged and reported as "no access", never propagated.
func (e *Engine) CanAccessResource(ctx context.Context, userID, resourceOwnerID string, resourceTeamID *int64) (bool, error) {
	dc, err := e.BuildDataContext(ctx, userID)
	if err != nil {
		return false, err
	}

	if dc.Role == RoleAdmin {
		return true, nil
	}
	if resourceOwnerID != "" && resourceOwnerID == userID {
		return true, nil
	}
	if dc.Role != RoleManager || len(dc.TeamIDs) == 0 {
		return false, nil
	}

	if resourceTeamID != nil {
		for _, teamID := range dc.TeamIDs {
			if teamID == *resourceTeamID {
				return true, nil
			}
		}
	}

	inTeams, err := e.store.IsUserInTeams(ctx, resourceOwnerID, dc.TeamIDs)
	if err != nil {
		// Fail closed: a membership lookup fault must not grant access,
		// and this path must not surface store errors to the caller.
		e.logger.Warn("team membership lookup failed, denying",
			slog.String("user_id", userID),
			slog.String("owner_id", resourceOwnerID),
			slog.String("error", err.Error()),
		)
		return false, nil
	}
	return inTeams, nil
}

func roleLevelOf(roles []string) RoleLevel {
	for _, r := range roles {
		if strings.EqualFold(strings.TrimSpace(r), "admin") {
			return RoleAdmin
		}
	}
	for _, r := range roles {
		if strings.EqualFold(strings.TrimSpace(r), "manager") {
			return RoleManager
		}
	}
	return RoleUser
}
