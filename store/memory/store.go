// Package memory provides an in-memory store implementation, suitable
// for tests and embedded single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ostiary/ostiary"
	"github.com/ostiary/ostiary/audit"
	"github.com/ostiary/ostiary/id"
	"github.com/ostiary/ostiary/store"
)

// Store is a thread-safe in-memory implementation of store.Store and
// store.Admin. All returned slices are copies; callers may mutate them
// freely.
type Store struct {
	mu           sync.RWMutex
	permissions  map[string]store.PermissionRecord // keyed by name
	roles        map[string][]string               // role name -> permission names
	userRoles    map[string][]string               // user ID -> role names
	teamMembers  map[int64][]string                // team ID -> member user IDs
	teamManagers map[int64]string                  // team ID -> manager user ID
	auditLog     []*audit.Entry
	closed       bool
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Admin = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		permissions:  make(map[string]store.PermissionRecord),
		roles:        make(map[string][]string),
		userRoles:    make(map[string][]string),
		teamMembers:  make(map[int64][]string),
		teamManagers: make(map[int64]string),
	}
}

func (s *Store) UserPermissionNames(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}

	seen := make(map[string]struct{})
	for _, role := range s.userRoles[userID] {
		for _, p := range s.roles[role] {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) UserRoleNames(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}
	return append([]string(nil), s.userRoles[userID]...), nil
}

func (s *Store) ManagerTeamIDs(_ context.Context, userID string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}

	var teams []int64
	for teamID, manager := range s.teamManagers {
		if manager == userID {
			teams = append(teams, teamID)
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i] < teams[j] })
	return teams, nil
}

func (s *Store) PermissionRelationships(_ context.Context) ([]store.PermissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}

	out := make([]store.PermissionRecord, 0, len(s.permissions))
	for _, rec := range s.permissions {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) TeamMembers(_ context.Context, teamIDs []int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}

	seen := make(map[string]struct{})
	for _, teamID := range teamIDs {
		for _, userID := range s.teamMembers[teamID] {
			seen[userID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for userID := range seen {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) IsUserInTeams(_ context.Context, userID string, teamIDs []int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, errClosed()
	}

	for _, teamID := range teamIDs {
		for _, member := range s.teamMembers[teamID] {
			if member == userID {
				return true, nil
			}
		}
	}
	return false, nil
}

// CreateAuditEntry appends an entry to the in-memory log.
func (s *Store) CreateAuditEntry(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}

	cp := *e
	if cp.ID.IsNil() {
		cp.ID = id.NewAuditID()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.auditLog = append(s.auditLog, &cp)
	return nil
}

func (s *Store) ListAuditEntries(_ context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}

	var out []*audit.Entry
	for i := len(s.auditLog) - 1; i >= 0; i-- {
		e := s.auditLog[i]
		if !matchesFilter(e, filter) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(out) {
				return nil, nil
			}
			out = out[filter.Offset:]
		}
		if filter.Limit > 0 && filter.Limit < len(out) {
			out = out[:filter.Limit]
		}
	}
	return out, nil
}

func (s *Store) CountAuditEntries(_ context.Context, filter *audit.QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errClosed()
	}

	var n int64
	for _, e := range s.auditLog {
		if matchesFilter(e, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) PurgeAuditEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errClosed()
	}

	kept := s.auditLog[:0]
	var purged int64
	for _, e := range s.auditLog {
		if e.CreatedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	s.auditLog = kept
	return purged, nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed()
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// CreatePermission persists a permission row. An explicit parent must
// already exist.
func (s *Store) CreatePermission(_ context.Context, rec *store.PermissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}
	if rec.Name == "" {
		return fmt.Errorf("memory: permission name is required")
	}
	if rec.Parent != "" {
		if _, ok := s.permissions[rec.Parent]; !ok {
			return fmt.Errorf("memory: parent %q: %w", rec.Parent, ostiary.ErrPermissionNotFound)
		}
		for p := rec.Parent; p != ""; p = s.permissions[p].Parent {
			if p == rec.Name {
				return fmt.Errorf("memory: parent %q: %w", rec.Parent, ostiary.ErrHierarchyCycle)
			}
		}
	}

	cp := *rec
	if cp.ID.IsNil() {
		cp.ID = id.NewPermissionID()
	}
	s.permissions[cp.Name] = cp
	return nil
}

func (s *Store) DeletePermission(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}
	delete(s.permissions, name)
	return nil
}

func (s *Store) CreateRole(_ context.Context, name string, permissions []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}
	s.roles[name] = append([]string(nil), permissions...)
	return nil
}

func (s *Store) AssignRole(_ context.Context, userID, roleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}
	for _, r := range s.userRoles[userID] {
		if r == roleName {
			return nil
		}
	}
	s.userRoles[userID] = append(s.userRoles[userID], roleName)
	return nil
}

func (s *Store) RemoveRole(_ context.Context, userID, roleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}
	roles := s.userRoles[userID]
	for i, r := range roles {
		if r == roleName {
			s.userRoles[userID] = append(roles[:i], roles[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) AddTeamMember(_ context.Context, teamID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}
	for _, m := range s.teamMembers[teamID] {
		if m == userID {
			return nil
		}
	}
	s.teamMembers[teamID] = append(s.teamMembers[teamID], userID)
	return nil
}

func (s *Store) RemoveTeamMember(_ context.Context, teamID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}
	members := s.teamMembers[teamID]
	for i, m := range members {
		if m == userID {
			s.teamMembers[teamID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) SetTeamManager(_ context.Context, teamID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed()
	}
	s.teamManagers[teamID] = userID
	return nil
}

func matchesFilter(e *audit.Entry, filter *audit.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.UserID != "" && e.UserID != filter.UserID {
		return false
	}
	if filter.Status != "" && e.Status != filter.Status {
		return false
	}
	if filter.After != nil && !e.CreatedAt.After(*filter.After) {
		return false
	}
	if filter.Before != nil && !e.CreatedAt.Before(*filter.Before) {
		return false
	}
	return true
}

func errClosed() error {
	return fmt.Errorf("%w: memory store is closed", ostiary.ErrStoreUnavailable)
}
