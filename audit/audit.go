// Package audit defines the authorization decision audit log.
package audit

import (
	"context"
	"time"

	"github.com/ostiary/ostiary/id"
)

// Entry is a single recorded guard decision.
type Entry struct {
	ID          id.AuditID `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Requirement string     `json:"requirement" db:"requirement"`
	Status      string     `json:"status" db:"status"`
	Reason      string     `json:"reason,omitempty" db:"reason"`
	Matched     string     `json:"matched,omitempty" db:"matched"`
	MatchType   string     `json:"match_type,omitempty" db:"match_type"`
	Missing     string     `json:"missing,omitempty" db:"missing"`
	EvalTimeNs  int64      `json:"eval_time_ns" db:"eval_time_ns"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying audit entries.
type QueryFilter struct {
	UserID string     `json:"user_id,omitempty"`
	Status string     `json:"status,omitempty"`
	After  *time.Time `json:"after,omitempty"`
	Before *time.Time `json:"before,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}

// Store defines persistence operations for audit entries.
type Store interface {
	// CreateAuditEntry persists a new entry.
	CreateAuditEntry(ctx context.Context, e *Entry) error

	// ListAuditEntries returns entries matching the filter, newest first.
	ListAuditEntries(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountAuditEntries returns the number of entries matching the filter.
	CountAuditEntries(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeAuditEntries removes entries older than the given time and
	// reports how many were removed.
	PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error)
}
