package audit

import (
	"context"
	"fmt"
	"time"
)

// Store is the append-only audit trail. Implementations must never
// mutate an appended action.
type Store interface {
	// Append records an action. The store assigns ID and, when zero,
	// Timestamp. Returns the stored action.
	Append(ctx context.Context, action *Action) (*Action, error)

	// Query returns actions matching the query, newest first.
	Query(ctx context.Context, q *Query) ([]*Action, error)

	// ForRecord returns all actions for one subject record, newest
	// first. Shorthand for Query with SubjectRecordID set.
	ForRecord(ctx context.Context, recordID string) ([]*Action, error)

	// Count returns the number of actions matching the query.
	Count(ctx context.Context, q *Query) (int, error)

	// Prune deletes actions older than the cutoff and returns how
	// many were removed. This is the only permitted deletion path.
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}

// validateAction checks an action before it is appended.
func validateAction(a *Action) error {
	if a == nil {
		return fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	if a.SubjectRecordID == "" {
		return fmt.Errorf("%w: subject_record_id is required", ErrInvalidAction)
	}
	if a.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidAction)
	}
	if a.Actor == "" {
		return fmt.Errorf("%w: actor is required", ErrInvalidAction)
	}
	if !a.Outcome.Valid() {
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidAction, a.Outcome)
	}
	return nil
}

// matches reports whether a satisfies the query filters, ignoring
// Limit and Offset.
func (q *Query) matches(a *Action) bool {
	if q.SubjectRecordID != "" && a.SubjectRecordID != q.SubjectRecordID {
		return false
	}
	if q.Actor != "" && a.Actor != q.Actor {
		return false
	}
	if q.Outcome != "" && a.Outcome != q.Outcome {
		return false
	}
	if !q.Since.IsZero() && a.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !a.Timestamp.Before(q.Until) {
		return false
	}
	return true
}
