package proposal

import (
	"context"
	"time"
)

// Filter selects proposals for listing. Zero-value fields are
// ignored.
type Filter struct {
	// User filters by mailbox owner.
	User string

	// Status filters by lifecycle state.
	Status Status

	// PolicyID filters by originating policy.
	PolicyID string

	// Limit caps results. Zero means the store default.
	Limit int
}

// Store persists proposals. Proposals are never deleted; terminal
// states end the lifecycle but the row stays for audit.
//
// Transition is the only mutation path after Create. It performs a
// check-then-set: the write happens only if the proposal's current
// status equals from, inside the store's lock or transaction, so a
// double-approval race leaves one winner and one TransitionError.
type Store interface {
	// Create persists a new proposal. The store assigns ID and, when
	// zero, CreatedAt; Status is forced to pending.
	Create(ctx context.Context, p *ProposedAction) error

	// Get returns a proposal by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*ProposedAction, error)

	// List returns proposals matching the filter, newest first.
	List(ctx context.Context, f *Filter) ([]*ProposedAction, error)

	// Transition moves a proposal from one status to another. The
	// reviewer and reviewedAt are recorded on transitions out of
	// pending and ignored otherwise. Returns the updated proposal,
	// a *TransitionError when the edge is illegal or the current
	// status is not from, or ErrNotFound.
	Transition(ctx context.Context, id string, from, to Status, reviewer string, reviewedAt time.Time) (*ProposedAction, error)

	// Close releases backend resources.
	Close() error
}
