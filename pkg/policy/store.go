package policy

import "context"

// Store persists policies and their per-user decision statistics.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save creates or updates a policy. The policy is validated first;
	// nothing is written on validation failure. Name uniqueness is
	// enforced across the store.
	Save(ctx context.Context, p *Policy) error

	// Get returns a policy by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Policy, error)

	// GetByName returns a policy by its unique name.
	GetByName(ctx context.Context, name string) (*Policy, error)

	// List returns all policies ordered by ascending priority (name as
	// tiebreak, so ordering is deterministic).
	List(ctx context.Context) ([]*Policy, error)

	// ListEnabled returns enabled policies in evaluation order.
	ListEnabled(ctx context.Context) ([]*Policy, error)

	// SetEnabled flips a policy's enabled flag.
	SetEnabled(ctx context.Context, id string, enabled bool) error

	// SetPriority changes a policy's priority.
	SetPriority(ctx context.Context, id string, priority int) error

	// Delete removes a policy. Stats rows for it are removed as well.
	Delete(ctx context.Context, id string) error

	// RecordFired increments the fired counter for (policy, user).
	RecordFired(ctx context.Context, policyID, user string) error

	// RecordReview increments the approved or rejected counter for
	// (policy, user) and recomputes the derived ratios.
	RecordReview(ctx context.Context, policyID, user string, approved bool) error

	// GetStats returns the tally for (policy, user). A pair with no
	// recorded events returns zeroed stats, not an error.
	GetStats(ctx context.Context, policyID, user string) (*Stats, error)

	// Close releases backend resources.
	Close() error
}
