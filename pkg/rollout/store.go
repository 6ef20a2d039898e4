package rollout

import (
	"context"
	"time"
)

// Store persists bundles and owns the exactly-one-active invariant.
// Activate is the only way a bundle becomes active, and it atomically
// deactivates whichever bundle held the flag before, so no observer
// ever sees two active bundles.
type Store interface {
	// Create persists a new draft bundle. The store assigns ID and
	// CreatedAt; Active and CanaryPct are forced to their draft
	// values. A version collision returns a StateError with kind
	// duplicate_version.
	Create(ctx context.Context, b *Bundle) error

	// Get returns a bundle by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Bundle, error)

	// GetByVersion returns a bundle by version, or ErrNotFound.
	GetByVersion(ctx context.Context, version string) (*Bundle, error)

	// List returns all bundles, newest created first.
	List(ctx context.Context) ([]*Bundle, error)

	// GetActive returns the active bundle, or nil when none is.
	GetActive(ctx context.Context) (*Bundle, error)

	// Activate atomically deactivates the current active bundle (if
	// any) and activates id at pct, stamping the activation
	// metadata.
	Activate(ctx context.Context, id string, pct float64, actor, approvalID string, at time.Time) (*Bundle, error)

	// Promote sets the canary percentage of an active bundle. The
	// active check happens inside the same lock or transaction as
	// the write; promoting an inactive bundle returns a StateError
	// with kind bundle_inactive.
	Promote(ctx context.Context, id string, pct float64) (*Bundle, error)

	// StampProvenance merges entries into a bundle's provenance map.
	StampProvenance(ctx context.Context, id string, entries map[string]string) error

	// Close releases backend resources.
	Close() error
}
