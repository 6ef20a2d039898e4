package settings

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Settings is the singleton runtime control row. It is lazily created
// with safe defaults on first read: no canary traffic and the kill
// switch engaged, so a fresh deployment takes no automated action
// until an operator opts in.
type Settings struct {
	// CanaryPct is the percentage of traffic routed to the canary
	// bundle, in [0, 100].
	CanaryPct float64 `json:"canary_pct"`

	// KillSwitch disables all automated action execution while true.
	// It is sticky: once set by a rollback it stays set until an
	// operator explicitly clears it.
	KillSwitch bool `json:"kill_switch"`

	// FeatureFlags holds named boolean toggles.
	FeatureFlags map[string]bool `json:"feature_flags,omitempty"`

	// UpdatedBy identifies the last writer ("detector", "operator",
	// "controller").
	UpdatedBy string `json:"updated_by"`

	// UpdateReason explains the last write.
	UpdateReason string `json:"update_reason"`

	// UpdatedAt is when the row was last written, UTC.
	UpdatedAt time.Time `json:"updated_at"`
}

// Defaults returns the settings a fresh deployment starts with.
func Defaults() *Settings {
	return &Settings{
		CanaryPct:  0,
		KillSwitch: true,
	}
}

// Validate checks field ranges.
func (s *Settings) Validate() error {
	if s.CanaryPct < 0 || s.CanaryPct > 100 {
		return fmt.Errorf("canary_pct must be in [0, 100], got %v", s.CanaryPct)
	}
	return nil
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	c := *s
	if s.FeatureFlags != nil {
		c.FeatureFlags = make(map[string]bool, len(s.FeatureFlags))
		for k, v := range s.FeatureFlags {
			c.FeatureFlags[k] = v
		}
	}
	return &c
}

// ErrUpdateAborted wraps an error returned by an Update mutation
// function. The stored settings are unchanged when it is returned.
var ErrUpdateAborted = errors.New("settings update aborted")

// Store holds the singleton settings row.
//
// Update runs fn against the current value inside the store's write
// lock or transaction, so concurrent writers serialize and each fn
// sees the previous writer's result. Writers must supply who they are
// and why they are writing; both are stamped onto the row together
// with the update time.
type Store interface {
	// Get returns the current settings, creating the default row on
	// first read.
	Get(ctx context.Context) (*Settings, error)

	// Update applies fn to a copy of the current settings and
	// persists the result. If fn returns an error the update is
	// abandoned and the error is returned wrapped in
	// ErrUpdateAborted.
	Update(ctx context.Context, updatedBy, reason string, fn func(*Settings) error) (*Settings, error)

	// Close releases backend resources.
	Close() error
}
