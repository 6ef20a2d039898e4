package rollout

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

var semverRe = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Bundle is an immutable, versioned snapshot of the entire rule set.
// At most one bundle is active at a time; the active bundle serves
// canary traffic at CanaryPct while the previously promoted version
// serves the rest.
type Bundle struct {
	// ID is the unique identifier, assigned by the store.
	ID string `json:"id"`

	// Version is the semantic version (MAJOR.MINOR.PATCH), unique
	// across bundles.
	Version string `json:"version"`

	// Rules is the serialized rule-set snapshot.
	Rules json.RawMessage `json:"rules,omitempty"`

	// Active marks the currently serving bundle.
	Active bool `json:"active"`

	// CanaryPct is the traffic percentage this bundle serves while
	// active, in [0, 100].
	CanaryPct float64 `json:"canary_pct"`

	// ActivatedAt and ActivatedBy record the last activation. Zero
	// for a draft that was never activated.
	ActivatedAt time.Time `json:"activated_at,omitempty"`
	ActivatedBy string    `json:"activated_by,omitempty"`

	// ApprovalID is the approval-gate token supplied at activation.
	// Activation without one is refused; the controller checks
	// presence only, legitimacy is established elsewhere.
	ApprovalID string `json:"approval_id,omitempty"`

	// Provenance carries build and rollback metadata (git commit,
	// rollback reason, ...).
	Provenance map[string]string `json:"provenance,omitempty"`

	// CreatedAt is when the bundle was created.
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks a bundle before it is stored.
func (b *Bundle) Validate() error {
	if b.Version == "" {
		return &ValidationError{Field: "version", Message: "version is required"}
	}
	if !semverRe.MatchString(b.Version) {
		return &ValidationError{Field: "version", Message: fmt.Sprintf("version %q is not MAJOR.MINOR.PATCH", b.Version)}
	}
	if b.CanaryPct < 0 || b.CanaryPct > 100 {
		return &ValidationError{Field: "canary_pct", Message: fmt.Sprintf("canary_pct %v outside [0, 100]", b.CanaryPct)}
	}
	return nil
}

// Clone returns a deep copy.
func (b *Bundle) Clone() *Bundle {
	c := *b
	if b.Rules != nil {
		c.Rules = append(json.RawMessage(nil), b.Rules...)
	}
	if b.Provenance != nil {
		c.Provenance = make(map[string]string, len(b.Provenance))
		for k, v := range b.Provenance {
			c.Provenance[k] = v
		}
	}
	return &c
}

// Status is the read-only canary projection of a bundle.
type Status struct {
	// Version and CanaryPct mirror the bundle.
	Version   string  `json:"version"`
	Active    bool    `json:"active"`
	CanaryPct float64 `json:"canary_pct"`

	// TimeActive is how long the bundle has been active.
	TimeActive time.Duration `json:"time_active"`

	// PromotionEligible is true once the bundle has soaked for the
	// minimum period and is not yet at full traffic. Gate results do
	// not factor in here; the soak window holds regardless.
	PromotionEligible bool `json:"promotion_eligible"`
}
