package policy

import (
	"fmt"
	"time"

	"steward-hq/steward/pkg/yardstick"
)

// ActionType is the closed set of actions a policy may propose. The
// executor boundary switches exhaustively over these values; adding a new
// action means extending both.
type ActionType string

const (
	// ActionArchive moves the record out of the inbox.
	ActionArchive ActionType = "archive"
	// ActionLabel applies a label; the label name travels in params["label"].
	ActionLabel ActionType = "label"
	// ActionDelete moves the record to trash.
	ActionDelete ActionType = "delete"
	// ActionFlag marks the record for follow-up.
	ActionFlag ActionType = "flag"
	// ActionCalendarEvent creates a calendar entry from the record.
	ActionCalendarEvent ActionType = "calendar_event"
	// ActionUnsubscribe triggers the sender's unsubscribe flow.
	ActionUnsubscribe ActionType = "unsubscribe"
)

// actionTypes is the membership set for validation.
var actionTypes = map[ActionType]bool{
	ActionArchive:       true,
	ActionLabel:         true,
	ActionDelete:        true,
	ActionFlag:          true,
	ActionCalendarEvent: true,
	ActionUnsubscribe:   true,
}

// Valid reports whether the action type is a member of the closed set.
func (a ActionType) Valid() bool { return actionTypes[a] }

// ParseActionType parses and validates an action type string.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown action type %q", s)
	}
	return a, nil
}

// Policy is a single named automation rule: when the condition matches a
// record and the computed confidence clears the threshold, the action is
// proposed. Policies are evaluated in ascending priority order and are
// mutually exclusive per record: the first match wins.
type Policy struct {
	// ID is the stable identifier (UUID).
	ID string `yaml:"id" json:"id"`

	// Name is unique across the store and is what operators refer to.
	Name string `yaml:"name" json:"name"`

	// Enabled policies participate in matching; disabled ones are kept but
	// skipped.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Priority orders evaluation; lower runs first.
	Priority int `yaml:"priority" json:"priority"`

	// Condition is the yardstick tree that must match the record context.
	Condition *yardstick.Node `yaml:"-" json:"condition"`

	// Action is the proposed action type.
	Action ActionType `yaml:"action" json:"action"`

	// Params carries action parameters (e.g. the label name).
	Params map[string]string `yaml:"params" json:"params,omitempty"`

	// ConfidenceThreshold in [0,1]; proposals below it are suppressed.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`

	// Provenance records how the policy came to be ("operator", "learned",
	// "file").
	Provenance string `yaml:"-" json:"provenance,omitempty"`

	CreatedAt time.Time `yaml:"-" json:"created_at"`
	UpdatedAt time.Time `yaml:"-" json:"updated_at"`
}

// Validate checks the policy is well formed: name present, action known,
// threshold in range, and the condition structurally valid. This is the
// save-time gate; a policy that passes Validate can still fail to match at
// evaluation time, but it can never fault the evaluator into a match.
func (p *Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	if !p.Action.Valid() {
		return fmt.Errorf("policy %q: unknown action type %q", p.Name, p.Action)
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return fmt.Errorf("policy %q: confidence_threshold %v outside [0,1]", p.Name, p.ConfidenceThreshold)
	}
	if p.Action == ActionLabel && p.Params["label"] == "" {
		return fmt.Errorf("policy %q: label action requires params.label", p.Name)
	}
	if err := yardstick.Validate(p.Condition); err != nil {
		return fmt.Errorf("policy %q: %w", p.Name, err)
	}
	return nil
}

// Clone returns a deep copy so store callers cannot mutate shared state.
func (p *Policy) Clone() *Policy {
	clone := *p
	if p.Params != nil {
		clone.Params = make(map[string]string, len(p.Params))
		for k, v := range p.Params {
			clone.Params[k] = v
		}
	}
	return &clone
}

// Stats is the per-(policy, user) decision tally. It is display and
// ranking data only; rollout gating uses windowed metrics from a separate
// store.
type Stats struct {
	PolicyID string `json:"policy_id"`
	User     string `json:"user"`

	// Fired counts emitted proposals.
	Fired int64 `json:"fired"`

	// Approved and Rejected count review outcomes.
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`

	// Precision is approved / max(1, fired), recomputed on every update.
	Precision float64 `json:"precision"`

	// Recall is a crude estimate: approvals over reviewed proposals. There
	// is no ground truth for records the policy never fired on.
	Recall float64 `json:"recall"`

	// WindowDays scopes the tally (0 means all-time).
	WindowDays int `json:"window_days"`
}

// recompute refreshes the derived ratios after a counter change.
func (s *Stats) recompute() {
	s.Precision = float64(s.Approved) / maxInt64(1, s.Fired)
	s.Recall = float64(s.Approved) / maxInt64(1, s.Approved+s.Rejected)
}

func maxInt64(min, v int64) float64 {
	if v < min {
		return float64(min)
	}
	return float64(v)
}
