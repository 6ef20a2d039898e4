package proposal

import (
	"time"

	"steward-hq/steward/pkg/policy"
)

// Status is the lifecycle state of a proposed action.
//
// The state machine is:
//
//	pending -> approved -> executed
//	                    -> failed
//	pending -> rejected
//
// rejected, executed, and failed are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExecuted Status = "executed"
	StatusFailed   Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExecuted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no transition out of s is permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusExecuted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the s -> to edge exists in the state
// machine.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusExecuted || to == StatusFailed
	}
	return false
}

// Record is a flat snapshot of one mail message, the unit the engine
// proposes actions against.
type Record struct {
	// ID uniquely identifies the message.
	ID string `json:"id"`

	// User is the mailbox owner.
	User string `json:"user"`

	// From is the sender address.
	From string `json:"from"`

	// Subject is the message subject line.
	Subject string `json:"subject"`

	// Category is the classifier's bucket for the message
	// ("promotions", "newsletters", ...). Empty when unclassified.
	Category string `json:"category,omitempty"`

	// Labels are the labels currently applied to the message.
	Labels []string `json:"labels,omitempty"`

	// ReceivedAt is when the message arrived.
	ReceivedAt time.Time `json:"received_at"`

	// ExpiresAt is the offer/event expiry extracted from the body,
	// zero when none was found.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Rationale explains why a proposal was emitted: the feature snapshot
// the confidence was computed from, a human-readable narrative, and
// the originating policy.
type Rationale struct {
	// PolicyID and PolicyName reference the policy that fired.
	PolicyID   string `json:"policy_id"`
	PolicyName string `json:"policy_name"`

	// Features are the stable categorical features of the record
	// (category, sender_domain). These are safe to turn back into
	// conditions.
	Features map[string]string `json:"features,omitempty"`

	// Metrics are the volatile numeric features (age_days,
	// expired_days) at proposal time. Never used for learning.
	Metrics map[string]float64 `json:"metrics,omitempty"`

	// Narrative is the display text shown to the reviewer.
	Narrative string `json:"narrative"`
}

// ProposedAction is a suggested action awaiting human review. It is
// created by the Engine, mutated only through lifecycle transitions,
// and never deleted.
type ProposedAction struct {
	// ID is the unique identifier, assigned by the store.
	ID string `json:"id"`

	// SubjectRecordID is the record the action applies to.
	SubjectRecordID string `json:"subject_record_id"`

	// User is the mailbox owner whose review is required.
	User string `json:"user"`

	// Action is the proposed action type.
	Action policy.ActionType `json:"action"`

	// Params are the action parameters (e.g. the label name).
	Params map[string]string `json:"params,omitempty"`

	// Confidence is the blended confidence in [0.01, 0.99].
	Confidence float64 `json:"confidence"`

	// Rationale explains the proposal.
	Rationale Rationale `json:"rationale"`

	// PolicyID is the originating policy.
	PolicyID string `json:"policy_id"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// Reviewer and ReviewedAt are set on the pending -> approved or
	// pending -> rejected transition.
	Reviewer   string    `json:"reviewer,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at,omitempty"`

	// CreatedAt is when the proposal was emitted.
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy.
func (p *ProposedAction) Clone() *ProposedAction {
	c := *p
	if p.Params != nil {
		c.Params = make(map[string]string, len(p.Params))
		for k, v := range p.Params {
			c.Params[k] = v
		}
	}
	if p.Rationale.Features != nil {
		c.Rationale.Features = make(map[string]string, len(p.Rationale.Features))
		for k, v := range p.Rationale.Features {
			c.Rationale.Features[k] = v
		}
	}
	if p.Rationale.Metrics != nil {
		c.Rationale.Metrics = make(map[string]float64, len(p.Rationale.Metrics))
		for k, v := range p.Rationale.Metrics {
			c.Rationale.Metrics[k] = v
		}
	}
	return &c
}
