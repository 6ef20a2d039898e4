package audit

import (
	"time"
)

// Outcome classifies the result of an audited action.
type Outcome string

const (
	// OutcomeSuccess means the action was executed successfully.
	OutcomeSuccess Outcome = "success"

	// OutcomeFail means the action was attempted but failed.
	OutcomeFail Outcome = "fail"

	// OutcomeNoop means no action was taken (e.g. a rejection).
	OutcomeNoop Outcome = "noop"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFail, OutcomeNoop:
		return true
	}
	return false
}

// Action is one append-only audit record. Records are never updated or
// deleted individually; retention pruning removes whole age ranges.
type Action struct {
	// ID is the unique identifier, assigned by the store on append.
	ID string `json:"id"`

	// SubjectRecordID identifies the record the action applied to.
	SubjectRecordID string `json:"subject_record_id"`

	// Action is the action type that was taken (archive, label, ...).
	Action string `json:"action"`

	// Params are the action parameters as they were executed.
	Params map[string]string `json:"params,omitempty"`

	// Actor is who caused the action (reviewer identity or "system").
	Actor string `json:"actor"`

	// Outcome is success, fail, or noop.
	Outcome Outcome `json:"outcome"`

	// Error holds the failure message when Outcome is fail.
	Error string `json:"error,omitempty"`

	// Why is the human-readable rationale for the action.
	Why string `json:"why"`

	// Evidence is an optional pointer to supporting material, such as
	// a screenshot path.
	Evidence string `json:"evidence,omitempty"`

	// Timestamp is when the action was recorded, UTC.
	Timestamp time.Time `json:"timestamp"`
}

// Query filters audit actions. Zero-value fields are ignored.
type Query struct {
	// SubjectRecordID filters by subject record.
	SubjectRecordID string

	// Actor filters by actor.
	Actor string

	// Outcome filters by outcome.
	Outcome Outcome

	// Since and Until bound the timestamp range (inclusive lower,
	// exclusive upper).
	Since time.Time
	Until time.Time

	// Limit caps the number of results. Zero means the store default.
	Limit int

	// Offset skips results for pagination.
	Offset int
}
