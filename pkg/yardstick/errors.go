package yardstick

import "fmt"

// ValidationError reports a structural problem in a condition tree. It is
// returned by Validate and ParseCondition at policy-save time; evaluation
// itself never raises it.
type ValidationError struct {
	// Path locates the offending node, e.g. "$.all[1].not".
	Path string

	// Message describes the problem.
	Message string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid condition at %s: %s", e.Path, e.Message)
}

// EvalFault is an evaluation-time fault (type mismatch, bad regex, and so
// on). Faults are absorbed inside Evaluate and turn the whole evaluation
// into a non-match; they are exported only so tests and logs can inspect
// what failed.
type EvalFault struct {
	// Op is the operator that faulted.
	Op Operator

	// Message describes the fault.
	Message string
}

// Error returns the error message.
func (e *EvalFault) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("condition operator %q: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("condition evaluation: %s", e.Message)
}

func faultf(op Operator, format string, args ...interface{}) *EvalFault {
	return &EvalFault{Op: op, Message: fmt.Sprintf(format, args...)}
}
