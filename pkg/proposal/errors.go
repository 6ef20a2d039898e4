package proposal

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no proposal exists with the given ID.
var ErrNotFound = errors.New("proposal not found")

// TransitionError reports an illegal lifecycle transition. It is
// returned before any mutation takes place; the stored proposal is
// unchanged when a caller sees one.
type TransitionError struct {
	// ID is the proposal.
	ID string

	// From is the status the caller required, To the one requested.
	From, To Status

	// Current is the status actually found in the store.
	Current Status
}

// Kind is the stable error-kind string for API mapping.
func (e *TransitionError) Kind() string { return "invalid_transition" }

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition for proposal %s: %s -> %s (current status %s)",
		e.ID, e.From, e.To, e.Current)
}

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("proposal storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func storageErr(backend, op string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: op, Cause: cause}
}
