package rollout

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no bundle exists with the given ID or
// version.
var ErrNotFound = errors.New("bundle not found")

// ValidationError reports a malformed input, surfaced before any
// state changes.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// State error kinds. These are stable strings for API mapping.
const (
	KindBundleInactive   = "bundle_inactive"
	KindBundleStale      = "bundle_stale"
	KindNotIncreasing    = "promotion_not_increasing"
	KindNoRollbackTarget = "no_rollback_target"
	KindDuplicateVersion = "duplicate_version"
)

// StateError reports an illegal lifecycle operation. It is returned
// before any mutation; the stored bundles are unchanged when a caller
// sees one.
type StateError struct {
	// Kind is the stable error-kind string.
	Kind string

	// Bundle is the bundle the operation targeted.
	Bundle string

	// Message describes the refusal.
	Message string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("%s: bundle %s: %s", e.Kind, e.Bundle, e.Message)
}

func stateErr(kind, bundle, format string, args ...interface{}) *StateError {
	return &StateError{Kind: kind, Bundle: bundle, Message: fmt.Sprintf(format, args...)}
}

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("rollout storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func storageErr(backend, op string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: op, Cause: cause}
}
