package policy

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested policy does not exist.
var ErrNotFound = errors.New("policy not found")

// DuplicateNameError indicates a save would violate name uniqueness.
type DuplicateNameError struct {
	Name string
}

// Error returns the error message.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("policy name %q already exists", e.Name)
}

// StorageError wraps a backend failure with the backend and operation that
// produced it.
type StorageError struct {
	Backend string
	Op      string
	Cause   error
}

// Error returns the error message.
func (e *StorageError) Error() string {
	return fmt.Sprintf("policy storage %s/%s: %v", e.Backend, e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func storageErr(backend, op string, cause error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Cause: cause}
}
