package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("resource belongs to another owner")
	ErrDuplicateBudget = errors.New("a budget already exists for this category and period")
	ErrStore           = errors.New("store failure")
	ErrMissingOwner    = errors.New("missing owner")
	ErrUnknownStrategy = errors.New("unknown query strategy")
)

// ValidationError reports a missing or malformed input field. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError wraps a failure of the underlying store. It matches ErrStore
// under errors.Is and unwraps to the adapter's error.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}
