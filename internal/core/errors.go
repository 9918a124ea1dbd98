package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks client-fault input: contradictory flags, bad
	// references, non-positive values, malformed dates.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound covers both unknown ids and ids owned by another user.
	ErrNotFound = errors.New("transaction not found")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
)

// ValidationError names the offending field. It matches ErrValidation via errors.Is.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a client-fault validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether err signals a missing or foreign transaction.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
