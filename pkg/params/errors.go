package params

import (
	"errors"
	"strings"
)

// ValidationError aggregates every violation found in a parameter mapping.
// It is the only error kind the model raises for caller-supplied input.
type ValidationError struct {
	// Errors holds one human-readable message per violation.
	Errors []string `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid parameters: " + strings.Join(e.Errors, ", ")
}

// Is reports whether target is a ValidationError, so errors.Is works with a
// zero-value sentinel.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a validation error from the given messages.
func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: append([]string(nil), msgs...)}
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
