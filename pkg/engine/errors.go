package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/fewnexus/nexus/pkg/params"
	"github.com/fewnexus/nexus/pkg/telemetry"
)

// ErrorClass represents the classification of an operation failure.
type ErrorClass string

const (
	// ErrorClassInvalid indicates rejected input. Retrying with the same
	// input fails again.
	ErrorClassInvalid ErrorClass = "invalid"

	// ErrorClassCancelled indicates the caller's context ended the
	// operation.
	ErrorClassCancelled ErrorClass = "cancelled"

	// ErrorClassInternal indicates any other failure.
	ErrorClassInternal ErrorClass = "internal"
)

// EngineError carries the operation and run context of a failure.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Operation is the engine operation that failed.
	Operation string `json:"operation"`

	// RunID identifies the failed run in logs and traces.
	RunID string `json:"run_id"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("[%s] %s (run=%s): %v", e.Class, e.Operation, e.RunID, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is matches another EngineError of the same class.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// classify maps an error onto its class.
func classify(err error) ErrorClass {
	switch {
	case params.IsValidation(err):
		return ErrorClassInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassCancelled
	default:
		return ErrorClassInternal
	}
}

// status maps an error class onto an operation status.
func (c ErrorClass) status() string {
	switch c {
	case ErrorClassInvalid:
		return telemetry.StatusInvalid
	case ErrorClassCancelled:
		return telemetry.StatusCancelled
	default:
		return telemetry.StatusFailed
	}
}

func newEngineError(operation, runID string, err error) *EngineError {
	return &EngineError{
		Class:     classify(err),
		Operation: operation,
		RunID:     runID,
		Err:       err,
	}
}

// IsInvalid returns true if the error was caused by rejected input.
func IsInvalid(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassInvalid
	}
	return params.IsValidation(err)
}

// IsCancelled returns true if the operation was cancelled.
func IsCancelled(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassCancelled
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
