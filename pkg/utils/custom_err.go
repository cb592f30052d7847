package utils

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrDatabaseError          = errors.New("database error")
	ErrTripNotFound           = errors.New("trip not found")
	ErrTripOwnership          = errors.New("trip does not belong to user")
	ErrMissingDestination     = errors.New("destination could not be determined")
	ErrMissingPreferences     = errors.New("preferences are required")
	ErrUnexpectedBehaviorOfAI = errors.New("unexpected behavior of AI")
	ErrInvalidAIOutput        = errors.New("AI output failed validation")
	ErrCacheMiss              = errors.New("cache miss")
	ErrNoGeocodeResult        = errors.New("no geocode result")
)

// ErrorKind classifies failures the way the planner reacts to them.
type ErrorKind string

const (
	KindTransientExternal ErrorKind = "transient_external"
	KindOutputValidation  ErrorKind = "output_validation"
	KindFatalWorkflow     ErrorKind = "fatal_workflow"
)

// WorkflowError wraps an underlying error with its classification.
type WorkflowError struct {
	Kind  ErrorKind
	Cause string
	Err   error
}

func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Cause, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func NewFatalError(cause string, err error) *WorkflowError {
	return &WorkflowError{Kind: KindFatalWorkflow, Cause: cause, Err: err}
}

func NewTransientError(cause string, err error) *WorkflowError {
	return &WorkflowError{Kind: KindTransientExternal, Cause: cause, Err: err}
}

func NewValidationError(cause string, err error) *WorkflowError {
	return &WorkflowError{Kind: KindOutputValidation, Cause: cause, Err: err}
}

// IsFatal reports whether err must abort a workflow instance.
func IsFatal(err error) bool {
	var wErr *WorkflowError
	if errors.As(err, &wErr) {
		return wErr.Kind == KindFatalWorkflow
	}
	return errors.Is(err, ErrTripNotFound) ||
		errors.Is(err, ErrTripOwnership) ||
		errors.Is(err, ErrMissingDestination) ||
		errors.Is(err, ErrMissingPreferences)
}
