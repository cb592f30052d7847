package workflow

import (
	"errors"
	"fmt"
	"time"
)

// ErrSuperseded aborts an instance that a newer request for the same trip replaced.
var ErrSuperseded = errors.New("workflow instance superseded")

// SuspendedError is returned by Execute when the instance is sleeping. The engine has
// already scheduled re-invocation at Until.
type SuspendedError struct {
	Step  string
	Until time.Time
}

func (e *SuspendedError) Error() string {
	return fmt.Sprintf("workflow suspended at %s until %s", e.Step, e.Until.Format(time.RFC3339))
}

// StepError marks the step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func IsSuspended(err error) bool {
	var s *SuspendedError
	return errors.As(err, &s)
}
