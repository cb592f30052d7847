package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"trip not found", fmt.Errorf("load: %w", ErrTripNotFound), true},
		{"ownership", ErrTripOwnership, true},
		{"missing destination", NewFatalError("suggest destination", ErrMissingDestination), true},
		{"transient wraps fatal sentinel", NewTransientError("llm", ErrMissingDestination), false},
		{"validation", NewValidationError("itinerary", ErrInvalidAIOutput), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsFatal(tc.err))
		})
	}
}

func TestWorkflowError_Message(t *testing.T) {
	err := NewFatalError("load trip", ErrTripNotFound)

	assert.Equal(t, "fatal_workflow: load trip: trip not found", err.Error())
	assert.ErrorIs(t, err, ErrTripNotFound)
	assert.Equal(t, "output_validation: bad days", NewValidationError("bad days", nil).Error())
}
