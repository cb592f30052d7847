package request_models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTripRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     TripRequest
		wantErr bool
	}{
		{
			name: "minimal valid",
			req:  TripRequest{Travelers: 1, Preferences: "museums"},
		},
		{
			name:    "zero travelers",
			req:     TripRequest{Travelers: 0, Preferences: "museums"},
			wantErr: true,
		},
		{
			name:    "missing preferences",
			req:     TripRequest{Travelers: 2},
			wantErr: true,
		},
		{
			name:    "end before start",
			req:     TripRequest{Travelers: 2, Preferences: "food", StartDate: "2025-06-03", EndDate: "2025-06-01"},
			wantErr: true,
		},
		{
			name: "same day trip",
			req:  TripRequest{Travelers: 2, Preferences: "food", StartDate: "2025-06-01", EndDate: "2025-06-01"},
		},
		{
			name:    "bad date format",
			req:     TripRequest{Travelers: 2, Preferences: "food", StartDate: "06/01/2025"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
