package response_models

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// FeasibilityResult is advisory and never persisted.
type FeasibilityResult struct {
	Feasible          bool       `json:"feasible"`
	Confidence        Confidence `json:"confidence"`
	Warnings          []string   `json:"warnings"`
	DurationDays      int        `json:"duration_days"`
	SuggestedDuration *int       `json:"suggested_duration,omitempty"`
	SuggestedBudget   *float64   `json:"suggested_budget,omitempty"`
	CostTier          string     `json:"cost_tier"`
	MinimumBudget     float64    `json:"minimum_budget"`
	DistanceKm        *float64   `json:"distance_km,omitempty"`
	TravelTimeHours   *float64   `json:"travel_time_hours,omitempty"`
}
