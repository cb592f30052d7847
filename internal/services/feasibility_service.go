package services

import (
	"fmt"
	"math"
	"time"

	"tripflow/internal/models/request_models"
	resp "tripflow/internal/models/response_models"
)

const (
	DefaultTripDays = 7
	MinTripDays     = 1
	MaxTripDays     = 30

	shortTripSuggestion = 3
	longTripSuggestion  = 14

	tierHeadroom        = 1.2
	minimumBudgetFactor = 0.7

	cruiseSpeedKmh      = 800.0
	travelOverheadHours = 3.0
	longJourneyHours    = 24.0
	longJourneyExtra    = 2

	minAttractionsForConfidence = 3
)

// RequestedDays is the inclusive length of the date range, or the default when dates are missing.
// The result is not clamped.
func RequestedDays(req request_models.TripRequest) int {
	start, okStart := req.Start()
	end, okEnd := req.End()
	if !okStart || !okEnd {
		return DefaultTripDays
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// TripDays is RequestedDays clamped to the supported range.
func TripDays(req request_models.TripRequest) int {
	return clampDays(RequestedDays(req))
}

func clampDays(d int) int {
	if d < MinTripDays {
		return MinTripDays
	}
	if d > MaxTripDays {
		return MaxTripDays
	}
	return d
}

// ValidateFeasibility checks a request against what is known about the destination.
// It never blocks on warnings alone.
func ValidateFeasibility(req request_models.TripRequest, data resp.DestinationData) resp.FeasibilityResult {
	result := resp.FeasibilityResult{
		Confidence: resp.ConfidenceHigh,
		Warnings:   []string{},
	}

	raw := RequestedDays(req)
	days := clampDays(raw)
	result.DurationDays = days
	switch {
	case raw < MinTripDays:
		result.Warnings = append(result.Warnings, "Trip duration is shorter than one day")
		result.SuggestedDuration = intPtr(shortTripSuggestion)
	case raw > MaxTripDays:
		result.Warnings = append(result.Warnings, fmt.Sprintf("Trips longer than %d days are not supported; planning %d days", MaxTripDays, MaxTripDays))
		result.SuggestedDuration = intPtr(longTripSuggestion)
	}

	travelers := req.Travelers
	if travelers < 1 {
		travelers = 1
	}
	tiers := data.Facts.CostTiers
	if tiers.Budget <= 0 || tiers.Mid <= 0 || tiers.Luxury <= 0 {
		tiers = DefaultCostTiers
	}

	tier, rate := "mid", tiers.Mid
	if req.Budget != nil && *req.Budget > 0 {
		perDay := *req.Budget / float64(days) / float64(travelers)
		tier, rate = pickCostTier(perDay, tiers)
	}
	result.CostTier = tier
	result.MinimumBudget = math.Ceil(minimumBudgetFactor * rate * float64(days) * float64(travelers))
	if req.Budget != nil && *req.Budget < result.MinimumBudget {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Budget of %.0f USD is below the suggested minimum of %.0f USD for a %s trip", *req.Budget, result.MinimumBudget, tier))
		result.SuggestedBudget = floatPtr(result.MinimumBudget)
	}

	if start, ok := req.Start(); ok && len(data.Facts.BestMonths) > 0 && !containsMonth(data.Facts.BestMonths, start.Month()) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"%s is outside the best months to visit %s", start.Month(), destinationLabel(data)))
	}

	if len(data.Attractions) < minAttractionsForConfidence {
		result.Confidence = resp.ConfidenceLow
	}

	if lat, lng, ok := ParseLatLng(req.UserLocation); ok && (data.Facts.Latitude != 0 || data.Facts.Longitude != 0) {
		km := HaversineKm(lat, lng, data.Facts.Latitude, data.Facts.Longitude)
		hours := km/cruiseSpeedKmh + travelOverheadHours
		result.DistanceKm = floatPtr(math.Round(km))
		result.TravelTimeHours = floatPtr(math.Round(hours*10) / 10)
		if hours > longJourneyHours {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"Getting there takes about %.0f hours; consider adding %d days", hours, longJourneyExtra))
			if result.SuggestedDuration == nil {
				result.SuggestedDuration = intPtr(clampDays(days + longJourneyExtra))
			}
		}
	}

	if len(result.Warnings) > 0 && result.Confidence == resp.ConfidenceHigh {
		result.Confidence = resp.ConfidenceMedium
	}
	result.Feasible = !(result.Confidence == resp.ConfidenceLow && len(result.Warnings) > 0)
	return result
}

// pickCostTier returns the cheapest tier whose rate, with headroom, covers the daily budget.
func pickCostTier(perDay float64, tiers resp.CostTiers) (string, float64) {
	switch {
	case perDay <= tiers.Budget*tierHeadroom:
		return "budget", tiers.Budget
	case perDay <= tiers.Mid*tierHeadroom:
		return "mid", tiers.Mid
	default:
		return "luxury", tiers.Luxury
	}
}

func containsMonth(months []int, m time.Month) bool {
	for _, x := range months {
		if x == int(m) {
			return true
		}
	}
	return false
}

func destinationLabel(data resp.DestinationData) string {
	if data.Facts.City != "" {
		return data.Facts.City
	}
	return "this destination"
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
