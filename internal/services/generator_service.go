package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"tripflow/internal/models/request_models"
	resp "tripflow/internal/models/response_models"
	"tripflow/pkg/utils"
)

type GenerateInput struct {
	Request     request_models.TripRequest
	Destination string
	Days        int
	Attractions []resp.POI
	Restaurants []resp.POI
}

type GenerateResult struct {
	Title        string         `json:"title"`
	Reasoning    string         `json:"reasoning"`
	Days         []resp.RichDay `json:"days"`
	FallbackUsed bool           `json:"fallback_used"`
}

type UpdateInput struct {
	Destination string
	Current     []resp.RichDay
	Feedback    string
	Attractions []resp.POI
	// Language the stored itinerary is written in. Empty or English needs no instruction.
	Language string
}

// UpdateResult always carries a usable itinerary. When Applied is false Days is the
// unmodified input and Error says why.
type UpdateResult struct {
	Days            []resp.RichDay      `json:"days"`
	Reasoning       string              `json:"reasoning"`
	Modifications   *resp.Modifications `json:"modifications,omitempty"`
	Applied         bool                `json:"applied"`
	DayCountChanged bool                `json:"day_count_changed"`
	Error           string              `json:"error,omitempty"`
}

type GeneratorServiceInterface interface {
	Generate(ctx context.Context, in GenerateInput) GenerateResult
	Update(ctx context.Context, in UpdateInput) UpdateResult
	SuggestDestination(ctx context.Context, preferences, userLocation string) (string, error)
}

type GeneratorService struct {
	llm utils.LLMClient
}

func NewGeneratorService(llm utils.LLMClient) *GeneratorService {
	return &GeneratorService{llm: llm}
}

var generateOptions = utils.GenerateOptions{Temperature: 0.7, MaxOutputTokens: 8192, JSON: true}

type rawDay struct {
	Day        json.RawMessage `json:"day"`
	Title      string          `json:"title"`
	Activities []resp.Activity `json:"activities"`
}

type rawItinerary struct {
	Title         string              `json:"title"`
	Reasoning     string              `json:"reasoning"`
	Days          []rawDay            `json:"days"`
	Modifications *resp.Modifications `json:"modifications"`
}

// Generate never fails: an unusable model response is replaced by a deterministic plan with
// exactly in.Days days.
func (g *GeneratorService) Generate(ctx context.Context, in GenerateInput) GenerateResult {
	in.Days = clampDays(in.Days)
	logger := log.With().Str("destination", in.Destination).Int("days", in.Days).Logger()

	raw, err := g.llm.GenerateText(ctx, buildGeneratePrompt(in, AnalyzePreferences(in.Request.Preferences)), generateOptions)
	if err != nil {
		logger.Warn().Err(err).Msg("itinerary generation failed, using fallback plan")
		return fallbackResult(in)
	}

	var parsed rawItinerary
	if err := utils.ExtractJSON(raw, &parsed); err != nil {
		logger.Warn().Err(err).Str("response", utils.Truncate(raw, 200)).Msg("itinerary response is not JSON, using fallback plan")
		return fallbackResult(in)
	}
	days, err := validateDays(parsed.Days, in.Days)
	if err != nil {
		logger.Warn().Err(err).Msg("itinerary failed validation, using fallback plan")
		return fallbackResult(in)
	}

	return GenerateResult{
		Title:     firstNonEmpty(strings.TrimSpace(parsed.Title), defaultTitle(in.Destination, in.Days)),
		Reasoning: strings.TrimSpace(parsed.Reasoning),
		Days:      days,
	}
}

func fallbackResult(in GenerateInput) GenerateResult {
	return GenerateResult{
		Title:        defaultTitle(in.Destination, in.Days),
		Reasoning:    "A balanced plan built from the best-known places in " + in.Destination,
		Days:         FallbackItinerary(in.Destination, in.Days, in.Attractions, in.Restaurants),
		FallbackUsed: true,
	}
}

func defaultTitle(destination string, days int) string {
	if days == 1 {
		return "A day in " + destination
	}
	return fmt.Sprintf("%d days in %s", days, destination)
}

// validateDays checks the structure of generated days and renumbers them 1..n in order.
// want <= 0 accepts any non-empty count.
func validateDays(raw []rawDay, want int) ([]resp.RichDay, error) {
	if len(raw) == 0 {
		return nil, utils.NewValidationError("itinerary has no days", utils.ErrInvalidAIOutput)
	}
	if want > 0 && len(raw) != want {
		return nil, utils.NewValidationError(
			fmt.Sprintf("itinerary has %d days, expected %d", len(raw), want), utils.ErrInvalidAIOutput)
	}

	days := make([]resp.RichDay, 0, len(raw))
	for i, d := range raw {
		if !isJSONNumber(d.Day) {
			return nil, utils.NewValidationError(fmt.Sprintf("day %d has no numeric day field", i+1), utils.ErrInvalidAIOutput)
		}
		title := strings.TrimSpace(d.Title)
		if title == "" {
			return nil, utils.NewValidationError(fmt.Sprintf("day %d has no title", i+1), utils.ErrInvalidAIOutput)
		}
		acts := make([]resp.Activity, 0, len(d.Activities))
		for _, a := range d.Activities {
			if !emptyActivity(a) {
				acts = append(acts, a)
			}
		}
		if len(acts) == 0 {
			return nil, utils.NewValidationError(fmt.Sprintf("day %d has no activities", i+1), utils.ErrInvalidAIOutput)
		}
		days = append(days, resp.RichDay{Day: i + 1, Title: title, Activities: acts})
	}
	return days, nil
}

func isJSONNumber(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(string(raw), 64)
	return err == nil
}

func emptyActivity(a resp.Activity) bool {
	if a.IsText() {
		return strings.TrimSpace(a.Text) == ""
	}
	return strings.TrimSpace(a.Title) == "" && strings.TrimSpace(a.Location) == "" && strings.TrimSpace(a.Description) == ""
}

// FallbackItinerary builds a plan with exactly days days: an arrival day, rotating explore,
// market and dinner themed days, and a departure day when the trip is longer than one day.
func FallbackItinerary(destination string, days int, attractions, restaurants []resp.POI) []resp.RichDay {
	days = clampDays(days)
	pick := rotation(attractions)
	eat := rotation(restaurants)

	out := make([]resp.RichDay, 0, days)
	for d := 1; d <= days; d++ {
		var day resp.RichDay
		switch {
		case d == 1:
			day = resp.RichDay{Title: "Arrival in " + destination, Activities: []resp.Activity{
				{Time: "14:00", Title: "Check in and settle", Category: "logistics", Description: "Drop the bags and get oriented"},
				poiActivity("16:00", "Stroll to", pick(), "sightseeing", destination+" city center"),
				poiActivity("19:00", "Welcome dinner at", eat(), "food", "a local restaurant"),
			}}
		case d == days:
			day = resp.RichDay{Title: "Departure", Activities: []resp.Activity{
				poiActivity("08:30", "Breakfast at", eat(), "food", "a cafe near the hotel"),
				poiActivity("10:00", "Last look at", pick(), "sightseeing", "a favourite spot"),
				{Time: "12:00", Title: "Check out and head to the airport", Category: "logistics"},
			}}
		default:
			switch (d - 2) % 3 {
			case 0:
				day = resp.RichDay{Title: "Explore " + destination, Activities: []resp.Activity{
					poiActivity("09:00", "Visit", pick(), "sightseeing", "the main sights"),
					poiActivity("12:30", "Lunch at", eat(), "food", "a local restaurant"),
					poiActivity("14:30", "Visit", pick(), "sightseeing", "a museum or landmark"),
				}}
			case 1:
				day = resp.RichDay{Title: "Markets and local life", Activities: []resp.Activity{
					{Time: "08:30", Title: "Morning at a local market", Category: "shopping", Description: "Try street snacks and browse stalls"},
					poiActivity("11:00", "Visit", pick(), "sightseeing", "a neighbourhood landmark"),
					poiActivity("13:00", "Lunch at", eat(), "food", "a local restaurant"),
				}}
			default:
				day = resp.RichDay{Title: "Culture and dinner", Activities: []resp.Activity{
					poiActivity("10:00", "Visit", pick(), "culture", "a cultural site"),
					poiActivity("15:00", "Afternoon at", pick(), "leisure", "a park or viewpoint"),
					poiActivity("19:30", "Dinner at", eat(), "food", "a well-reviewed restaurant"),
				}}
			}
		}
		day.Day = d
		out = append(out, day)
	}
	return out
}

func rotation(pois []resp.POI) func() *resp.POI {
	i := 0
	return func() *resp.POI {
		if len(pois) == 0 {
			return nil
		}
		p := pois[i%len(pois)]
		i++
		return &p
	}
}

func poiActivity(at, verb string, poi *resp.POI, category, generic string) resp.Activity {
	if poi == nil {
		return resp.Activity{Time: at, Title: verb + " " + generic, Category: category}
	}
	a := resp.Activity{
		Time:        at,
		Title:       verb + " " + poi.Name,
		Location:    poi.Name,
		Category:    category,
		Description: utils.Truncate(poi.Description, 200),
	}
	if poi.VisitMinutes > 0 {
		a.Duration = resp.FlexString(fmt.Sprintf("%d minutes", poi.VisitMinutes))
	}
	if poi.Latitude != 0 || poi.Longitude != 0 {
		a.Coordinates = &resp.Coordinates{Lat: poi.Latitude, Lng: poi.Longitude}
	}
	return a
}

var durationChangePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(\d+|a|an|one|two|three|four|five|six|seven|eight|nine|ten)[\s-]+(more\s+|extra\s+|fewer\s+|less\s+)?(days?|nights?|weeks?)\b`),
	regexp.MustCompile(`(?i)\b(extend|shorten|lengthen|add|remove|drop|cut)\b.*\b(days?|nights?|weeks?)\b`),
	regexp.MustCompile(`(?i)\b(longer|shorter)\s+(trip|stay)\b`),
}

// RequestsDurationChange reports whether the feedback asks for a different trip length.
func RequestsDurationChange(feedback string) bool {
	for _, p := range durationChangePatterns {
		if p.MatchString(feedback) {
			return true
		}
	}
	return false
}

// Update applies feedback to an itinerary. The day count is kept unless the feedback asks for
// a change and the model declares the new duration.
func (g *GeneratorService) Update(ctx context.Context, in UpdateInput) UpdateResult {
	keep := func(reason string) UpdateResult {
		log.Warn().Str("destination", in.Destination).Str("reason", reason).Msg("itinerary update rejected, keeping original")
		return UpdateResult{
			Days:      in.Current,
			Reasoning: "The itinerary was left unchanged because the edit could not be applied.",
			Error:     reason,
		}
	}

	raw, err := g.llm.GenerateText(ctx, buildUpdatePrompt(in), generateOptions)
	if err != nil {
		return keep(err.Error())
	}
	var parsed rawItinerary
	if err := utils.ExtractJSON(raw, &parsed); err != nil {
		return keep(err.Error())
	}
	days, err := validateDays(parsed.Days, 0)
	if err != nil {
		return keep(err.Error())
	}

	changed := len(days) != len(in.Current)
	if changed {
		mods := parsed.Modifications
		declared := mods != nil && mods.Duration != nil && *mods.Duration == len(days)
		if !RequestsDurationChange(in.Feedback) || !declared || len(days) > MaxTripDays {
			return keep(fmt.Sprintf("day count changed from %d to %d without an explicit request", len(in.Current), len(days)))
		}
	}

	result := UpdateResult{
		Days:            days,
		Reasoning:       strings.TrimSpace(parsed.Reasoning),
		Applied:         true,
		DayCountChanged: changed,
	}
	if parsed.Modifications != nil && !parsed.Modifications.Empty() {
		result.Modifications = parsed.Modifications
	}
	return result
}

type destinationSuggestion struct {
	Destination string `json:"destination"`
}

// SuggestDestination asks the model for a destination when the request does not name one.
func (g *GeneratorService) SuggestDestination(ctx context.Context, preferences, userLocation string) (string, error) {
	raw, err := g.llm.GenerateText(ctx, buildDestinationPrompt(preferences, userLocation),
		utils.GenerateOptions{Temperature: 0.5, MaxOutputTokens: 256, JSON: true})
	if err != nil {
		return "", utils.NewFatalError("suggest destination", fmt.Errorf("%w: %v", utils.ErrMissingDestination, err))
	}
	var out destinationSuggestion
	if err := utils.ExtractJSON(raw, &out); err != nil || strings.TrimSpace(out.Destination) == "" {
		return "", utils.NewFatalError("suggest destination", utils.ErrMissingDestination)
	}
	return strings.TrimSpace(out.Destination), nil
}

var interestKeywords = map[string][]string{
	"food":      {"food", "eat", "restaurant", "cuisine", "street food", "dining", "cafe", "coffee"},
	"culture":   {"museum", "gallery", "art", "history", "temple", "church", "culture", "heritage"},
	"nature":    {"park", "garden", "nature", "mountain", "lake", "hiking", "trek"},
	"beach":     {"beach", "sea", "island", "snorkel", "surf"},
	"shopping":  {"shopping", "market", "mall", "souvenir", "boutique"},
	"nightlife": {"nightlife", "bar", "club", "party", "live music"},
	"adventure": {"adventure", "cycling", "kayak", "climb", "dive", "zipline"},
}

var interestOrder = []string{"food", "culture", "nature", "beach", "shopping", "nightlife", "adventure"}

// AnalyzePreferences derives travel style, interests and pace from free text.
func AnalyzePreferences(preferences string) PreferenceAnalysis {
	lower := strings.ToLower(preferences)
	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	a := PreferenceAnalysis{TravelStyle: "balanced", Pace: "moderate"}
	switch {
	case containsAny("luxury", "upscale", "five-star", "5-star", "fine dining"):
		a.TravelStyle = "luxury"
	case containsAny("budget", "cheap", "backpack", "hostel", "affordable"):
		a.TravelStyle = "budget"
	case containsAny("adventure", "hiking", "trek", "outdoor"):
		a.TravelStyle = "adventure"
	case containsAny("family", "kids", "children"):
		a.TravelStyle = "family"
	}
	switch {
	case containsAny("relax", "slow", "chill", "easy", "laid-back"):
		a.Pace = "relaxed"
	case containsAny("packed", "as much as", "fast", "busy", "intense"):
		a.Pace = "fast"
	}
	for _, interest := range interestOrder {
		if containsAny(interestKeywords[interest]...) {
			a.Interests = append(a.Interests, interest)
		}
	}
	return a
}
