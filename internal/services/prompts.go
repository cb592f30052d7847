package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"tripflow/internal/models/request_models"
	resp "tripflow/internal/models/response_models"
	"tripflow/pkg/utils"
)

// PreferenceAnalysis summarizes free-text preferences for the generator prompt.
type PreferenceAnalysis struct {
	TravelStyle string   `json:"travel_style"`
	Interests   []string `json:"interests"`
	Pace        string   `json:"pace"`
}

func buildFactsPrompt(city, country, extract string) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("You are a travel research assistant. Provide structured facts about %s", city))
	if country != "" {
		prompt.WriteString(fmt.Sprintf(", %s", country))
	}
	prompt.WriteString(".\n\n")
	if extract != "" {
		prompt.WriteString("Reference summary:\n")
		prompt.WriteString(utils.Truncate(extract, 1500))
		prompt.WriteString("\n\n")
	}

	prompt.WriteString("CRITICAL REQUIREMENTS:\n")
	prompt.WriteString("1. cost_tiers are typical DAILY costs per person in USD (lodging, food, local transport)\n")
	prompt.WriteString("2. best_months are month numbers 1-12\n")
	prompt.WriteString("3. timezone is an IANA name, currency an ISO 4217 code\n")
	prompt.WriteString("4. Return ONLY valid JSON, no extra text\n\n")

	prompt.WriteString("Return JSON in this EXACT format:\n")
	prompt.WriteString(`{
  "timezone": "Europe/Paris",
  "currency": "EUR",
  "language": "French",
  "cost_tiers": {"budget": 60, "mid": 150, "luxury": 400},
  "best_months": [4, 5, 6, 9, 10],
  "climate": "Short description of the climate",
  "transport": "How visitors usually get around",
  "population": 2100000
}`)
	return prompt.String()
}

func buildDestinationPrompt(preferences, userLocation string) string {
	var prompt strings.Builder

	prompt.WriteString("Suggest ONE travel destination city for this traveler.\n\n")
	prompt.WriteString(fmt.Sprintf("Traveler preferences: %s\n", preferences))
	if userLocation != "" {
		prompt.WriteString(fmt.Sprintf("Traveler is currently near: %s\n", userLocation))
	}
	prompt.WriteString("\nReturn ONLY valid JSON in this EXACT format:\n")
	prompt.WriteString(`{"destination": "City, Country"}`)
	return prompt.String()
}

func poiReferenceLines(pois []resp.POI, limit int) []string {
	lines := make([]string, 0, len(pois))
	for i, poi := range pois {
		if limit > 0 && i >= limit {
			break
		}
		line := fmt.Sprintf("%d. %s", i+1, poi.Name)
		if poi.Address != "" {
			line += fmt.Sprintf(" | Address: %s", poi.Address)
		}
		if len(poi.Tags) > 0 {
			line += fmt.Sprintf(" | Tags: %s", strings.Join(poi.Tags, ", "))
		}
		if poi.Description != "" {
			line += fmt.Sprintf(" | %s", utils.Truncate(poi.Description, 160))
		}
		lines = append(lines, line)
	}
	return lines
}

func writeRequestSummary(prompt *strings.Builder, req request_models.TripRequest, destination string, days int, analysis PreferenceAnalysis) {
	prompt.WriteString(fmt.Sprintf("Destination: %s\n", destination))
	prompt.WriteString(fmt.Sprintf("Duration: exactly %d days\n", days))
	prompt.WriteString(fmt.Sprintf("Travelers: %d\n", req.Travelers))
	if req.Budget != nil {
		prompt.WriteString(fmt.Sprintf("Total budget: %.0f USD\n", *req.Budget))
	}
	if req.StartDate != "" {
		prompt.WriteString(fmt.Sprintf("Start date: %s\n", req.StartDate))
	}
	if req.Accommodation != "" {
		prompt.WriteString(fmt.Sprintf("Accommodation: %s\n", req.Accommodation))
	}
	prompt.WriteString(fmt.Sprintf("Travel style: %s, pace: %s\n", analysis.TravelStyle, analysis.Pace))
	if len(analysis.Interests) > 0 {
		prompt.WriteString(fmt.Sprintf("Interests: %s\n", strings.Join(analysis.Interests, ", ")))
	}
	prompt.WriteString(fmt.Sprintf("User request: %s\n\n", req.Preferences))
}

const itineraryJSONShape = `{
  "title": "Short trip title",
  "reasoning": "One or two sentences on how the plan fits the traveler",
  "days": [
    {
      "day": 1,
      "title": "Theme of the day",
      "activities": [
        {
          "time": "09:00",
          "title": "Visit [Attraction Name]",
          "location": "[Attraction Name]",
          "duration": "2 hours",
          "cost": 15,
          "category": "sightseeing",
          "description": "What to do there"
        }
      ]
    }
  ]
}`

func buildGeneratePrompt(in GenerateInput, analysis PreferenceAnalysis) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("Create a detailed %d-day travel itinerary.\n\n", in.Days))
	writeRequestSummary(&prompt, in.Request, in.Destination, in.Days, analysis)

	prompt.WriteString("Available attractions:\n")
	for _, line := range poiReferenceLines(in.Attractions, 40) {
		prompt.WriteString(line + "\n")
	}
	prompt.WriteString("\nAvailable restaurants:\n")
	for _, line := range poiReferenceLines(in.Restaurants, 25) {
		prompt.WriteString(line + "\n")
	}

	prompt.WriteString("\nCRITICAL REQUIREMENTS:\n")
	prompt.WriteString(fmt.Sprintf("1. Generate exactly %d days, numbered 1 to %d\n", in.Days, in.Days))
	prompt.WriteString("2. Reference ONLY the attraction and restaurant names listed above, never invent new places\n")
	prompt.WriteString("3. Respect opening hours: museums after 09:00, markets in the morning, nightlife after 19:00\n")
	prompt.WriteString("4. Include lunch around 12:00-14:00 and dinner around 18:30-21:00 at listed restaurants\n")
	prompt.WriteString("5. Group nearby places on the same day and leave realistic travel time between them\n")
	prompt.WriteString("6. Every day needs a title and at least 3 activities\n")
	prompt.WriteString("7. Return ONLY valid JSON, no extra text\n\n")

	prompt.WriteString("Return JSON in this EXACT format:\n")
	prompt.WriteString(itineraryJSONShape)
	return prompt.String()
}

func buildUpdatePrompt(in UpdateInput) string {
	var prompt strings.Builder
	current, _ := json.MarshalIndent(in.Current, "", "  ")

	prompt.WriteString("You are editing an existing travel itinerary based on traveler feedback.\n\n")
	prompt.WriteString(fmt.Sprintf("Destination: %s\n", in.Destination))
	prompt.WriteString(fmt.Sprintf("Current duration: %d days\n", len(in.Current)))
	prompt.WriteString(fmt.Sprintf("Traveler feedback: %s\n", in.Feedback))
	if NeedsTranslation(in.Language) {
		prompt.WriteString(fmt.Sprintf("Itinerary language: %s. Write every new or changed title and activity in %s, never in English.\n", in.Language, in.Language))
	}
	prompt.WriteString("\n")

	prompt.WriteString("Current itinerary:\n")
	prompt.Write(current)
	prompt.WriteString("\n\n")

	if len(in.Attractions) > 0 {
		prompt.WriteString("Places you may add:\n")
		for _, line := range poiReferenceLines(in.Attractions, 30) {
			prompt.WriteString(line + "\n")
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("CRITICAL REQUIREMENTS:\n")
	prompt.WriteString(fmt.Sprintf("1. Keep exactly %d days unless the feedback explicitly asks to change the trip length\n", len(in.Current)))
	prompt.WriteString("2. Keep days the feedback does not touch unchanged\n")
	prompt.WriteString("3. Report trip-level changes in \"modifications\"; use null for anything unchanged\n")
	prompt.WriteString("4. If you change the number of days, set modifications.duration to the new count\n")
	prompt.WriteString("5. Return ONLY valid JSON, no extra text\n\n")

	prompt.WriteString("Return JSON in this EXACT format:\n")
	prompt.WriteString(`{
  "reasoning": "What changed and why",
  "modifications": {"destination": null, "budget": null, "travelers": null, "preferences": null, "duration": null},
  "days": [
    {"day": 1, "title": "Theme", "activities": [{"time": "09:00", "title": "...", "location": "...", "description": "..."}]}
  ]
}`)
	return prompt.String()
}

func buildTranslatePrompt(payload []byte, lang string) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("Translate every human-readable text value in this JSON into the language with code %q.\n\n", lang))
	prompt.WriteString("CRITICAL REQUIREMENTS:\n")
	prompt.WriteString("1. Keep the JSON structure, keys, numbers and times exactly as they are\n")
	prompt.WriteString("2. Keep proper names of places recognizable\n")
	prompt.WriteString("3. Return ONLY valid JSON, no extra text\n\n")
	prompt.Write(payload)
	return prompt.String()
}
