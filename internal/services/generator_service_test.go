package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripflow/internal/models/request_models"
	resp "tripflow/internal/models/response_models"
	"tripflow/pkg/utils"
)

func itineraryJSON(days int) string {
	type act struct {
		Time     string `json:"time"`
		Title    string `json:"title"`
		Location string `json:"location"`
	}
	type day struct {
		Day        int    `json:"day"`
		Title      string `json:"title"`
		Activities []act  `json:"activities"`
	}
	out := struct {
		Title     string `json:"title"`
		Reasoning string `json:"reasoning"`
		Days      []day  `json:"days"`
	}{Title: "Trip", Reasoning: "Fits the request"}
	for d := 1; d <= days; d++ {
		out.Days = append(out.Days, day{
			Day:        d * 10, // renumbered by the generator
			Title:      fmt.Sprintf("Day %d", d),
			Activities: []act{{Time: "09:00", Title: "Visit Museum", Location: "City Museum"}},
		})
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func generateInput(days int) GenerateInput {
	return GenerateInput{
		Request:     request_models.TripRequest{Travelers: 2, Preferences: "museums and food"},
		Destination: "Test City",
		Days:        days,
		Attractions: []resp.POI{
			{ID: "a1", Name: "City Museum", Latitude: 1, Longitude: 1},
			{ID: "a2", Name: "Old Bridge"},
		},
		Restaurants: []resp.POI{{ID: "r1", Name: "Corner Bistro"}},
	}
}

func assertContiguousDays(t *testing.T, days []resp.RichDay, want int) {
	t.Helper()
	require.Len(t, days, want)
	for i, d := range days {
		assert.Equal(t, i+1, d.Day)
		assert.NotEmpty(t, d.Title)
		assert.NotEmpty(t, d.Activities)
	}
}

func TestGenerate_ValidResponseIsRenumbered(t *testing.T) {
	llm := (&scriptedLLM{}).on(generateMarker, itineraryJSON(3))
	g := NewGeneratorService(llm)

	got := g.Generate(context.Background(), generateInput(3))

	assert.False(t, got.FallbackUsed)
	assert.Equal(t, "Trip", got.Title)
	assertContiguousDays(t, got.Days, 3)
}

func TestGenerate_FencedResponse(t *testing.T) {
	llm := (&scriptedLLM{}).on(generateMarker, "Here you go:\n```json\n"+itineraryJSON(2)+"\n```\nEnjoy!")
	g := NewGeneratorService(llm)

	got := g.Generate(context.Background(), generateInput(2))

	assert.False(t, got.FallbackUsed)
	assertContiguousDays(t, got.Days, 2)
}

func TestGenerate_WrongDayCountFallsBack(t *testing.T) {
	llm := (&scriptedLLM{}).on(generateMarker, itineraryJSON(2))
	g := NewGeneratorService(llm)

	got := g.Generate(context.Background(), generateInput(4))

	assert.True(t, got.FallbackUsed)
	assertContiguousDays(t, got.Days, 4)
}

func TestGenerate_InvalidDaysFallBack(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "not json", reply: "I cannot help with that"},
		{name: "no days", reply: `{"title":"x","days":[]}`},
		{name: "missing title", reply: `{"days":[{"day":1,"title":"","activities":["walk"]}]}`},
		{name: "string day", reply: `{"days":[{"day":"one","title":"A","activities":["walk"]}]}`},
		{name: "no activities", reply: `{"days":[{"day":1,"title":"A","activities":[]}]}`},
		{name: "blank activities", reply: `{"days":[{"day":1,"title":"A","activities":["  ", {}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGeneratorService((&scriptedLLM{}).on(generateMarker, tt.reply))
			got := g.Generate(context.Background(), generateInput(1))
			assert.True(t, got.FallbackUsed)
			assertContiguousDays(t, got.Days, 1)
		})
	}
}

func TestGenerate_DayCountHoldsForEveryDuration(t *testing.T) {
	failing := NewGeneratorService((&scriptedLLM{}).fail(generateMarker, errors.New("quota exceeded")))
	for days := MinTripDays; days <= MaxTripDays; days++ {
		good := NewGeneratorService((&scriptedLLM{}).on(generateMarker, itineraryJSON(days)))

		assertContiguousDays(t, good.Generate(context.Background(), generateInput(days)).Days, days)
		assertContiguousDays(t, failing.Generate(context.Background(), generateInput(days)).Days, days)
	}
}

func TestFallbackItinerary_Shape(t *testing.T) {
	days := FallbackItinerary("Test City", 5, generateInput(5).Attractions, nil)

	assertContiguousDays(t, days, 5)
	assert.Equal(t, "Arrival in Test City", days[0].Title)
	assert.Equal(t, "Departure", days[4].Title)
	assert.Equal(t, "Explore Test City", days[1].Title)
	assert.Equal(t, "Markets and local life", days[2].Title)
	assert.Equal(t, "Culture and dinner", days[3].Title)

	single := FallbackItinerary("Test City", 1, nil, nil)
	require.Len(t, single, 1)
	assert.Equal(t, "Arrival in Test City", single[0].Title)
}

func storedFiveDays() []resp.RichDay {
	days := make([]resp.RichDay, 0, 5)
	for d := 1; d <= 5; d++ {
		days = append(days, resp.RichDay{Day: d, Title: fmt.Sprintf("Day %d", d), Activities: []resp.Activity{{Text: "Walk"}}})
	}
	return days
}

func TestUpdate_RejectsUnrequestedDayCountChange(t *testing.T) {
	llm := (&scriptedLLM{}).on(updateMarker, itineraryJSON(4))
	g := NewGeneratorService(llm)
	current := storedFiveDays()

	got := g.Update(context.Background(), UpdateInput{Destination: "Test City", Current: current, Feedback: "more museums please"})

	assert.False(t, got.Applied)
	assert.Equal(t, current, got.Days)
	assert.Contains(t, got.Error, "from 5 to 4")
}

func TestUpdate_AcceptsRequestedDayCountChange(t *testing.T) {
	reply := `{"reasoning":"Added two days","modifications":{"duration":7},"days":[` +
		`{"day":1,"title":"A","activities":["x"]},{"day":2,"title":"B","activities":["x"]},` +
		`{"day":3,"title":"C","activities":["x"]},{"day":4,"title":"D","activities":["x"]},` +
		`{"day":5,"title":"E","activities":["x"]},{"day":6,"title":"F","activities":["x"]},` +
		`{"day":7,"title":"G","activities":["x"]}]}`
	g := NewGeneratorService((&scriptedLLM{}).on(updateMarker, reply))

	got := g.Update(context.Background(), UpdateInput{Destination: "Test City", Current: storedFiveDays(), Feedback: "add two more days at the end"})

	require.True(t, got.Applied)
	assert.True(t, got.DayCountChanged)
	assert.Len(t, got.Days, 7)
	require.NotNil(t, got.Modifications)
	assert.Equal(t, 7, *got.Modifications.Duration)
}

func TestUpdate_RequestedChangeWithoutDeclarationIsRejected(t *testing.T) {
	g := NewGeneratorService((&scriptedLLM{}).on(updateMarker, itineraryJSON(6)))

	got := g.Update(context.Background(), UpdateInput{Destination: "Test City", Current: storedFiveDays(), Feedback: "one more day please"})

	assert.False(t, got.Applied)
	assert.Len(t, got.Days, 5)
}

func TestUpdate_SameDayCountApplied(t *testing.T) {
	g := NewGeneratorService((&scriptedLLM{}).on(updateMarker, itineraryJSON(5)))

	got := g.Update(context.Background(), UpdateInput{Destination: "Test City", Current: storedFiveDays(), Feedback: "swap day 2 for a beach"})

	assert.True(t, got.Applied)
	assert.False(t, got.DayCountChanged)
	assertContiguousDays(t, got.Days, 5)
	assert.Nil(t, got.Modifications)
}

func TestUpdate_ModelFailureKeepsOriginal(t *testing.T) {
	g := NewGeneratorService((&scriptedLLM{}).fail(updateMarker, errors.New("timeout")))
	current := storedFiveDays()

	got := g.Update(context.Background(), UpdateInput{Destination: "Test City", Current: current, Feedback: "anything"})

	assert.False(t, got.Applied)
	assert.Equal(t, current, got.Days)
	assert.Equal(t, "timeout", got.Error)
}

func TestUpdate_PromptCarriesItineraryLanguage(t *testing.T) {
	llm := (&scriptedLLM{}).on(updateMarker, itineraryJSON(5))
	g := NewGeneratorService(llm)

	g.Update(context.Background(), UpdateInput{Destination: "Test City", Current: storedFiveDays(), Feedback: "plus de musées", Language: "fr"})
	g.Update(context.Background(), UpdateInput{Destination: "Test City", Current: storedFiveDays(), Feedback: "more museums", Language: "en"})

	require.Len(t, llm.calls, 2)
	assert.Contains(t, llm.calls[0], "Itinerary language: fr")
	assert.NotContains(t, llm.calls[1], "Itinerary language")
}

func TestRequestsDurationChange(t *testing.T) {
	tests := map[string]bool{
		"add two more days":            true,
		"make it 3 days":               true,
		"can we stay one extra night":  true,
		"shorten the trip by a week":   true,
		"I want a longer trip":         true,
		"more museums please":          false,
		"swap the restaurant on day 2": false,
	}
	for msg, want := range tests {
		assert.Equal(t, want, RequestsDurationChange(msg), msg)
	}
}

func TestAnalyzePreferences(t *testing.T) {
	a := AnalyzePreferences("Relaxed budget trip with street food, museums and a beach day")

	assert.Equal(t, "budget", a.TravelStyle)
	assert.Equal(t, "relaxed", a.Pace)
	assert.Equal(t, []string{"food", "culture", "beach"}, a.Interests)

	d := AnalyzePreferences("")
	assert.Equal(t, "balanced", d.TravelStyle)
	assert.Equal(t, "moderate", d.Pace)
	assert.Empty(t, d.Interests)
}

func TestSuggestDestination(t *testing.T) {
	g := NewGeneratorService((&scriptedLLM{}).on("Suggest ONE", "```json\n{\"destination\": \" Lisbon, Portugal \"}\n```"))
	dest, err := g.SuggestDestination(context.Background(), "sunny city by the sea", "")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon, Portugal", dest)

	g = NewGeneratorService((&scriptedLLM{}).on("Suggest ONE", `{"destination": ""}`))
	_, err = g.SuggestDestination(context.Background(), "anything", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrMissingDestination))
	assert.True(t, utils.IsFatal(err))
}
