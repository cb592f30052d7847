package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	resp "tripflow/internal/models/response_models"
	mem "tripflow/pkg/memcache"
	"tripflow/pkg/utils"
)

const testCityFacts = `{"timezone":"Europe/Testville","currency":"eur","language":"Testish",` +
	`"cost_tiers":{"budget":40,"mid":100,"luxury":250},"best_months":[5,6,13],` +
	`"climate":"Mild","transport":"Trams","population":0}`

type researchFixture struct {
	cache   *mem.LocalStore
	geo     *stubGeocoder
	pois    *stubPOIs
	llm     *scriptedLLM
	index   *MemoryVectorIndex
	service *ResearchService
}

func testCityAttractions() []resp.POI {
	return []resp.POI{
		{ID: "osm:node/1", Name: "City Museum", Kind: resp.POIKindAttraction, Latitude: 10.0, Longitude: 20.0, Tags: []string{"museum"}},
		// ~11 m from the museum
		{ID: "osm:way/2", Name: "City Museum Annex", Kind: resp.POIKindAttraction, Latitude: 10.0001, Longitude: 20.0},
		{ID: "osm:node/3", Name: "Old Bridge", Kind: resp.POIKindAttraction, Latitude: 10.01, Longitude: 20.01},
		{ID: "osm:node/4", Name: "Botanic Garden", Kind: resp.POIKindAttraction, Latitude: 10.02, Longitude: 20.02, Tags: []string{"park"}},
	}
}

func newResearchFixture(llm *scriptedLLM) *researchFixture {
	f := &researchFixture{
		cache: mem.NewLocalStore(time.Hour, time.Minute),
		geo: &stubGeocoder{city: GeocodeResult{
			Name: "Test City", City: "Test City", Region: "Test Region", Country: "Testland", Lat: 10, Lng: 20,
		}},
		pois: &stubPOIs{
			attractions: testCityAttractions(),
			restaurants: []resp.POI{{ID: "osm:node/9", Name: "Corner Bistro", Kind: resp.POIKindRestaurant, Latitude: 10.005, Longitude: 20.005}},
		},
		llm:   llm,
		index: NewMemoryVectorIndex(),
	}
	f.service = NewResearchService(ResearchDeps{
		Cache:        f.cache,
		Geocoder:     f.geo,
		POIs:         f.pois,
		Encyclopedia: &stubEncyclopedia{summary: &EncyclopediaSummary{Title: "Test City", Extract: "Test City has a population of 120,000.", Population: 120000}},
		LLM:          llm,
		Embedder:     utils.NewHashEmbedder(32),
		Index:        f.index,
		Now:          func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 123, time.UTC) },
	})
	return f
}

func TestResearch_MissThenHitReturnsIdenticalBundle(t *testing.T) {
	f := newResearchFixture((&scriptedLLM{}).on(factsMarker, testCityFacts))
	ctx := context.Background()

	first, err := f.service.Research(ctx, "  Test City ")
	require.NoError(t, err)
	second, err := f.service.Research(ctx, "test city")
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.JSONEq(t, string(a), string(b))
	assert.Equal(t, 1, f.llm.callCount(factsMarker))
	assert.Equal(t, 1, f.geo.calls)

	_, found, err := f.cache.Get(ctx, "destination:test city")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestResearch_AssemblesFacts(t *testing.T) {
	f := newResearchFixture((&scriptedLLM{}).on(factsMarker, testCityFacts))

	data, err := f.service.Research(context.Background(), "Test City")
	require.NoError(t, err)

	facts := data.Facts
	assert.Equal(t, "Test City", facts.City)
	assert.Equal(t, "Testland", facts.Country)
	assert.Equal(t, "Europe/Testville", facts.Timezone)
	assert.Equal(t, "EUR", facts.Currency)
	assert.Equal(t, resp.CostTiers{Budget: 40, Mid: 100, Luxury: 250}, facts.CostTiers)
	assert.Equal(t, []int{5, 6}, facts.BestMonths)
	assert.Equal(t, int64(120000), facts.Population)
	assert.True(t, facts.FetchedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Trams", data.Transport)

	// the annex lies within 50 m of the museum
	require.Len(t, data.Attractions, 3)
	assert.Equal(t, "City Museum", data.Attractions[0].Name)
	assert.Equal(t, "Old Bridge", data.Attractions[1].Name)
	assert.Len(t, data.Restaurants, 1)

	assert.Equal(t, 3, f.index.Len())
}

func TestResearch_DefaultsWhenModelFails(t *testing.T) {
	f := newResearchFixture((&scriptedLLM{}).fail(factsMarker, errors.New("unavailable")))

	data, err := f.service.Research(context.Background(), "Test City")
	require.NoError(t, err)

	assert.Equal(t, "UTC", data.Facts.Timezone)
	assert.Equal(t, "USD", data.Facts.Currency)
	assert.Equal(t, DefaultCostTiers, data.Facts.CostTiers)
	assert.Equal(t, defaultTransport, data.Transport)
}

func TestResearch_InvalidTiersUseDefaults(t *testing.T) {
	f := newResearchFixture((&scriptedLLM{}).on(factsMarker, "```json\n{\"cost_tiers\":{\"budget\":300,\"mid\":100,\"luxury\":50}}\n```"))

	data, err := f.service.Research(context.Background(), "Test City")
	require.NoError(t, err)

	assert.Equal(t, DefaultCostTiers, data.Facts.CostTiers)
}

func TestResearch_GeocodeFailureDegrades(t *testing.T) {
	f := newResearchFixture((&scriptedLLM{}).on(factsMarker, testCityFacts))
	f.geo.err = errors.New("rate limited")

	data, err := f.service.Research(context.Background(), "Test City")
	require.NoError(t, err)

	assert.Equal(t, "Test City", data.Facts.City)
	assert.Zero(t, data.Facts.Latitude)
	assert.Empty(t, data.Attractions)
	assert.Zero(t, f.index.Len())
}

func TestResearch_EmptyDestination(t *testing.T) {
	f := newResearchFixture(&scriptedLLM{})

	_, err := f.service.Research(context.Background(), "   ")

	assert.ErrorIs(t, err, utils.ErrMissingDestination)
}

func TestDedupePOIs(t *testing.T) {
	pois := []resp.POI{
		{ID: "a", Latitude: 0, Longitude: 0.0010},
		{ID: "a", Latitude: 5, Longitude: 5},
		{ID: "b", Latitude: 0, Longitude: 0.0012}, // ~22 m from a
		{ID: "c", Latitude: 0, Longitude: 0.0020}, // ~111 m from a
	}

	got := DedupePOIs(pois, 50)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestDestinationCacheKey(t *testing.T) {
	assert.Equal(t, "destination:paris", DestinationCacheKey("  PARIS "))
	assert.Equal(t, DestinationCacheKey("Hoi An"), DestinationCacheKey("hoi an"))
}
