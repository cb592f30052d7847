package response_models

import "time"

type CostTiers struct {
	Budget float64 `json:"budget"`
	Mid    float64 `json:"mid"`
	Luxury float64 `json:"luxury"`
}

// DestinationFacts are canonical facts about a destination. Cost tiers are daily USD per person.
type DestinationFacts struct {
	City       string    `json:"city"`
	Country    string    `json:"country"`
	Region     string    `json:"region,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Timezone   string    `json:"timezone"`
	Currency   string    `json:"currency"`
	Language   string    `json:"language"`
	CostTiers  CostTiers `json:"cost_tiers"`
	BestMonths []int     `json:"best_months"`
	Climate    string    `json:"climate"`
	Population int64     `json:"population"`
	FetchedAt  time.Time `json:"fetched_at"`
}

const (
	POIKindAttraction = "attraction"
	POIKindRestaurant = "restaurant"
)

type POI struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Rating       float64  `json:"rating"`
	Cost         float64  `json:"cost"`
	VisitMinutes int      `json:"visit_minutes"`
	Tags         []string `json:"tags"`
	Description  string   `json:"description"`
	Address      string   `json:"address"`
}

type WeatherSummary struct {
	Summary         string  `json:"summary"`
	MaxTempC        float64 `json:"max_temp_c"`
	MinTempC        float64 `json:"min_temp_c"`
	PrecipitationMM float64 `json:"precipitation_mm"`
}

// DestinationData is cached and evicted as one unit.
type DestinationData struct {
	Facts       DestinationFacts `json:"facts"`
	Attractions []POI            `json:"attractions"`
	Restaurants []POI            `json:"restaurants"`
	Transport   string           `json:"transport"`
	Weather     *WeatherSummary  `json:"weather,omitempty"`
}
