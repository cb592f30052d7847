package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	resp "tripflow/internal/models/response_models"
	mem "tripflow/pkg/memcache"
	"tripflow/pkg/utils"
)

const (
	DefaultDestinationTTL = 24 * time.Hour
	dedupeRadiusMeters    = 50.0
	embedConcurrency      = 4

	defaultTimezone  = "UTC"
	defaultCurrency  = "USD"
	defaultTransport = "Public transport, taxis and walking"
)

var DefaultCostTiers = resp.CostTiers{Budget: 50, Mid: 120, Luxury: 300}

// DestinationKey normalizes a destination name the same way for the cache and the vector index.
func DestinationKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func DestinationCacheKey(name string) string {
	return "destination:" + DestinationKey(name)
}

type ResearchServiceInterface interface {
	Research(ctx context.Context, destination string) (*resp.DestinationData, error)
}

// ResearchDeps are the collaborators of ResearchService. Weather and Index may be nil.
type ResearchDeps struct {
	Cache        mem.Store
	Geocoder     GeocodingServiceInterface
	POIs         POISourceInterface
	Encyclopedia EncyclopediaServiceInterface
	Weather      WeatherServiceInterface
	LLM          utils.LLMClient
	Embedder     utils.EmbeddingClientInterface
	Index        VectorIndex
	TTL          time.Duration
	Now          func() time.Time
}

type ResearchService struct {
	deps ResearchDeps
}

func NewResearchService(deps ResearchDeps) *ResearchService {
	if deps.TTL <= 0 {
		deps.TTL = DefaultDestinationTTL
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &ResearchService{deps: deps}
}

// Research returns the destination bundle, cache first. External failures degrade the bundle
// instead of failing it.
func (s *ResearchService) Research(ctx context.Context, destination string) (*resp.DestinationData, error) {
	if DestinationKey(destination) == "" {
		return nil, utils.ErrMissingDestination
	}
	key := DestinationCacheKey(destination)
	logger := log.With().Str("destination", destination).Logger()

	if cached, found, err := s.deps.Cache.Get(ctx, key); err != nil {
		logger.Warn().Err(err).Msg("destination cache read failed")
	} else if found {
		var data resp.DestinationData
		if err := json.Unmarshal(cached, &data); err == nil {
			logger.Debug().Msg("destination cache hit")
			return &data, nil
		}
		logger.Warn().Msg("discarding undecodable cache entry")
	}

	data := s.fetch(ctx, destination)

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode destination data: %w", err)
	}
	if err := s.deps.Cache.Set(ctx, key, payload, s.deps.TTL); err != nil {
		logger.Warn().Err(err).Msg("destination cache write failed")
	}
	s.indexAttractions(ctx, DestinationKey(destination), data.Attractions)

	// return exactly what a later cache hit would return
	var out resp.DestinationData
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode destination data: %w", err)
	}
	return &out, nil
}

func (s *ResearchService) fetch(ctx context.Context, destination string) resp.DestinationData {
	logger := log.With().Str("destination", destination).Logger()
	facts := resp.DestinationFacts{City: strings.TrimSpace(destination)}

	places, err := s.deps.Geocoder.Search(ctx, destination, 1)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("geocoding failed")
	case len(places) == 0:
		logger.Warn().Msg("geocoding returned no result")
	default:
		p := places[0]
		facts.City = firstNonEmpty(p.City, p.Name, facts.City)
		facts.Country = p.Country
		facts.Region = p.Region
		facts.Latitude = p.Lat
		facts.Longitude = p.Lng
	}

	var (
		attractions, restaurants []resp.POI
		summary                  *EncyclopediaSummary
		weather                  *resp.WeatherSummary
		weatherTZ                string
	)

	g, gctx := errgroup.WithContext(ctx)
	hasCoords := facts.Latitude != 0 || facts.Longitude != 0
	if hasCoords {
		g.Go(func() error {
			list, err := s.deps.POIs.Attractions(gctx, facts.Latitude, facts.Longitude)
			if err != nil {
				logger.Warn().Err(err).Msg("attraction fetch failed")
				return nil
			}
			attractions = DedupePOIs(list, dedupeRadiusMeters)
			return nil
		})
		g.Go(func() error {
			list, err := s.deps.POIs.Restaurants(gctx, facts.Latitude, facts.Longitude)
			if err != nil {
				logger.Warn().Err(err).Msg("restaurant fetch failed")
				return nil
			}
			restaurants = DedupePOIs(list, dedupeRadiusMeters)
			return nil
		})
		if s.deps.Weather != nil {
			g.Go(func() error {
				w, tz, err := s.deps.Weather.Forecast(gctx, facts.Latitude, facts.Longitude)
				if err != nil {
					logger.Warn().Err(err).Msg("weather fetch failed")
				}
				weather, weatherTZ = w, tz
				return nil
			})
		}
	}
	g.Go(func() error {
		sum, err := s.deps.Encyclopedia.Summary(gctx, facts.City)
		if err != nil {
			logger.Warn().Err(err).Msg("encyclopedia fetch failed")
			return nil
		}
		summary = sum
		return nil
	})
	_ = g.Wait()

	extract := ""
	if summary != nil {
		extract = summary.Extract
		facts.Population = summary.Population
	}

	transport := s.extractFacts(ctx, &facts, extract)
	if facts.Timezone == "" {
		facts.Timezone = firstNonEmpty(weatherTZ, defaultTimezone)
	}
	facts.FetchedAt = s.deps.Now().UTC().Truncate(time.Second)

	return resp.DestinationData{
		Facts:       facts,
		Attractions: attractions,
		Restaurants: restaurants,
		Transport:   transport,
		Weather:     weather,
	}
}

type factsResponse struct {
	Timezone   string          `json:"timezone"`
	Currency   string          `json:"currency"`
	Language   string          `json:"language"`
	CostTiers  *resp.CostTiers `json:"cost_tiers"`
	BestMonths []int           `json:"best_months"`
	Climate    string          `json:"climate"`
	Transport  string          `json:"transport"`
	Population int64           `json:"population"`
}

// extractFacts fills the structured facts from the LLM and applies defaults for anything missing.
func (s *ResearchService) extractFacts(ctx context.Context, facts *resp.DestinationFacts, extract string) string {
	var out factsResponse
	raw, err := s.deps.LLM.GenerateText(ctx, buildFactsPrompt(facts.City, facts.Country, extract), utils.GenerateOptions{
		Temperature:     0.2,
		MaxOutputTokens: 1024,
		JSON:            true,
	})
	if err != nil {
		log.Warn().Err(err).Str("destination", facts.City).Msg("fact extraction failed, using defaults")
	} else if err := utils.ExtractJSON(raw, &out); err != nil {
		log.Warn().Err(err).Str("destination", facts.City).Msg("fact extraction returned invalid JSON, using defaults")
		out = factsResponse{}
	}

	facts.Timezone = strings.TrimSpace(out.Timezone)
	facts.Currency = strings.ToUpper(strings.TrimSpace(out.Currency))
	if len(facts.Currency) != 3 {
		facts.Currency = defaultCurrency
	}
	facts.Language = strings.TrimSpace(out.Language)
	facts.Climate = strings.TrimSpace(out.Climate)
	facts.CostTiers = DefaultCostTiers
	if t := out.CostTiers; t != nil && t.Budget > 0 && t.Mid >= t.Budget && t.Luxury >= t.Mid {
		facts.CostTiers = *t
	}
	for _, m := range out.BestMonths {
		if m >= 1 && m <= 12 {
			facts.BestMonths = append(facts.BestMonths, m)
		}
	}
	if facts.Population == 0 && out.Population > 0 {
		facts.Population = out.Population
	}
	return firstNonEmpty(out.Transport, defaultTransport)
}

func (s *ResearchService) indexAttractions(ctx context.Context, destination string, attractions []resp.POI) {
	if s.deps.Index == nil || s.deps.Embedder == nil || len(attractions) == 0 {
		return
	}

	var (
		mu      sync.Mutex
		records = make([]VectorRecord, 0, len(attractions))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for _, poi := range attractions {
		g.Go(func() error {
			vec, err := s.deps.Embedder.GetEmbedding(gctx, POIEmbeddingText(poi))
			if err != nil {
				log.Warn().Err(err).Str("poi", poi.Name).Msg("embedding failed, skipping poi")
				return nil
			}
			mu.Lock()
			records = append(records, VectorRecord{Destination: destination, POI: poi, Vector: vec})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := s.deps.Index.Upsert(ctx, records); err != nil {
		log.Warn().Err(err).Str("destination", destination).Msg("vector index upsert failed")
	}
}

// POIEmbeddingText is the text embedded for a POI.
func POIEmbeddingText(poi resp.POI) string {
	parts := []string{poi.Name, poi.Kind}
	if len(poi.Tags) > 0 {
		parts = append(parts, strings.Join(poi.Tags, " "))
	}
	if poi.Description != "" {
		parts = append(parts, utils.Truncate(poi.Description, poiDescriptionLimit))
	}
	return strings.Join(parts, ". ")
}

// DedupePOIs drops POIs lying within radiusMeters of one already kept. Order is preserved.
func DedupePOIs(pois []resp.POI, radiusMeters float64) []resp.POI {
	out := make([]resp.POI, 0, len(pois))
	seen := make(map[string]struct{}, len(pois))
	for _, p := range pois {
		if _, dup := seen[p.ID]; dup && p.ID != "" {
			continue
		}
		near := false
		for _, kept := range out {
			if HaversineKm(p.Latitude, p.Longitude, kept.Latitude, kept.Longitude)*1000 <= radiusMeters {
				near = true
				break
			}
		}
		if near {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
