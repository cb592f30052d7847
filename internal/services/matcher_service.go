package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	resp "tripflow/internal/models/response_models"
	"tripflow/pkg/utils"
)

type MatcherServiceInterface interface {
	Match(ctx context.Context, destination, preferences string, count int) ([]resp.POI, error)
}

type MatcherService struct {
	embedder utils.EmbeddingClientInterface
	index    VectorIndex
}

func NewMatcherService(embedder utils.EmbeddingClientInterface, index VectorIndex) *MatcherService {
	return &MatcherService{embedder: embedder, index: index}
}

// Match returns the count POIs of the destination nearest to the preference text.
func (m *MatcherService) Match(ctx context.Context, destination, preferences string, count int) ([]resp.POI, error) {
	if strings.TrimSpace(preferences) == "" {
		return nil, utils.ErrMissingPreferences
	}
	if count <= 0 {
		count = 10
	}
	vec, err := m.embedder.GetEmbedding(ctx, preferences)
	if err != nil {
		return nil, fmt.Errorf("embed preferences: %w", err)
	}
	pois, err := m.index.Query(ctx, DestinationKey(destination), vec, count)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("destination", destination).Int("matched", len(pois)).Msg("semantic match done")
	return pois, nil
}

// SelectAttractions keeps the semantic matches when there are enough of them for the trip,
// otherwise it uses every researched attraction.
func SelectAttractions(matched, researched []resp.POI, days int) ([]resp.POI, bool) {
	if len(matched) >= 2*days {
		return matched, false
	}
	return researched, true
}
