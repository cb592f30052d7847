package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"tripflow/internal/models/db_models"
	resp "tripflow/internal/models/response_models"
	"tripflow/internal/repositories"
	"tripflow/pkg/utils"
)

const (
	poiDescriptionLimit = 500
	poiAddressLimit     = 200
)

type VectorRecord struct {
	Destination string
	POI         resp.POI
	Vector      pgvector.Vector
}

// VectorIndex stores POI embeddings and answers nearest-neighbour queries within a destination.
type VectorIndex interface {
	Upsert(ctx context.Context, records []VectorRecord) error
	Query(ctx context.Context, destination string, vector pgvector.Vector, k int) ([]resp.POI, error)
}

// PgVectorIndex is the pgvector-backed index.
type PgVectorIndex struct {
	repo repositories.IPoiEmbededRepository
}

func NewPgVectorIndex(repo repositories.IPoiEmbededRepository) *PgVectorIndex {
	return &PgVectorIndex{repo: repo}
}

func (p *PgVectorIndex) Upsert(ctx context.Context, records []VectorRecord) error {
	rows := make([]db_models.PoiEmbedding, 0, len(records))
	for _, r := range records {
		rows = append(rows, db_models.PoiEmbedding{
			PoiID:        r.POI.ID,
			Destination:  r.Destination,
			Name:         r.POI.Name,
			Kind:         r.POI.Kind,
			Description:  utils.Truncate(r.POI.Description, poiDescriptionLimit),
			Address:      utils.Truncate(r.POI.Address, poiAddressLimit),
			Latitude:     r.POI.Latitude,
			Longitude:    r.POI.Longitude,
			Rating:       r.POI.Rating,
			Cost:         r.POI.Cost,
			VisitMinutes: r.POI.VisitMinutes,
			Tags:         pq.StringArray(r.POI.Tags),
			Embedding:    r.Vector,
		})
	}
	if err := p.repo.UpsertPoiEmbeddings(ctx, rows); err != nil {
		return fmt.Errorf("upsert poi embeddings: %w", err)
	}
	return nil
}

func (p *PgVectorIndex) Query(ctx context.Context, destination string, vector pgvector.Vector, k int) ([]resp.POI, error) {
	rows, err := p.repo.GetListOfPoiEmbededByVector(ctx, destination, vector, k)
	if err != nil {
		return nil, fmt.Errorf("query poi embeddings: %w", err)
	}
	pois := make([]resp.POI, 0, len(rows))
	for _, row := range rows {
		pois = append(pois, resp.POI{
			ID:           row.PoiID,
			Name:         row.Name,
			Kind:         row.Kind,
			Latitude:     row.Latitude,
			Longitude:    row.Longitude,
			Rating:       row.Rating,
			Cost:         row.Cost,
			VisitMinutes: row.VisitMinutes,
			Tags:         []string(row.Tags),
			Description:  row.Description,
			Address:      row.Address,
		})
	}
	return pois, nil
}

// MemoryVectorIndex keeps embeddings in process memory and scans them on query.
type MemoryVectorIndex struct {
	mu      sync.RWMutex
	records map[string]VectorRecord
}

func NewMemoryVectorIndex() *MemoryVectorIndex {
	return &MemoryVectorIndex{records: make(map[string]VectorRecord)}
}

func (m *MemoryVectorIndex) Upsert(_ context.Context, records []VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		r.POI.Description = utils.Truncate(r.POI.Description, poiDescriptionLimit)
		r.POI.Address = utils.Truncate(r.POI.Address, poiAddressLimit)
		m.records[r.POI.ID] = r
	}
	return nil
}

func (m *MemoryVectorIndex) Query(_ context.Context, destination string, vector pgvector.Vector, k int) ([]resp.POI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		poi   resp.POI
		score float64
	}
	q := vector.Slice()
	var hits []scored
	for _, r := range m.records {
		if r.Destination != destination {
			continue
		}
		hits = append(hits, scored{poi: r.POI, score: utils.CosineSimilarity(q, r.Vector.Slice())})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score == hits[j].score {
			return hits[i].poi.ID < hits[j].poi.ID
		}
		return hits[i].score > hits[j].score
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	out := make([]resp.POI, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.poi)
	}
	return out, nil
}

func (m *MemoryVectorIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
