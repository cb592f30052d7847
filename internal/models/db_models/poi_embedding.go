package db_models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PoiEmbedding is the vector index row for one attraction. The descriptive columns are
// enough to rebuild the POI without going back to research data.
type PoiEmbedding struct {
	PoiID        string          `gorm:"primaryKey;column:poi_id"`
	Destination  string          `gorm:"index"`
	Name         string
	Kind         string
	Description  string
	Address      string
	Latitude     float64
	Longitude    float64
	Rating       float64
	Cost         float64
	VisitMinutes int
	Tags         pq.StringArray  `gorm:"type:text[]"`
	Embedding    pgvector.Vector `gorm:"type:vector"`
	CreatedAt    time.Time       `gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime"`
}
