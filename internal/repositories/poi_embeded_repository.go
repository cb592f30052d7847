package repositories

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripflow/internal/models/db_models"
)

type IPoiEmbededRepository interface {
	UpsertPoiEmbeddings(ctx context.Context, rows []db_models.PoiEmbedding) error
	// GetListOfPoiEmbededByVector returns the limit rows of destination closest to vector by cosine distance.
	GetListOfPoiEmbededByVector(ctx context.Context, destination string, vector pgvector.Vector, limit int) ([]db_models.PoiEmbedding, error)
}

type PoiEmbededRepository struct {
	db *gorm.DB
}

func NewPoiEmbededRepository(db *gorm.DB) IPoiEmbededRepository {
	return &PoiEmbededRepository{
		db: db,
	}
}

func (p *PoiEmbededRepository) UpsertPoiEmbeddings(ctx context.Context, rows []db_models.PoiEmbedding) error {
	if len(rows) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "poi_id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 100).Error
}

func (p *PoiEmbededRepository) GetListOfPoiEmbededByVector(ctx context.Context, destination string, vector pgvector.Vector, limit int) ([]db_models.PoiEmbedding, error) {
	var results []db_models.PoiEmbedding

	err := p.db.WithContext(ctx).
		Where("destination = ?", destination).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{vector}},
		}).
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
