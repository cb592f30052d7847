package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "tripflow/internal/models/db_models"
	"tripflow/pkg/utils"
)

type TripRepository interface {
	Create(ctx context.Context, trip *dbm.Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*dbm.Trip, error)
	// Update writes the given columns only. Callers pass every field they change in one call
	// so a trip is never partially overwritten.
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

type tripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) TripRepository {
	return &tripRepository{db: db}
}

func (r *tripRepository) Create(ctx context.Context, trip *dbm.Trip) error {
	if err := r.db.WithContext(ctx).Create(trip).Error; err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

func (r *tripRepository) GetByID(ctx context.Context, id uuid.UUID) (*dbm.Trip, error) {
	var trip dbm.Trip
	err := r.db.WithContext(ctx).First(&trip, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrTripNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return &trip, nil
}

func (r *tripRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&dbm.Trip{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.ErrTripNotFound
	}
	return nil
}
