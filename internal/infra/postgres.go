package infra

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tripflow/internal/models/db_models"
	"tripflow/pkg/config"
)

func InitPostgresql(cfg *config.Config) *gorm.DB {
	connectionPool, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}

	if err := connectionPool.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		log.Error().Err(err).Msg("Error enabling pgvector extension")
	}

	if err := connectionPool.AutoMigrate(
		&db_models.Trip{},
		&db_models.WorkflowStep{},
		&db_models.PoiEmbedding{},
	); err != nil {
		log.Fatal().Err(err).Msg("Error migrating database")
	}

	return connectionPool
}

func ClosePostgresql(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Error().Err(err).Msg("Error getting database instance")
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	} else {
		log.Info().Msg("PostgreSQL database connection closed successfully")
	}
}

func StartTransaction(db *gorm.DB) *gorm.DB {
	tx := db.Begin()
	if tx.Error != nil {
		log.Error().Err(tx.Error).Msg("Error starting transaction")
	}
	return tx
}

func ReleaseTransaction(tx *gorm.DB, err error) {
	if err != nil {
		if rollbackErr := tx.Rollback().Error; rollbackErr != nil {
			log.Error().Err(rollbackErr).Msg("Error rollback transaction")
		}
		return
	}
	if commitErr := tx.Commit().Error; commitErr != nil {
		log.Error().Err(commitErr).Msg("Error committing transaction")
	}
}
