package poi_embedded_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"tripflow/internal/repositories"
	"tripflow/internal/services"
)

var Module = fx.Provide(
	provideEmbededRepo,
	provideVectorIndex)

func provideEmbededRepo(db *gorm.DB) repositories.IPoiEmbededRepository {
	return repositories.NewPoiEmbededRepository(db)
}

func provideVectorIndex(repo repositories.IPoiEmbededRepository) services.VectorIndex {
	return services.NewPgVectorIndex(repo)
}
