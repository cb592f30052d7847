package trip_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"tripflow/internal/repositories"
	"tripflow/internal/services"
	"tripflow/internal/workflow"
	"tripflow/pkg/config"
	mem "tripflow/pkg/memcache"
	"tripflow/pkg/utils"
)

var Module = fx.Provide(
	provideTripRepo,
	provideResearchService,
	provideMatcherService,
	provideGeneratorService,
	provideTranslatorService,
	provideFinalizerService,
	provideTripPlannerService)

func provideTripRepo(db *gorm.DB) repositories.TripRepository {
	return repositories.NewTripRepository(db)
}

type researchParams struct {
	fx.In

	Config       *config.Config
	Cache        mem.Store
	Geocoder     services.GeocodingServiceInterface
	POIs         services.POISourceInterface
	Encyclopedia services.EncyclopediaServiceInterface
	Weather      services.WeatherServiceInterface
	LLM          utils.LLMClient
	Embedder     utils.EmbeddingClientInterface
	Index        services.VectorIndex
}

func provideResearchService(p researchParams) services.ResearchServiceInterface {
	return services.NewResearchService(services.ResearchDeps{
		Cache:        p.Cache,
		Geocoder:     p.Geocoder,
		POIs:         p.POIs,
		Encyclopedia: p.Encyclopedia,
		Weather:      p.Weather,
		LLM:          p.LLM,
		Embedder:     p.Embedder,
		Index:        p.Index,
		TTL:          p.Config.Workflow.DestinationTTL,
	})
}

func provideMatcherService(embedder utils.EmbeddingClientInterface, index services.VectorIndex) services.MatcherServiceInterface {
	return services.NewMatcherService(embedder, index)
}

func provideGeneratorService(llm utils.LLMClient) services.GeneratorServiceInterface {
	return services.NewGeneratorService(llm)
}

func provideTranslatorService(llm utils.LLMClient) services.TranslatorServiceInterface {
	return services.NewTranslatorService(llm)
}

func provideFinalizerService(geocoder services.GeocodingServiceInterface) services.FinalizerServiceInterface {
	return services.NewFinalizerService(geocoder)
}

type plannerParams struct {
	fx.In

	Config     *config.Config
	Trips      repositories.TripRepository
	Engine     *workflow.Engine
	Tracker    *services.SupersessionTracker
	Research   services.ResearchServiceInterface
	Matcher    services.MatcherServiceInterface
	Generator  services.GeneratorServiceInterface
	Translator services.TranslatorServiceInterface
	Finalizer  services.FinalizerServiceInterface
}

func provideTripPlannerService(p plannerParams) services.TripPlannerServiceInterface {
	return services.NewTripPlannerService(services.TripPlannerDeps{
		Trips:           p.Trips,
		Engine:          p.Engine,
		Tracker:         p.Tracker,
		Research:        p.Research,
		Matcher:         p.Matcher,
		Generator:       p.Generator,
		Translator:      p.Translator,
		Finalizer:       p.Finalizer,
		PipelineVersion: p.Config.Workflow.PipelineVersion,
	})
}
