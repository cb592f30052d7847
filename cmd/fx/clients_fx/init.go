package clients_fx

import (
	"go.uber.org/fx"

	"tripflow/internal/services"
	"tripflow/pkg/config"
)

var Module = fx.Provide(
	provideGeocoder,
	providePOISource,
	provideEncyclopedia,
	provideWeather)

func provideGeocoder(cfg *config.Config) services.GeocodingServiceInterface {
	c := cfg.Clients
	return services.NewNominatimGeocoder(c.NominatimURL, c.UserAgent, c.Timeout)
}

func providePOISource(cfg *config.Config) services.POISourceInterface {
	c := cfg.Clients
	return services.NewOverpassPOISource(c.OverpassURL, c.UserAgent, c.Timeout, c.POIRadiusMeters, c.POILimit)
}

func provideEncyclopedia(cfg *config.Config) services.EncyclopediaServiceInterface {
	c := cfg.Clients
	return services.NewWikipediaClient(c.WikipediaURL, c.UserAgent, c.Timeout)
}

func provideWeather(cfg *config.Config) services.WeatherServiceInterface {
	c := cfg.Clients
	return services.NewOpenMeteoClient(c.OpenMeteoURL, c.UserAgent, c.Timeout)
}
