package config

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	Clients  ClientsConfig
	Workflow WorkflowConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port        string
	Environment string
	ServiceName string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	// Addr empty means the in-memory cache store and log notifier are used.
	Addr     string
	Password string
	DB       int
}

type AIConfig struct {
	Provider          string
	GeminiAPIKey      string
	OpenAIAPIKey      string
	Model             string
	EmbeddingProvider string
	EmbeddingModel    string
	Timeout           time.Duration
	MaxRetries        uint64
}

type ClientsConfig struct {
	UserAgent        string
	Timeout          time.Duration
	NominatimURL     string
	OverpassURL      string
	WikipediaURL     string
	OpenMeteoURL     string
	POIRadiusMeters  int
	POILimit         int
}

type WorkflowConfig struct {
	PipelineVersion   string
	DestinationTTL    time.Duration
	NotificationTopic string
}

type AuthConfig struct {
	JWTSecret string
}

var (
	lock      = &sync.Mutex{}
	appConfig *Config
)

// GetConfig loads configuration once. Values come from an optional app.config.json,
// overridden by environment variables (AI_PROVIDER, REDIS_ADDR, ...).
func GetConfig() *Config {
	lock.Lock()
	defer lock.Unlock()

	if appConfig != nil {
		return appConfig
	}
	appConfig = load(viper.New())
	return appConfig
}

func load(v *viper.Viper) *Config {
	setDefaults(v)

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("app.config")
	v.SetConfigType("json")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Debug().Err(err).Msg("no config file, using env and defaults")
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("using config file")
	}

	return &Config{
		Server: ServerConfig{
			Port:        v.GetString("server.port"),
			Environment: v.GetString("server.environment"),
			ServiceName: v.GetString("server.service_name"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("postgres.url"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		AI: AIConfig{
			Provider:          v.GetString("ai.provider"),
			GeminiAPIKey:      v.GetString("gemini.api_key"),
			OpenAIAPIKey:      v.GetString("openai.api_key"),
			Model:             v.GetString("ai.model"),
			EmbeddingProvider: v.GetString("embedding.provider"),
			EmbeddingModel:    v.GetString("embedding.model"),
			Timeout:           v.GetDuration("ai.timeout"),
			MaxRetries:        v.GetUint64("ai.max_retries"),
		},
		Clients: ClientsConfig{
			UserAgent:       v.GetString("clients.user_agent"),
			Timeout:         v.GetDuration("clients.timeout"),
			NominatimURL:    v.GetString("clients.nominatim_url"),
			OverpassURL:     v.GetString("clients.overpass_url"),
			WikipediaURL:    v.GetString("clients.wikipedia_url"),
			OpenMeteoURL:    v.GetString("clients.open_meteo_url"),
			POIRadiusMeters: v.GetInt("clients.poi_radius_meters"),
			POILimit:        v.GetInt("clients.poi_limit"),
		},
		Workflow: WorkflowConfig{
			PipelineVersion:   v.GetString("workflow.pipeline_version"),
			DestinationTTL:    v.GetDuration("workflow.destination_ttl"),
			NotificationTopic: v.GetString("workflow.notification_topic"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("jwt.secret"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.service_name", "tripflow")

	v.SetDefault("redis.db", 0)

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.max_retries", 2)
	v.SetDefault("embedding.provider", "gemini")

	v.SetDefault("clients.user_agent", "tripflow/1.0")
	v.SetDefault("clients.timeout", 15*time.Second)
	v.SetDefault("clients.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("clients.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("clients.wikipedia_url", "https://en.wikipedia.org/api/rest_v1")
	v.SetDefault("clients.open_meteo_url", "https://api.open-meteo.com/v1")
	v.SetDefault("clients.poi_radius_meters", 8000)
	v.SetDefault("clients.poi_limit", 40)

	v.SetDefault("workflow.pipeline_version", "v2")
	v.SetDefault("workflow.destination_ttl", 24*time.Hour)
	v.SetDefault("workflow.notification_topic", "trip-progress")
}
