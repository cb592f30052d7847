package memcache_fx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"tripflow/internal/infra"
	"tripflow/pkg/config"
	mem "tripflow/pkg/memcache"
)

var Module = fx.Provide(provideRedisClient, provideCacheStore)

// provideRedisClient returns nil when Redis is not configured or unreachable.
func provideRedisClient(lc fx.Lifecycle, cfg *config.Config) *redis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := infra.InitRedis(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, falling back to in-process cache")
		return nil
	}
	if client == nil {
		return nil
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func provideCacheStore(client *redis.Client, cfg *config.Config) mem.Store {
	if client != nil {
		log.Info().Msg("using redis cache store")
		return mem.NewRedisStore(client)
	}
	return mem.NewLocalStore(cfg.Workflow.DestinationTTL, 10*time.Minute)
}
