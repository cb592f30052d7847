package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"tripflow/cmd/fx/ai_fx"
	"tripflow/cmd/fx/clients_fx"
	"tripflow/cmd/fx/controllers_fx"
	"tripflow/cmd/fx/db_fx"
	"tripflow/cmd/fx/memcache_fx"
	"tripflow/cmd/fx/poi_embedded_fx"
	"tripflow/cmd/fx/trip_fx"
	"tripflow/cmd/fx/workflow_fx"
	"tripflow/internal/api/controllers"
	"tripflow/internal/infra"
	"tripflow/pkg/config"
	"tripflow/pkg/middleware"
	"tripflow/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file")
	}
	cfg := config.GetConfig()
	infra.InitLogger(cfg.Server.ServiceName, cfg.Server.Environment)
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	app := fx.New(
		fx.Supply(cfg),
		db_fx.Module,
		memcache_fx.Module,
		ai_fx.Module,
		clients_fx.Module,
		poi_embedded_fx.Module,
		workflow_fx.Module,
		trip_fx.Module,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine) {
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("starting HTTP server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("failed to start server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

func ProvideRouter(cfg *config.Config, tripController *controllers.TripController) *gin.Engine {
	if cfg.Server.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.CORSMiddleware())

	RegisterRoutes(r, tripController)

	return r
}

func RegisterRoutes(r *gin.Engine, tripController *controllers.TripController) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	trips := r.Group("/trips")
	trips.Use(middleware.JWTAuthMiddleware())
	trips.POST("", tripController.CreateTripHandler)
	trips.GET("/:id", tripController.GetTripHandler)
	trips.POST("/:id/plan", tripController.PlanTripHandler)
	trips.POST("/:id/feedback", tripController.FeedbackHandler)
	trips.GET("/:id/events", tripController.EventsHandler)
}
