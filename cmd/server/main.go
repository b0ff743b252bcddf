// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/shipflow/internal/api"
	"github.com/andresuchdata/shipflow/internal/cache"
	"github.com/andresuchdata/shipflow/internal/config"
	"github.com/andresuchdata/shipflow/internal/engine"
	"github.com/andresuchdata/shipflow/internal/repository/postgres"
	"github.com/andresuchdata/shipflow/internal/service"
	"github.com/andresuchdata/shipflow/internal/storage"
	"github.com/andresuchdata/shipflow/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	summaryCache, err := cache.NewSummaryCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Summary cache unavailable, continuing without it")
		summaryCache = cache.NewNoopSummaryCache()
	}

	var objects storage.ObjectStorage
	if cfg.Storage.Enabled {
		objects, err = storage.NewMinIOStorage(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to object storage")
		}
	}

	eng := engine.New(
		engine.WithParamDefaults(engine.ParamDefaults{
			InflationRatio: cfg.Engine.InflationRatio,
			ExpansionRatio: cfg.Engine.ExpansionRatio,
			MinStockRatio:  cfg.Engine.MinStockRatio,
		}),
		engine.WithForwardCover(cfg.Engine.ForwardCover),
		engine.WithTopN(cfg.Engine.TopN),
	)

	allocationService := service.NewAllocationService(
		eng,
		postgres.NewSnapshotRepository(db),
		postgres.NewRunRepository(db),
		summaryCache,
		objects,
	)

	router := api.NewRouter(&api.Services{AllocationService: allocationService}, cfg.Server.AllowedOrigins)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
