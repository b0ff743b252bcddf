// cmd/loader/main.go
package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/andresuchdata/shipflow/internal/cache"
	"github.com/andresuchdata/shipflow/internal/config"
	"github.com/andresuchdata/shipflow/internal/engine"
	"github.com/andresuchdata/shipflow/internal/loader"
	"github.com/andresuchdata/shipflow/internal/repository/postgres"
	"github.com/andresuchdata/shipflow/internal/service"
	"github.com/andresuchdata/shipflow/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize database")
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

	allocationService := service.NewAllocationService(
		engine.New(),
		postgres.NewSnapshotRepository(db),
		postgres.NewRunRepository(db),
		summaryCache,
		nil,
	)

	r := mux.NewRouter()

	handler := loader.NewHandler(allocationService.IngestSnapshot, cfg.App.DataDir)
	handler.RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Log.Info().Str("addr", addr).Msg("Loader starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Fatal().Err(err).Msg("Loader server failed")
	}
}
