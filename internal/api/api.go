// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/shipflow/internal/api/handlers"
	"github.com/andresuchdata/shipflow/internal/api/middleware"
	"github.com/andresuchdata/shipflow/internal/service"
)

type Services struct {
	AllocationService *service.AllocationService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")

	if services != nil && services.AllocationService != nil {
		allocationHandler := handlers.NewAllocationHandler(services.AllocationService)
		allocationGroup := apiGroup.Group("/allocations")
		{
			allocationGroup.POST("/compute", allocationHandler.ComputeAllocation)
			allocationGroup.POST("/snapshot", allocationHandler.IngestSnapshot)
			allocationGroup.GET("/runs", allocationHandler.ListRuns)
			allocationGroup.GET("/runs/:id", allocationHandler.GetRun)
			allocationGroup.GET("/runs/:id/lines", allocationHandler.GetRunLines)
			allocationGroup.GET("/runs/:id/summary", allocationHandler.GetRunSummary)
			allocationGroup.GET("/runs/:id/export", allocationHandler.ExportRun)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
