// Package api wires the HTTP surface of the placement optimizer.
package api

import (
	"net/http"

	"placement-optimizer/internal/api/handlers"
	"placement-optimizer/internal/api/middleware"
	"placement-optimizer/internal/config"
	"placement-optimizer/internal/data"
	"placement-optimizer/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps is everything the router needs. Cache may be nil to disable caching.
type Deps struct {
	Catalog        *model.Catalog
	Optimizer      handlers.Optimizer
	Sweeper        handlers.Sweeper
	Defaults       config.RequestDefaults
	FrontierPoints int
	Cache          *data.ResultCache
	Log            *zap.SugaredLogger
	AllowedOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	router := gin.New()

	// Apply middleware
	router.Use(middleware.Logger(d.Log))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(d.AllowedOrigins))

	optimizeHandler := handlers.NewOptimizeHandler(d.Optimizer, d.Defaults, d.Cache)
	frontierHandler := handlers.NewFrontierHandler(d.Sweeper, d.Defaults, d.FrontierPoints)
	catalogHandler := handlers.NewCatalogHandler(d.Catalog)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "quotes": d.Catalog.Len()})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/quotes", catalogHandler.ListQuotes)
		api.GET("/layers", catalogHandler.ListLayers)
		api.GET("/objective-modes", handlers.ObjectiveModes)

		api.POST("/optimize", optimizeHandler.Optimize)
		api.POST("/optimize/targets", optimizeHandler.OptimizeTargets)
		api.POST("/optimize/max-coverage", optimizeHandler.OptimizeMaxCoverage)
		api.POST("/frontier", frontierHandler.GenerateOptions)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
