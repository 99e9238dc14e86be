package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/trip-features-go/internal/config"
	"github.com/jengzang/trip-features-go/internal/handler"
	"github.com/jengzang/trip-features-go/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Trips    *handler.TripHandler
	Features *handler.FeatureHandler
}

// SetupRouter wires middleware and routes
func SetupRouter(cfg *config.Config, log *zap.Logger, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log))

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Trip features API is running",
		})
	})

	api := r.Group("/api/v1")
	if cfg.RateLimitRPS > 0 {
		api.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	}
	if cfg.JWTSecret != "" {
		api.Use(middleware.Auth(cfg.JWTSecret))
	} else {
		log.Warn("JWT_SECRET is empty, /api/v1 is unauthenticated")
	}
	{
		trips := api.Group("/trips")
		{
			trips.POST("", h.Trips.ImportTrips)
			trips.GET("", h.Trips.GetTrips)
		}

		featureModels := api.Group("/models")
		{
			featureModels.POST("", h.Features.FitModel)
			featureModels.GET("", h.Features.ListModels)
			featureModels.GET("/:id", h.Features.GetModel)
			featureModels.POST("/:id/transform", h.Features.Transform)
			featureModels.GET("/:id/cells", h.Features.GetCells)
		}
	}

	return r
}
