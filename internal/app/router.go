package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"github.com/Simphiwe396/Delivery-pwa/internal/config"
	"github.com/Simphiwe396/Delivery-pwa/internal/handler"
	"github.com/Simphiwe396/Delivery-pwa/internal/middleware"
	"github.com/Simphiwe396/Delivery-pwa/internal/ws"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler *handler.TripHandler
	Hub         *ws.Hub
	RedisClient *redis.Client
	NewRelicApp *newrelic.Application
	RateLimit   config.RateLimitConfig
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RateLimit.RequestsPerMinute > 0 {
		router.Use(middleware.RateLimitMiddleware(deps.RateLimit.RequestsPerMinute, deps.RateLimit.Burst))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Real-time observer channel.
	if deps.Hub != nil {
		router.GET("/ws", deps.Hub.Handle)
	}

	// API routes. Paths match the original client.
	api := router.Group("/api")
	{
		api.POST("/trip", deps.TripHandler.StartTrip)
		api.GET("/trip/:id", deps.TripHandler.GetTrip)
		api.POST("/update-location", deps.TripHandler.UpdateLocation)
		api.POST("/finish-trip", deps.TripHandler.FinishTrip)
		api.GET("/trips", deps.TripHandler.GetAll)
		api.GET("/active-trips", deps.TripHandler.GetActive)
		api.GET("/nearby-trips", deps.TripHandler.GetNearby)
	}

	return router
}
