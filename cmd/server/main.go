package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Simphiwe396/Delivery-pwa/internal/app"
	"github.com/Simphiwe396/Delivery-pwa/internal/config"
	"github.com/Simphiwe396/Delivery-pwa/internal/handler"
	internalRedis "github.com/Simphiwe396/Delivery-pwa/internal/redis"
	"github.com/Simphiwe396/Delivery-pwa/internal/repository"
	"github.com/Simphiwe396/Delivery-pwa/internal/repository/memory"
	"github.com/Simphiwe396/Delivery-pwa/internal/repository/postgres"
	"github.com/Simphiwe396/Delivery-pwa/internal/service"
	"github.com/Simphiwe396/Delivery-pwa/internal/ws"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the datastores can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	// Trip record store backend.
	var tripRepo repository.TripRepository
	switch cfg.Store.Backend {
	case config.StoreMemory:
		tripRepo = memory.NewTripRepository()
		log.Println("Using in-memory trip store")
	case config.StorePostgres:
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()
		tripRepo = postgres.NewTripRepository(db)
		log.Println("Connected to PostgreSQL")
	default:
		log.Fatalf("unknown store backend %q", cfg.Store.Backend)
	}

	// Redis backs the snapshot cache, the live-trip geo index and the
	// idempotency middleware. Optional: without it the engine runs
	// repository-only.
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Connected to Redis")
	}

	// Wire dependencies.
	server := wireServer(tripRepo, redisClient, nrApp, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(tripRepo repository.TripRepository, redisClient *goredis.Client, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	// Redis-backed stores (nil interfaces when redis is disabled).
	var locationStore internalRedis.LocationStoreInterface
	var cacheStore internalRedis.CacheStoreInterface
	if redisClient != nil {
		locationStore = internalRedis.NewLocationStore(redisClient)
		cacheStore = internalRedis.NewCacheStore(redisClient)
	}

	// Real-time fan-out hub.
	hub := ws.NewHub()

	// Lifecycle engine.
	tripService := service.NewTripService(tripRepo, locationStore, cacheStore, hub)

	// Handlers.
	tripHandler := handler.NewTripHandler(tripService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler: tripHandler,
		Hub:         hub,
		RedisClient: redisClient,
		NewRelicApp: nrApp,
		RateLimit:   cfg.RateLimit,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
