package main

// @title Seoul Location Services API
// @version 1.0.0
// @description Поиск городских сервисов Сеула рядом с заданной точкой.
// @description
// @description Основные возможности:
// @description - Поиск по радиусу по всем категориям или по одной
// @description - Сортировка по расстоянию или названию
// @description - Кеширование выдачи и управление кешем

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/seoul-location-services/docs/swagger"
	"github.com/seoul-location-services/internal/config"
	httpDelivery "github.com/seoul-location-services/internal/delivery/http"
	"github.com/seoul-location-services/internal/delivery/http/handler"
	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/domain/repository"
	"github.com/seoul-location-services/internal/pkg/geo"
	"github.com/seoul-location-services/internal/pkg/logger"
	"github.com/seoul-location-services/internal/pkg/telemetry"
	"github.com/seoul-location-services/internal/repository/cache"
	"github.com/seoul-location-services/internal/repository/postgres"
	"github.com/seoul-location-services/internal/usecase"
	"github.com/seoul-location-services/internal/worker"
	"github.com/seoul-location-services/internal/worker/invalidation"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Seoul Location Services")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("invalidation_transport", cfg.Invalidation.Transport),
	)

	// 3. Tracing
	if cfg.Telemetry.Enabled {
		shutdownTracer, err := telemetry.InitTracer(context.Background(), cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			log.Warn("Failed to initialize tracing, continuing without it", zap.Error(err))
		} else {
			defer shutdownTracer()
			log.Info("Tracing enabled", zap.String("endpoint", cfg.Telemetry.Endpoint))
		}
	}

	// 4. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, logger.Component(log, "postgres"))
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	// 5. Connect to cache. Без кеша сервис работает, но каждый запрос идёт в БД
	var cacheBackend repository.CacheRepository
	if cfg.Cache.Enabled {
		backend, closeBackend, err := cache.OpenBackend(cfg, logger.Component(log, "cache_backend"))
		if err != nil {
			log.Warn("Cache backend unavailable, running without cache", zap.Error(err))
		} else {
			cacheBackend = backend
			defer closeBackend()
		}
	}

	// 6. Coordinates and source catalogue
	transformer, err := geo.NewCoordinateTransformer(geo.TransformerConfig{
		SourceCRS: cfg.Projection.SourceCRS,
		TargetCRS: cfg.Projection.TargetCRS,
		Region: domain.RegionBounds{
			MinLat: cfg.Region.MinLat,
			MaxLat: cfg.Region.MaxLat,
			MinLon: cfg.Region.MinLon,
			MaxLon: cfg.Region.MaxLon,
		},
	}, logger.Component(log, "geo"))
	if err != nil {
		log.Fatal("Failed to initialize coordinate transformer", zap.Error(err))
	}
	defer transformer.Close()

	registry := domain.DefaultSources(cfg.Sources.Swapped)

	// 7. Initialize repositories and use cases
	sourceRepo := postgres.NewSourceRepository(db, registry, logger.Component(log, "source_repository"))

	startCtx, cancelStart := context.WithTimeout(context.Background(), 5*time.Second)
	cacheLayer := usecase.NewCacheLayer(startCtx, cacheBackend, usecase.CacheLayerConfig{
		Enabled:    cfg.Cache.Enabled,
		TTL:        cfg.Cache.TTL,
		PartialTTL: cfg.Cache.PartialTTL,
		Precision:  cfg.Cache.KeyPrecision,
		KeyPrefix:  cfg.Cache.KeyPrefix,
	}, logger.Component(log, "cache"))
	cancelStart()

	proximityUC := usecase.NewProximityUseCase(
		sourceRepo,
		cacheLayer,
		transformer,
		registry,
		usecase.SearchLimits{
			DefaultRadius: cfg.Search.DefaultRadius,
			MinRadius:     cfg.Search.MinRadius,
			MaxRadius:     cfg.Search.MaxRadius,
			DefaultLimit:  cfg.Search.DefaultLimit,
			MaxLimit:      cfg.Search.MaxLimit,
			SourceTimeout: cfg.Search.SourceTimeout,
		},
		logger.Component(log, "proximity"),
	)

	log.Info("Use cases initialized")

	// 8. Cache invalidation worker
	workerManager := worker.NewWorkerManager(log)
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if cfg.Invalidation.Enabled && cacheLayer.Enabled() {
		subscriber, closeSubscriber, err := invalidation.NewSubscriber(cfg, logger.Component(log, "events"))
		if err != nil {
			log.Warn("Invalidation transport unavailable, cache entries expire by TTL only", zap.Error(err))
		} else {
			defer closeSubscriber()
			workerManager.Register(invalidation.NewCacheInvalidationWorker(subscriber, cacheLayer, registry, log))
			if err := workerManager.Start(workerCtx); err != nil {
				log.Error("Failed to start workers", zap.Error(err))
			}
		}
	}

	// 9. Initialize HTTP server
	server := httpDelivery.NewServer(
		cfg,
		log,
		handler.NewServicesHandler(proximityUC, log),
		handler.NewCacheHandler(cacheLayer, registry, log),
		handler.NewHealthHandler(db, cacheLayer, log),
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	cancelWorkers()
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
