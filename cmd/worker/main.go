package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/config"
	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/pkg/logger"
	"github.com/seoul-location-services/internal/repository/cache"
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

	// Check if worker is enabled
	if !cfg.Invalidation.Enabled || !cfg.Cache.Enabled {
		fmt.Println("Cache invalidation is disabled in configuration. Set INVALIDATION_ENABLED=true and CACHE_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Cache Invalidation Worker")
	log.Info("Configuration loaded",
		zap.String("transport", cfg.Invalidation.Transport),
		zap.String("consumer_group", cfg.Invalidation.ConsumerGroup),
		zap.String("cache_driver", cfg.Cache.Driver))

	// 3. Connect to cache
	backend, closeBackend, err := cache.OpenBackend(cfg, logger.Component(log, "cache_backend"))
	if err != nil {
		log.Fatal("Failed to connect to cache", zap.Error(err))
	}
	defer closeBackend()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	cacheLayer := usecase.NewCacheLayer(ctx, backend, usecase.CacheLayerConfig{
		Enabled:   true,
		TTL:       cfg.Cache.TTL,
		Precision: cfg.Cache.KeyPrecision,
		KeyPrefix: cfg.Cache.KeyPrefix,
	}, logger.Component(log, "cache"))
	cancel()
	if !cacheLayer.Enabled() {
		log.Fatal("Cache backend is not healthy")
	}

	// 4. Connect to event transport
	subscriber, closeSubscriber, err := invalidation.NewSubscriber(cfg, logger.Component(log, "events"))
	if err != nil {
		log.Fatal("Failed to connect to invalidation transport", zap.Error(err))
	}
	defer closeSubscriber()

	// 5. Create worker manager and register workers
	workerManager := worker.NewWorkerManager(log)
	workerManager.Register(invalidation.NewCacheInvalidationWorker(
		subscriber,
		cacheLayer,
		domain.DefaultSources(cfg.Sources.Swapped),
		log,
	))

	// 6. Setup graceful shutdown
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if err := workerManager.Start(workerCtx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	cancelWorkers()

	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}
