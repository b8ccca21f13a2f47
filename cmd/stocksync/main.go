package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/averta/stocksync/internal/cache"
	"github.com/averta/stocksync/internal/catalog"
	httpDelivery "github.com/averta/stocksync/internal/catalog/delivery/http"
	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/internal/catalog/repository"
	"github.com/averta/stocksync/internal/catalog/usecase/command"
	"github.com/averta/stocksync/internal/sync"
	"github.com/averta/stocksync/kafka"
	"github.com/averta/stocksync/pkg/config"
	"github.com/averta/stocksync/pkg/database"
	"github.com/averta/stocksync/pkg/logger"
	"github.com/averta/stocksync/pkg/tracing"
)

const serviceName = "stocksync"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic(err)
	}

	isDevelopment := cfg.Server.Environment == "development"
	logger.Init(serviceName, cfg.Log.Level, isDevelopment)

	logger.Logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("storage_driver", cfg.Storage.Driver).
		Bool("sync_enabled", cfg.Sync.Enabled).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Bool("kafka_enabled", cfg.Kafka.Enabled).
		Msg("Starting stocksync service")

	// Initialize tracing
	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(serviceName, cfg.Tracing.Endpoint)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shut down tracer")
			}
		}()
	}

	// Initialize storage backend
	repo, closeStorage, err := buildRepository(cfg.Storage)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to storage")
	}
	defer closeStorage()

	if err := repo.Init(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize schema")
	}
	logger.Logger.Info().Msg("Storage initialized successfully")

	traced := repository.NewTracedCatalogRepository(repo)

	// Optional Redis mirror
	var mirror command.Mirror
	var cacheSource command.CacheSource
	if cfg.Cache.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		store := cache.NewRedisStore(client)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := store.Ping(ctx); err != nil {
			logger.Logger.Warn().Err(err).Msg("Redis unavailable, continuing without cache")
		} else {
			mirror = store
			cacheSource = store
			logger.Logger.Info().Str("addr", cfg.Cache.Addr).Msg("Redis cache connected")
		}
		cancel()
	}

	// Optional Kafka change publisher
	var notifier command.ChangeNotifier
	if cfg.Kafka.Enabled {
		publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Kafka unavailable, continuing without change events")
		} else {
			notifier = publisher
			defer publisher.Close()
		}
	}

	upsert := catalog.InitializeUpsertHandler(traced, notifier, mirror)

	// Seed an empty store from the cache mirror
	if cacheSource != nil {
		seeder := command.NewSeedFromCacheHandler(traced, cacheSource, upsert)
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		result, err := seeder.Handle(ctx)
		cancel()
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Cache seeding failed")
		} else if result.Seeded {
			logger.Logger.Info().
				Int("products", result.Products).
				Int("prices", result.Prices).
				Msg("Catalog seeded from cache")
		}
	}

	// Optional live-source scheduler
	var scheduler *sync.Scheduler
	if cfg.Sync.Enabled {
		client := sync.NewClient(sync.ClientConfig{
			Endpoint: cfg.Sync.Endpoint,
			Company:  cfg.Sync.Company,
			Location: cfg.Sync.Location,
			Timeout:  cfg.Sync.Timeout,
		})
		scheduler = sync.NewScheduler(client, upsert, cfg.Sync.Interval)
		scheduler.Start()
		defer scheduler.Stop()
	}

	handler := catalog.InitializeHTTPHandler(traced, upsert, mirror, scheduler)

	srv := startHTTPServer(handler, cfg)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

// buildRepository selects the storage backend from config
func buildRepository(cfg config.StorageConfig) (domain.CatalogRepository, func(), error) {
	switch cfg.Driver {
	case "postgres":
		db, err := database.NewPostgresConnection(database.PostgresConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			SSLMode:  cfg.SSLMode,
		})
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresCatalogRepository(db), func() { db.Close() }, nil
	default:
		db, err := database.NewSQLiteConnection(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return repository.NewGormCatalogRepository(db), closeFn, nil
	}
}

func startHTTPServer(handler *httpDelivery.CatalogHandler, cfg *config.Config) *http.Server {
	router := mux.NewRouter()

	mwConfig := httpDelivery.DefaultMiddlewareConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		mwConfig.CORSOptions.AllowedOrigins = cfg.Server.AllowedOrigins
	}
	httpDelivery.RegisterMiddlewares(router, mwConfig)

	handler.RegisterRoutes(router)
	handler.RegisterHealthCheck(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: httpDelivery.SetupCORS(mwConfig)(router),
	}

	go func() {
		logger.Logger.Info().
			Str("port", cfg.Server.Port).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	return srv
}
