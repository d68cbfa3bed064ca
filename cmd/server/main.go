package main

import (
	"context"
	"database/sql"
	"delivery-planner/internal/adapters/cache"
	"delivery-planner/internal/adapters/distance"
	"delivery-planner/internal/api"
	"delivery-planner/internal/config"
	"delivery-planner/internal/platform/db"
	"delivery-planner/internal/platform/metrics"
	"delivery-planner/internal/platform/obs"
	"delivery-planner/internal/ports"
	"delivery-planner/internal/services"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// openDistanceCache is replaced in tests.
var openDistanceCache = openCache

// main is the application composition root.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run wires concrete adapters (cache backend, distance provider) behind ports
// and serves HTTP until the server stops. Resources are released on every return.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	obs.Configure(cfg.LogLevel, cfg.LogJSON)
	metrics.RegisterDefault()

	distanceCache, closeCache, err := openDistanceCache(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	p := cfg.Planner
	adapter, err := distance.NewAdapter(provider, distanceCache, distance.Options{
		MaxRadiusMeters:  p.MaxRadiusKm * 1000,
		FallbackSpeedKph: p.FallbackSpeedKph,
		Concurrency:      p.MatrixConcurrency,
		Metric:           distance.Metric(p.CostMetric),
		AssumeSymmetric:  p.AssumeSymmetric,
	})
	if err != nil {
		return err
	}

	planner, err := services.NewPlanner(adapter, services.PlannerOptions{
		Packing:           services.PackingStrategy(p.PackingStrategy),
		Solver:            services.SolverOptions{MaxIterations: p.TwoOptMaxIterations, Eps: 1e-9},
		SolverConcurrency: p.SolverConcurrency,
		Metric:            p.CostMetric,
	})
	if err != nil {
		return err
	}

	router := api.NewRouter(planner, p.DefaultCapacity)

	// Timeouts are tuned for cold-cache matrix builds (external API latency).
	log.WithFields(log.Fields{
		"addr":  ":" + cfg.Port,
		"cache": cfg.CacheBackend,
	}).Info("Server listening")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// newProvider returns ORS when an API key is configured and the straight-line
// estimator otherwise, behind the configured rate limit.
func newProvider(cfg config.Config) (ports.DistanceProvider, error) {
	if strings.TrimSpace(cfg.ORSAPIKey) == "" {
		log.Warn("ORS_API_KEY not set; using straight-line distance estimates")
		return distance.NewStraightLineProvider(cfg.Planner.FallbackSpeedKph)
	}

	ors, err := distance.NewORSDistanceProvider(cfg.ORSAPIKey, cfg.ORSProfile)
	if err != nil {
		return nil, err
	}
	return distance.NewRateLimitedProvider(ors, cfg.ProviderRatePerSec, cfg.ProviderBurst), nil
}

// openCache builds the configured distance cache and a function releasing its resources.
func openCache(cfg config.Config) (ports.DistanceCache, func(), error) {
	ctx := context.Background()

	switch cfg.CacheBackend {
	case config.CacheMemory:
		return cache.NewMemoryDistanceCache(cfg.CacheTTL, cfg.CacheMaxEntries), func() {}, nil

	case config.CacheSQLite:
		sqlDB, err := db.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitSchema(ctx, sqlDB, cache.DialectSQLite); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return cache.NewSqliteDistanceCache(sqlDB, cfg.CacheTTL), closer(sqlDB), nil

	case config.CachePostgres:
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitSchema(ctx, sqlDB, cache.DialectPostgres); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return cache.NewPostgresDistanceCache(sqlDB, cfg.CacheTTL), closer(sqlDB), nil

	case config.CacheRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("open cache: ping redis: %w", err)
		}
		return cache.NewRedisDistanceCache(client, cfg.CacheTTL), func() { _ = client.Close() }, nil
	}

	return nil, nil, fmt.Errorf("open cache: unknown backend %q", cfg.CacheBackend)
}

func closer(sqlDB *sql.DB) func() {
	return func() {
		if err := sqlDB.Close(); err != nil {
			log.WithError(err).Warn("close database")
		}
	}
}
