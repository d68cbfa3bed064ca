package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	CacheMemory   = "memory"
	CacheSQLite   = "sqlite"
	CachePostgres = "postgres"
	CacheRedis    = "redis"
)

// Config is the process configuration. Values come from defaults, then the
// optional YAML file named by PLANNER_CONFIG, then environment variables.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	CacheBackend    string        `yaml:"cache_backend"`
	DBPath          string        `yaml:"db_path"`
	DatabaseURL     string        `yaml:"database_url"`
	RedisURL        string        `yaml:"redis_url"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheMaxEntries int           `yaml:"cache_max_entries"`

	ORSAPIKey          string  `yaml:"ors_api_key"`
	ORSProfile         string  `yaml:"ors_profile"`
	ProviderRatePerSec float64 `yaml:"provider_rate_per_sec"`
	ProviderBurst      int     `yaml:"provider_burst"`

	Planner Planner `yaml:"planner"`
}

// Planner holds the knobs of the delivery planning core.
type Planner struct {
	MaxRadiusKm         float64 `yaml:"max_radius_km"`
	FallbackSpeedKph    float64 `yaml:"fallback_speed_kph"`
	TwoOptMaxIterations int     `yaml:"two_opt_max_iterations"`
	MatrixConcurrency   int     `yaml:"matrix_concurrency"`
	SolverConcurrency   int     `yaml:"solver_concurrency"`
	CostMetric          string  `yaml:"cost_metric"`
	AssumeSymmetric     bool    `yaml:"assume_symmetric"`
	PackingStrategy     string  `yaml:"packing_strategy"`
	DefaultCapacity     float64 `yaml:"default_capacity"`
}

func Default() Config {
	return Config{
		Port:               "8080",
		LogLevel:           "info",
		CacheBackend:       CacheSQLite,
		DBPath:             "data/app.db",
		CacheTTL:           7 * 24 * time.Hour,
		CacheMaxEntries:    100_000,
		ORSProfile:         "driving-car",
		ProviderRatePerSec: 10,
		ProviderBurst:      5,
		Planner: Planner{
			MaxRadiusKm:         500,
			FallbackSpeedKph:    50,
			TwoOptMaxIterations: 1000,
			MatrixConcurrency:   5,
			SolverConcurrency:   4,
			CostMetric:          "distance",
			AssumeSymmetric:     true,
			PackingStrategy:     "best_fit",
			DefaultCapacity:     100,
		},
	}
}

// Load reads .env, the optional YAML file, and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found (using environment variables)")
	}

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("PLANNER_CONFIG")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("load config: parse %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = Get("PORT", c.Port)
	c.LogLevel = Get("LOG_LEVEL", c.LogLevel)
	c.CacheBackend = strings.ToLower(Get("CACHE_BACKEND", c.CacheBackend))
	c.DBPath = Get("DB_PATH", c.DBPath)
	c.DatabaseURL = Get("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = Get("REDIS_URL", c.RedisURL)
	c.ORSAPIKey = Get("ORS_API_KEY", c.ORSAPIKey)
	c.ORSProfile = Get("ORS_PROFILE", c.ORSProfile)
	c.Planner.CostMetric = strings.ToLower(Get("COST_METRIC", c.Planner.CostMetric))
	c.Planner.PackingStrategy = strings.ToLower(Get("PACKING_STRATEGY", c.Planner.PackingStrategy))

	var err error
	if c.LogJSON, err = getBool("LOG_JSON", c.LogJSON); err != nil {
		return err
	}
	if c.CacheTTL, err = getDuration("CACHE_TTL", c.CacheTTL); err != nil {
		return err
	}
	if c.CacheMaxEntries, err = getInt("CACHE_MAX_ENTRIES", c.CacheMaxEntries); err != nil {
		return err
	}
	if c.ProviderRatePerSec, err = getFloat("PROVIDER_RATE_PER_SEC", c.ProviderRatePerSec); err != nil {
		return err
	}
	if c.ProviderBurst, err = getInt("PROVIDER_BURST", c.ProviderBurst); err != nil {
		return err
	}
	if c.Planner.MaxRadiusKm, err = getFloat("MAX_RADIUS_KM", c.Planner.MaxRadiusKm); err != nil {
		return err
	}
	if c.Planner.FallbackSpeedKph, err = getFloat("FALLBACK_SPEED_KPH", c.Planner.FallbackSpeedKph); err != nil {
		return err
	}
	if c.Planner.TwoOptMaxIterations, err = getInt("TWO_OPT_MAX_ITERATIONS", c.Planner.TwoOptMaxIterations); err != nil {
		return err
	}
	if c.Planner.MatrixConcurrency, err = getInt("MATRIX_CONCURRENCY", c.Planner.MatrixConcurrency); err != nil {
		return err
	}
	if c.Planner.SolverConcurrency, err = getInt("SOLVER_CONCURRENCY", c.Planner.SolverConcurrency); err != nil {
		return err
	}
	if c.Planner.AssumeSymmetric, err = getBool("ASSUME_SYMMETRIC", c.Planner.AssumeSymmetric); err != nil {
		return err
	}
	if c.Planner.DefaultCapacity, err = getFloat("DEFAULT_CAPACITY", c.Planner.DefaultCapacity); err != nil {
		return err
	}

	return nil
}

// Validate rejects knob values the planner cannot work with.
func (c Config) Validate() error {
	p := c.Planner
	switch {
	case p.MaxRadiusKm <= 0:
		return errors.New("config: max_radius_km must be positive")
	case p.FallbackSpeedKph <= 0:
		return errors.New("config: fallback_speed_kph must be positive")
	case p.TwoOptMaxIterations <= 0:
		return errors.New("config: two_opt_max_iterations must be positive")
	case p.MatrixConcurrency <= 0:
		return errors.New("config: matrix_concurrency must be positive")
	case p.SolverConcurrency <= 0:
		return errors.New("config: solver_concurrency must be positive")
	case c.ProviderRatePerSec < 0:
		return errors.New("config: provider_rate_per_sec must not be negative")
	}

	switch p.CostMetric {
	case "distance", "duration":
	default:
		return fmt.Errorf("config: unknown cost_metric %q", p.CostMetric)
	}

	switch p.PackingStrategy {
	case "best_fit", "first_fit":
	default:
		return fmt.Errorf("config: unknown packing_strategy %q", p.PackingStrategy)
	}

	switch c.CacheBackend {
	case CacheMemory, CacheSQLite:
	case CachePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("config: DATABASE_URL is required for the postgres cache")
		}
	case CacheRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("config: REDIS_URL is required for the redis cache")
		}
	default:
		return fmt.Errorf("config: unknown cache_backend %q", c.CacheBackend)
	}

	return nil
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
