package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	yamlDoc := `
port: "9090"
cache_backend: memory
cache_ttl: 10m
planner:
  max_radius_km: 250
  two_opt_max_iterations: 50
  cost_metric: duration
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Chdir(dir)
	t.Setenv("PLANNER_CONFIG", path)
	t.Setenv("MATRIX_CONCURRENCY", "8")
	t.Setenv("TWO_OPT_MAX_ITERATIONS", "75")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, CacheMemory, cfg.CacheBackend)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 250.0, cfg.Planner.MaxRadiusKm)
	assert.Equal(t, "duration", cfg.Planner.CostMetric)
	assert.Equal(t, 8, cfg.Planner.MatrixConcurrency)
	assert.Equal(t, 75, cfg.Planner.TwoOptMaxIterations, "env overrides file")
	assert.Equal(t, 50.0, cfg.Planner.FallbackSpeedKph, "defaults survive")
	assert.True(t, cfg.Planner.AssumeSymmetric)
}

func TestValidateRejectsBadKnobs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"radius", func(c *Config) { c.Planner.MaxRadiusKm = 0 }},
		{"speed", func(c *Config) { c.Planner.FallbackSpeedKph = -1 }},
		{"iterations", func(c *Config) { c.Planner.TwoOptMaxIterations = 0 }},
		{"concurrency", func(c *Config) { c.Planner.MatrixConcurrency = 0 }},
		{"metric", func(c *Config) { c.Planner.CostMetric = "fuel" }},
		{"strategy", func(c *Config) { c.Planner.PackingStrategy = "worst_fit" }},
		{"postgres without url", func(c *Config) { c.CacheBackend = CachePostgres }},
		{"redis without url", func(c *Config) { c.CacheBackend = CacheRedis }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MAX_RADIUS_KM", "far")

	_, err := Load()
	assert.Error(t, err)
}
