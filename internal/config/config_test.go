package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-forecast-pipeline/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, int64(32), cfg.Server.MaxUploadMB)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 0.05, cfg.Forecast.Alpha)
	assert.Equal(t, model.DefaultModelSpec(), cfg.Forecast.DefaultSpec)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FORECAST_SERVER_PORT", "9090")
	t.Setenv("FORECAST_SESSION_BACKEND", "REDIS")
	t.Setenv("FORECAST_FORECAST_DEFAULT_SPEC_PERIOD", "4")
	t.Setenv("FORECAST_SESSION_TTL", "10m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, 4, cfg.Forecast.DefaultSpec.S)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.yaml")
	content := `
log_level: debug
server:
  port: 7000
forecast:
  max_steps: 24
  default_spec:
    p: 2
    d: 1
    q: 0
    seasonal_p: 0
    seasonal_d: 0
    seasonal_q: 0
    period: 1
tracing:
  exporter: stdout
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 24, cfg.Forecast.MaxSteps)
	assert.Equal(t, 2, cfg.Forecast.DefaultSpec.P)
	assert.Equal(t, 1, cfg.Forecast.DefaultSpec.S)
	assert.Equal(t, "stdout", cfg.Tracing.Exporter)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"upload", func(c *Config) { c.Server.MaxUploadMB = 0 }},
		{"rate", func(c *Config) { c.Server.RateLimit = -1 }},
		{"backend", func(c *Config) { c.Session.Backend = "memcached" }},
		{"session size", func(c *Config) { c.Session.Size = 0 }},
		{"store", func(c *Config) { c.Store.Path = "" }},
		{"steps", func(c *Config) { c.Forecast.MaxSteps = 0 }},
		{"alpha", func(c *Config) { c.Forecast.Alpha = 1 }},
		{"spec", func(c *Config) { c.Forecast.DefaultSpec.S = 0 }},
		{"exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
