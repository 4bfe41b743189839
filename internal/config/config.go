// Package config loads service configuration from defaults, an optional
// config.yaml, a .env file and FORECAST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"go-forecast-pipeline/internal/model"
)

// EnvPrefix is prepended to every environment override, e.g. FORECAST_SERVER_PORT.
const EnvPrefix = "FORECAST"

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	LogFormat   string         `mapstructure:"log_format"`
	Server      ServerConfig   `mapstructure:"server"`
	Session     SessionConfig  `mapstructure:"session"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Store       StoreConfig    `mapstructure:"store"`
	Forecast    ForecastConfig `mapstructure:"forecast"`
	Tracing     TracingConfig  `mapstructure:"tracing"`
	Voice       VoiceConfig    `mapstructure:"voice"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second per client, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
}

type SessionConfig struct {
	Backend string        `mapstructure:"backend"` // memory or redis
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password" json:"-"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type ForecastConfig struct {
	MaxSteps    int             `mapstructure:"max_steps"`
	MaxIter     int             `mapstructure:"max_iter"`
	Alpha       float64         `mapstructure:"alpha"`
	DefaultSpec model.ModelSpec `mapstructure:"default_spec"`
}

type TracingConfig struct {
	Exporter    string  `mapstructure:"exporter"` // none, stdout or otlp
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type VoiceConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads the configuration. configFile may be empty, in which case
// config.yaml is looked up in . and ./configs and is optional.
func Load(configFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.Session.Backend = strings.ToLower(cfg.Session.Backend)
	cfg.Tracing.Exporter = strings.ToLower(cfg.Tracing.Exporter)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit)
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.backend must be memory or redis, got %q", c.Session.Backend)
	}
	if c.Session.Size < 1 {
		return fmt.Errorf("session.size must be positive, got %d", c.Session.Size)
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if c.Forecast.MaxSteps < 1 {
		return fmt.Errorf("forecast.max_steps must be positive, got %d", c.Forecast.MaxSteps)
	}
	if c.Forecast.Alpha <= 0 || c.Forecast.Alpha >= 1 {
		return fmt.Errorf("forecast.alpha must be in (0,1), got %v", c.Forecast.Alpha)
	}
	if err := c.Forecast.DefaultSpec.Validate(); err != nil {
		return fmt.Errorf("forecast.default_spec: %w", err)
	}
	switch c.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be none, stdout or otlp, got %q", c.Tracing.Exporter)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)

	// Session cache
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.size", 256)
	v.SetDefault("session.ttl", "2h")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "forecast:session:")

	// Run history
	v.SetDefault("store.path", "forecasts.db")

	// Forecasting
	spec := model.DefaultModelSpec()
	v.SetDefault("forecast.max_steps", 60)
	v.SetDefault("forecast.max_iter", 200)
	v.SetDefault("forecast.alpha", 0.05)
	v.SetDefault("forecast.default_spec.p", spec.P)
	v.SetDefault("forecast.default_spec.d", spec.D)
	v.SetDefault("forecast.default_spec.q", spec.Q)
	v.SetDefault("forecast.default_spec.seasonal_p", spec.SP)
	v.SetDefault("forecast.default_spec.seasonal_d", spec.SD)
	v.SetDefault("forecast.default_spec.seasonal_q", spec.SQ)
	v.SetDefault("forecast.default_spec.period", spec.S)
	v.SetDefault("forecast.default_spec.enforce_stationarity", spec.EnforceStationarity)
	v.SetDefault("forecast.default_spec.enforce_invertibility", spec.EnforceInvertibility)

	// Tracing
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "forecast-server")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("voice.enabled", false)
}
