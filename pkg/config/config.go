package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/coachgate/pkg/observability"
	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable holding the optional YAML file
const FileEnv = "COACHGATE_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr is the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig holds the membership database settings
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds the membership cache settings. TTL bounds how stale
// a cached membership may be.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Size          int           `yaml:"size"`
	TTL           time.Duration `yaml:"ttl"`
	RedisURL      string        `yaml:"redis_url"`
	RedisPoolSize int           `yaml:"redis_pool_size"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	// GaugeSchedule is the cron spec of the cache and pool gauge refresh
	GaugeSchedule string `yaml:"gauge_schedule"`

	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"`
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel converts the settings for observability.InitOTel
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:       true,
			Size:          10000,
			TTL:           30 * time.Second,
			RedisPoolSize: 10,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			GaugeSchedule:      "@every 15s",
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    observability.DefaultServiceName,
			OTelServiceVersion: "dev",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads configuration from the file named by COACHGATE_CONFIG_FILE,
// if any, and the environment
func LoadConfig() (*Config, error) {
	return Load(os.Getenv(FileEnv))
}

// Load reads path (skipped when empty) over the defaults, then applies
// COACHGATE_* environment variables, which win over file values
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	s := &c.Server
	s.Host = getEnv("COACHGATE_HOST", s.Host)
	s.Port = getEnv("COACHGATE_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("COACHGATE_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("COACHGATE_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("COACHGATE_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("COACHGATE_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)

	d := &c.Database
	d.URL = getEnv("COACHGATE_DATABASE_URL", d.URL)
	d.MaxOpenConns = getEnvInt("COACHGATE_DATABASE_MAX_OPEN_CONNS", d.MaxOpenConns)
	d.MaxIdleConns = getEnvInt("COACHGATE_DATABASE_MAX_IDLE_CONNS", d.MaxIdleConns)
	d.ConnMaxLifetime = getEnvDuration("COACHGATE_DATABASE_CONN_MAX_LIFETIME", d.ConnMaxLifetime)

	ca := &c.Cache
	ca.Enabled = getEnvBool("COACHGATE_CACHE_ENABLED", ca.Enabled)
	ca.Size = getEnvInt("COACHGATE_CACHE_SIZE", ca.Size)
	ca.TTL = getEnvDuration("COACHGATE_CACHE_TTL", ca.TTL)
	ca.RedisURL = getEnv("COACHGATE_REDIS_URL", ca.RedisURL)
	ca.RedisPoolSize = getEnvInt("COACHGATE_REDIS_POOL_SIZE", ca.RedisPoolSize)

	o := &c.Observability
	o.LogLevel = getEnv("COACHGATE_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("COACHGATE_METRICS_ENABLED", o.MetricsEnabled)
	o.GaugeSchedule = getEnv("COACHGATE_GAUGE_SCHEDULE", o.GaugeSchedule)
	o.OTelEnabled = getEnvBool("COACHGATE_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("COACHGATE_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("COACHGATE_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("COACHGATE_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("COACHGATE_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("COACHGATE_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server port must be numeric: %q", c.Server.Port)
	}

	if c.Database.URL == "" {
		return errors.New("database URL is required")
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return errors.New("database connection limits must not be negative")
	}

	if c.Cache.Enabled {
		if c.Cache.Size <= 0 {
			return errors.New("cache size must be positive when the cache is enabled")
		}
		if c.Cache.TTL <= 0 {
			return errors.New("cache TTL must be positive when the cache is enabled")
		}
	}

	switch strings.ToLower(c.Observability.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Observability.LogLevel)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return errors.New("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if r := c.Observability.OTelSampleRatio; r < 0 || r > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be within [0, 1], got %g", r)
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
