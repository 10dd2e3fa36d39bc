package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/platinummonkey/coachgate/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDatabaseURL = "postgres://coachgate@localhost/coachgate?sslmode=disable"

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "coachgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("COACHGATE_DATABASE_URL", testDatabaseURL)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, testDatabaseURL, cfg.Database.URL)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.Level())
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("COACHGATE_DATABASE_URL", testDatabaseURL)
	t.Setenv("COACHGATE_PORT", "9000")
	t.Setenv("COACHGATE_CACHE_TTL", "5s")
	t.Setenv("COACHGATE_CACHE_SIZE", "64")
	t.Setenv("COACHGATE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("COACHGATE_LOG_LEVEL", "debug")
	t.Setenv("COACHGATE_OTEL_ENABLED", "1")
	t.Setenv("COACHGATE_OTEL_SAMPLE_RATIO", "0.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 64, cfg.Cache.Size)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.Level())

	otel := cfg.Observability.OTel()
	assert.True(t, otel.Enabled)
	assert.Equal(t, 0.5, otel.SampleRatio)
	assert.Equal(t, observability.DefaultServiceName, otel.ServiceName)
}

func TestLoad_FileOverlay(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
server:
  port: "7070"
database:
  url: postgres://from-file
cache:
  ttl: 10s
  redis_url: redis://cache:6379/1
observability:
  log_level: warn
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "7070", cfg.Server.Port)
		assert.Equal(t, "postgres://from-file", cfg.Database.URL)
		assert.Equal(t, 10*time.Second, cfg.Cache.TTL)
		assert.Equal(t, 10000, cfg.Cache.Size)
		assert.Equal(t, observability.WarnLevel, cfg.Observability.Level())
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("COACHGATE_PORT", "9999")
		t.Setenv("COACHGATE_LOG_LEVEL", "error")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "9999", cfg.Server.Port)
		assert.Equal(t, observability.ErrorLevel, cfg.Observability.Level())
		assert.Equal(t, "postgres://from-file", cfg.Database.URL)
	})

	t.Run("via environment variable", func(t *testing.T) {
		t.Setenv(FileEnv, path)

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "7070", cfg.Server.Port)
	})
}

func TestLoad_FileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "server: [unterminated")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Database.URL = testDatabaseURL
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"non numeric port", func(c *Config) { c.Server.Port = "http" }, "server port must be numeric"},
		{"missing database", func(c *Config) { c.Database.URL = "" }, "database URL is required"},
		{"negative pool", func(c *Config) { c.Database.MaxOpenConns = -1 }, "must not be negative"},
		{"zero cache size", func(c *Config) { c.Cache.Size = 0 }, "cache size must be positive"},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }, "cache TTL must be positive"},
		{"disabled cache skips limits", func(c *Config) { c.Cache.Enabled = false; c.Cache.Size = 0 }, ""},
		{"bad log level", func(c *Config) { c.Observability.LogLevel = "verbose" }, "invalid log level"},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}, "endpoint is required"},
		{"otel bad ratio", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelSampleRatio = 2
		}, "sample ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("COACHGATE_TEST_INT", "not-a-number")
	t.Setenv("COACHGATE_TEST_DURATION", "soon")
	t.Setenv("COACHGATE_TEST_BOOL", "TRUE")

	assert.Equal(t, 3, getEnvInt("COACHGATE_TEST_INT", 3))
	assert.Equal(t, time.Second, getEnvDuration("COACHGATE_TEST_DURATION", time.Second))
	assert.True(t, getEnvBool("COACHGATE_TEST_BOOL", false))
	assert.Equal(t, "fallback", getEnv("COACHGATE_TEST_UNSET", "fallback"))
	assert.Equal(t, 0.1, getEnvFloat("COACHGATE_TEST_UNSET", 0.1))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "database:\n  url: postgres://watch\nobservability:\n  log_level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 16)
	require.NoError(t, Watch(ctx, path, observability.NewNopLogger(), func(cfg *Config) {
		changes <- cfg
	}))

	// an unrelated file in the same directory is ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o600))
	writeFile(t, dir, "database:\n  url: postgres://watch\nobservability:\n  log_level: debug\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			assert.Equal(t, "postgres://watch", cfg.Database.URL)
			if cfg.Observability.Level() == observability.DebugLevel {
				return
			}
		case <-deadline:
			t.Fatal("no reload with the new log level")
		}
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent", "coachgate.yaml"), observability.NewNopLogger(), func(*Config) {})
	assert.Error(t, err)
}
