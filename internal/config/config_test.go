package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 6, cfg.Codes.Length)
	assert.Equal(t, 5, cfg.Codes.MaxAttempts)
	assert.EqualValues(t, 100, cfg.RateLimit.GeneralLimit)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.GeneralPeriod)
	assert.EqualValues(t, 10, cfg.RateLimit.CreateLimit)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:test.db")
	t.Setenv("RATE_LIMIT_CREATE_LIMIT", "3")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.PostgresDSN())
	assert.EqualValues(t, 3, cfg.RateLimit.CreateLimit)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoad_RedisURLEnablesRedis(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)

	t.Setenv("REDIS_ENABLED", "false")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  base_url: https://sho.rt
codes:
  length: 8
  max_length: 10
log:
  level: debug
  format: json
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://sho.rt", cfg.Server.BaseURL)
	assert.Equal(t, 8, cfg.Codes.Length)
	assert.Equal(t, 10, cfg.Codes.MaxLength)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Database.Driver = "mysql"
	bad.Codes.MaxLength = 2
	bad.Cache.Beta = 1.5
	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
	assert.Contains(t, err.Error(), "codes.max_length")
	assert.Contains(t, err.Error(), "cache.beta")
}

func TestPostgresDSN_FromFields(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=password dbname=shortlink sslmode=disable", cfg.PostgresDSN())
}
