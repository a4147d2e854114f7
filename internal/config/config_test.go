package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("BLOCK_CONFIG_CACHE_TTL", "")

	cfg := Load()
	assert.Equal(t, "3001", cfg.Port)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 5*time.Minute, cfg.BlockConfigCacheTTL)
	assert.Equal(t, 200, cfg.RateLimitGlobal)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("BLOCK_CONFIG_CACHE_TTL", "30s")
	t.Setenv("RATE_LIMIT_DISPATCH", "5")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.BlockConfigCacheTTL)
	assert.Equal(t, 5, cfg.RateLimitDispatch)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("BLOCK_CONFIG_CACHE_TTL", "soon")
	t.Setenv("RATE_LIMIT_DISPATCH", "-3")

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.BlockConfigCacheTTL)
	assert.Equal(t, 30, cfg.RateLimitDispatch)
}

func TestValidate(t *testing.T) {
	cfg := &Config{MongoURI: "mongodb://localhost"}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "s3cret"
	assert.NoError(t, cfg.Validate())

	cfg.Environment = "production"
	assert.Error(t, cfg.Validate())

	cfg.EncryptionMasterKey = "00"
	assert.NoError(t, cfg.Validate())
}
