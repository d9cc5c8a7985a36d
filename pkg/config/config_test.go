package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_BackendConfig(t *testing.T) {
	// Setup environment variables
	os.Setenv("SITERANK_BACKEND_URL", "https://api.siterank.test")
	os.Setenv("SITERANK_HTTP_TIMEOUT", "5s")
	defer func() {
		os.Unsetenv("SITERANK_BACKEND_URL")
		os.Unsetenv("SITERANK_HTTP_TIMEOUT")
	}()

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "https://api.siterank.test", cfg.Backend.URL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
}

func TestLoad_Defaults(t *testing.T) {
	// Ensure env vars are cleared
	os.Unsetenv("SITERANK_BACKEND_URL")
	os.Unsetenv("SITERANK_SERVER_TYPE")
	os.Unsetenv("SITERANK_CACHE_ENABLED")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, "nginx", cfg.ServerType)
	assert.False(t, cfg.Redis.Enabled)
	assert.NotEmpty(t, cfg.Storage.DataDir)
}

func TestRedisConfig_RedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
}
