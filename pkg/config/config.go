package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all client configuration
type Config struct {
	Backend BackendConfig
	Redis   RedisConfig
	Storage StorageConfig
	Env     string
	// Default server type sent with speed-fix and zip requests
	ServerType string
}

// BackendConfig holds SiteRank backend connection configuration
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// RedisConfig holds Redis configuration for the optional dashboard cache
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// StorageConfig holds local data directory configuration
type StorageConfig struct {
	DataDir string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	dataDir := getEnv("SITERANK_DATA_DIR", "")
	if dataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		dataDir = filepath.Join(base, "siterank")
	}

	return &Config{
		Backend: BackendConfig{
			URL:     getEnv("SITERANK_BACKEND_URL", "http://localhost:8000"),
			Timeout: getEnvAsDuration("SITERANK_HTTP_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("SITERANK_CACHE_ENABLED", false),
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Env:        getEnv("SITERANK_ENV", "development"),
		ServerType: getEnv("SITERANK_SERVER_TYPE", "nginx"),
	}, nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionPath returns the path of the persisted session file
func (c *StorageConfig) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}

// HistoryPath returns the path of the local analysis history database
func (c *StorageConfig) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
