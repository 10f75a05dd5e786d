// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Storage configuration
	RedisURL     string
	DatabasePath string
	SessionTTL   time.Duration
	SyncInterval time.Duration

	// Catalog configuration
	CatalogPath string
	TaxRate     float64

	// HTTP configuration
	HTTPPort string

	// Service configuration
	LogLevel string
}

func Load() *Config {
	return &Config{
		// Storage settings
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DatabasePath: getEnv("DATABASE_PATH", "balcao.db"),
		SessionTTL:   getDurationEnv("SESSION_TTL", time.Hour),
		SyncInterval: getDurationEnv("SYNC_INTERVAL", 5*time.Minute),

		// Catalog settings
		CatalogPath: getEnv("CATALOG_PATH", ""),
		TaxRate:     getFloatEnv("TAX_RATE", 0.08),

		// HTTP settings
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		// Service settings
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
