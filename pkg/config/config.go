// Package config loads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"cartflow/pkg/cart"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds every tunable the service reads at startup.
type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string

	CatalogURL     string
	CatalogFile    string
	CatalogTimeout time.Duration

	StorageBackend string
	StorageKey     string
	RedisAddr      string
	RedisTTL       time.Duration
	DatabaseURL    string

	SessionIdleTTL time.Duration
	MaxSessions    int

	OTelHost   string
	OTelSample float64
}

// Load reads an optional .env file, then the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		CatalogURL:     getEnv("CATALOG_URL", "http://localhost:3333"),
		CatalogFile:    getEnv("CATALOG_FILE", ""),
		CatalogTimeout: getDuration("CATALOG_TIMEOUT", 5*time.Second),

		StorageBackend: getEnv("STORAGE_BACKEND", StorageMemory),
		StorageKey:     getEnv("CART_STORAGE_KEY", cart.DefaultKeyPrefix),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisTTL:       getDuration("REDIS_TTL", 0),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		SessionIdleTTL: getDuration("SESSION_IDLE_TTL", cart.DefaultIdleTTL),
		MaxSessions:    getInt("MAX_SESSIONS", cart.DefaultMaxSessions),

		OTelHost:   getEnv("OTEL_HOST", ""),
		OTelSample: getFloat("OTEL_SAMPLE", 1.0),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return d
}

func getFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return f
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return n
}
