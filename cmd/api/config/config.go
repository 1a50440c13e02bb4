// Package config implements the buspulse api config.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Config holds all api configuration.
type Config struct {
	Listen       string
	SyncInterval time.Duration
	Retention    time.Duration

	Store         string
	DataDir       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogFormat string
	LogLevel  string
}

// ParseFlags parses command-line flags and environment variables into a
// Config. Environment variables are used as fallbacks when flags are not
// provided.
func ParseFlags() *Config {
	cfg := &Config{}

	// Server
	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8081"), "HTTP listen address")

	// Sync
	flag.DurationVar(&cfg.SyncInterval, "sync-interval", getEnvDuration("SYNC_INTERVAL", 10*time.Second), "Chunk discovery and prune cadence")
	flag.DurationVar(&cfg.Retention, "retention", getEnvDuration("RETENTION", 48*time.Hour), "In-memory retention span")

	// Storage
	flag.StringVar(&cfg.Store, "store", getEnv("STORE", "fs"), "Chunk store backend: fs, redis or memory")
	flag.StringVar(&cfg.DataDir, "data-dir", getEnv("DATA_DIR", "./data"), "Chunk directory for the fs store")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis address for the redis store")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")

	// Logging
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.Parse()

	if cfg.SyncInterval <= 0 || cfg.Retention <= 0 {
		fmt.Fprintln(os.Stderr, "Error: sync-interval and retention must be positive")
		os.Exit(1)
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
