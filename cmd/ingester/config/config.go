// Package config provides configuration parsing for the ingester.
//
// Configuration sources, in order of precedence:
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

const defaultFeedURL = "https://birch.catenarymaps.org/gtfs_rt?feed_id=f-metro~losangeles~bus~rt&feed_type=vehicle&format=json"

// Config holds all ingester configuration.
type Config struct {
	FeedURL       string
	FetchInterval time.Duration
	FlushInterval time.Duration
	Retention     time.Duration

	Store         string
	DataDir       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Listen    string
	LogFormat string
	LogLevel  string
}

// ParseFlags parses command-line flags and environment variables into a
// Config. Exits with status 1 on invalid values.
func ParseFlags() *Config {
	cfg := &Config{}

	// Feed
	flag.StringVar(&cfg.FeedURL, "feed-url", getEnv("FEED_URL", defaultFeedURL), "GTFS-rt vehicle feed URL (JSON format)")
	flag.DurationVar(&cfg.FetchInterval, "fetch-interval", getEnvDuration("FETCH_INTERVAL", 1*time.Second), "Feed fetch cadence")
	flag.DurationVar(&cfg.FlushInterval, "flush-interval", getEnvDuration("FLUSH_INTERVAL", 60*time.Second), "Window flush cadence")
	flag.DurationVar(&cfg.Retention, "retention", getEnvDuration("RETENTION", 48*time.Hour), "Chunk retention span")

	// Storage
	flag.StringVar(&cfg.Store, "store", getEnv("STORE", "fs"), "Chunk store backend: fs, redis or memory")
	flag.StringVar(&cfg.DataDir, "data-dir", getEnv("DATA_DIR", "./data"), "Chunk directory for the fs store")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis address for the redis store")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")

	// Server (health + metrics only)
	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8082"), "HTTP listen address")

	// Logging
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.Parse()

	if cfg.FeedURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -feed-url is required")
		os.Exit(1)
	}
	if cfg.FetchInterval <= 0 || cfg.FlushInterval <= 0 || cfg.Retention <= 0 {
		fmt.Fprintln(os.Stderr, "Error: intervals and retention must be positive")
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
