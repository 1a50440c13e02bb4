// Package store initializes the chunk store backend for the api service.
//
// It is a fail-fast factory: backend connectivity is validated at startup and
// the process exits immediately on a broken storage configuration, so the api
// never serves while unable to discover chunks.
package store

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/buspulse/buspulse/cmd/api/config"
	"github.com/buspulse/buspulse/pkg/chunkstore"
)

// New creates the chunk store selected by cfg.Store. Never returns nil; calls
// os.Exit(1) on initialization failure.
func New(cfg *config.Config, logger *slog.Logger) chunkstore.Store {
	switch cfg.Store {
	case "fs":
		logger.Info("initializing fs chunk store", "dir", cfg.DataDir)
		s, err := chunkstore.NewFSStore(cfg.DataDir)
		if err != nil {
			logger.Error("failed to open data dir", "error", err)
			os.Exit(1)
		}
		return s

	case "redis":
		logger.Info("initializing redis chunk store",
			"addr", cfg.RedisAddr,
			"db", cfg.RedisDB,
		)
		s, err := chunkstore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Retention)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			logger.Error("redis health check failed", "error", err)
			os.Exit(1)
		}
		return s

	case "memory":
		logger.Info("initializing in-memory chunk store")
		return chunkstore.NewMemoryStore()

	default:
		logger.Error("invalid store type", "store", cfg.Store)
		os.Exit(1)
	}

	return nil
}
