package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buspulse/buspulse/cmd/api/config"
	"github.com/buspulse/buspulse/cmd/api/logger"
	"github.com/buspulse/buspulse/cmd/api/metrics"
	"github.com/buspulse/buspulse/cmd/api/router"
	"github.com/buspulse/buspulse/cmd/api/store"
	"github.com/buspulse/buspulse/pkg/httpx"
	"github.com/buspulse/buspulse/pkg/liveindex"
)

func main() {
	cfg := config.ParseFlags()

	log := logger.New(cfg)
	slog.SetDefault(log)
	m := metrics.New()

	log.Info("starting buspulse api",
		"listen", cfg.Listen,
		"store", cfg.Store,
		"sync_interval", cfg.SyncInterval,
		"retention", cfg.Retention,
	)

	chunkStore := store.New(cfg, log)
	defer func() {
		if closer, ok := chunkStore.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	index := liveindex.New()
	syncer := NewSyncer(chunkStore, index, cfg.Retention, log, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := syncer.Run(ctx, cfg.SyncInterval); err != nil && err != context.Canceled {
			log.Error("sync loop failed", "error", err)
		}
	}()

	rt := router.New(index, log, m)
	httpServer := httpx.NewServer(cfg.Listen, rt.SetupRoutes(), log)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			log.Error("http server failed", "error", err)
		}
	}

	log.Info("shutting down")
	cancel()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		log.Error("http server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}
