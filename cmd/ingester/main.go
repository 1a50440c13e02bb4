package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buspulse/buspulse/cmd/ingester/config"
	"github.com/buspulse/buspulse/cmd/ingester/logger"
	"github.com/buspulse/buspulse/cmd/ingester/metrics"
	"github.com/buspulse/buspulse/cmd/ingester/router"
	"github.com/buspulse/buspulse/cmd/ingester/store"
	"github.com/buspulse/buspulse/pkg/gtfs"
	"github.com/buspulse/buspulse/pkg/httpx"
)

func main() {
	cfg := config.ParseFlags()

	log := logger.New(cfg)
	slog.SetDefault(log)
	m := metrics.New()

	log.Info("starting buspulse ingester",
		"feed_url", cfg.FeedURL,
		"store", cfg.Store,
		"flush_interval", cfg.FlushInterval,
		"retention", cfg.Retention,
	)

	chunkStore := store.New(cfg, log)
	defer func() {
		if closer, ok := chunkStore.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	feed := &gtfs.HTTPFeed{URL: cfg.FeedURL}
	ing := New(feed, chunkStore, cfg.Retention, log, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- ing.Run(ctx, cfg.FetchInterval, cfg.FlushInterval)
	}()

	httpServer := httpx.NewServer(cfg.Listen, router.SetupRoutes(log), log)
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
	<-loopErr // waits for the final window flush

	if err := httpServer.Stop(10 * time.Second); err != nil {
		log.Error("http server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}
