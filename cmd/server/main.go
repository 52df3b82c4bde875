package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hsinghweb/web-history-search-rag/internal/api"
	"github.com/hsinghweb/web-history-search-rag/internal/backend"
	"github.com/hsinghweb/web-history-search-rag/internal/config"
	"github.com/hsinghweb/web-history-search-rag/internal/exclude"
	"github.com/hsinghweb/web-history-search-rag/internal/indexer"
	"github.com/hsinghweb/web-history-search-rag/internal/messenger"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bc := backend.NewClient(cfg.BackendURL)

	ix := indexer.New(bc, exclude.New(cfg.ExcludedHosts), log, cfg.QueueSize, cfg.WorkerCount)
	ix.Start(ctx)

	dispatcher := messenger.NewDispatcher(log, messenger.Config{
		InjectDelay: cfg.InjectDelay,
		SendRetries: cfg.SendRetries,
		RetryDelay:  cfg.RetryDelay,
	})

	srv := api.NewServer(bc, ix, dispatcher, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		ix.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		bc.Close()
	}()

	log.Info("starting web-history-search", "port", cfg.Port, "backend", cfg.BackendURL)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
