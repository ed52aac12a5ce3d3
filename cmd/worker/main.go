package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busline/internal/config"
	"busline/internal/logger"
	"busline/internal/worker"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Separate client id so the worker never collides with the API's NATS
	// session.
	cfg.NATS.ClientID = "busline-worker"

	w, err := worker.New(cfg)
	if err != nil {
		logger.Fatal("Failed to create worker", "error", err)
	}
	if err := w.Start(); err != nil {
		logger.Fatal("Failed to start worker", "error", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info("Shutting down worker")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.Shutdown(ctx); err != nil {
		logger.Get().Error("Error during shutdown", "error", err)
	}

	logger.Get().Info("Worker stopped")
}
