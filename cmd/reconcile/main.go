package main

import (
	"context"
	"flag"
	"time"

	"busline/internal/cache"
	"busline/internal/config"
	"busline/internal/database"
	"busline/internal/logger"
	"busline/internal/messaging"
	"busline/internal/repository"
	"busline/internal/service"
)

// One-shot maintenance pass: expire overdue bookings, then release any seats
// the seat maps hold that no live booking accounts for. The worker runs the
// same passes continuously; this binary is for running them by hand.
func main() {
	var skipSweep bool
	flag.BoolVar(&skipSweep, "skip-sweep", false, "Only reconcile orphan seats, do not expire bookings")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	cacheStore, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to connect to cache", "error", err)
	}

	repos := repository.NewRepositories(db)
	tripService := service.NewTripService(repos.Trips, cacheStore, cfg.SnapshotCacheTTL)
	// Disabled NATS client: publishing is a no-op when run as a CLI.
	sweeper := service.NewSweeperService(repos.Bookings, repos.Trips, (*messaging.NATSClient)(nil), tripService)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if !skipSweep {
		cancelled, err := sweeper.Sweep(ctx, time.Now())
		if err != nil {
			logger.Fatal("Sweep failed", "error", err)
		}
		log.Info("Sweep completed", "cancelled", cancelled)
	}

	released, err := sweeper.ReconcileOrphanSeats(ctx)
	if err != nil {
		logger.Fatal("Reconcile failed", "error", err)
	}
	log.Info("Reconcile completed", "orphan_seats_released", released)
}
