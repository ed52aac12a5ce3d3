package worker

import (
	"context"
	"time"

	"busline/internal/cache"
	"busline/internal/config"
	"busline/internal/database"
	"busline/internal/logger"
	"busline/internal/messaging"
	"busline/internal/models"
	"busline/internal/notify"
	"busline/internal/repository"
	"busline/internal/service"

	"github.com/nats-io/stan.go"
)

// Worker runs the background side of the booking lifecycle: the expiry
// sweeper, the orphan seat reconciler and ticket delivery for confirmed
// bookings.
type Worker struct {
	cfg      *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	sweeper  *service.SweeperService
	notifier *notify.Notifier

	sub  stan.Subscription
	stop chan struct{}
	done chan struct{}
}

func New(cfg *config.Config) (*Worker, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	cacheStore, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)
	tripService := service.NewTripService(repos.Trips, cacheStore, cfg.SnapshotCacheTTL)
	sweeper := service.NewSweeperService(repos.Bookings, repos.Trips, natsClient, tripService)

	return &Worker{
		cfg:      cfg,
		db:       db,
		nats:     natsClient,
		repos:    repos,
		sweeper:  sweeper,
		notifier: notify.NewNotifier(cfg.SMTP),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (w *Worker) Start() error {
	sub, err := w.nats.SubscribeQueue(models.EventBookingConfirmed, "workers", w.handleBookingConfirmed)
	if err != nil {
		logger.Get().Warn("Ticket delivery disabled", "error", err)
	} else {
		w.sub = sub
	}

	go w.runSweepLoop()

	logger.Get().Info("Worker started",
		"sweep_interval", w.cfg.SweepInterval, "ticket_delivery", w.sub != nil)
	return nil
}

func (w *Worker) runSweepLoop() {
	defer close(w.done)

	sweepTicker := time.NewTicker(w.cfg.SweepInterval)
	defer sweepTicker.Stop()
	reconcileTicker := time.NewTicker(time.Hour)
	defer reconcileTicker.Stop()

	// One reconcile pass on startup picks up anything left over from a
	// previous crash.
	w.reconcile()

	for {
		select {
		case <-sweepTicker.C:
			w.sweep()
		case <-reconcileTicker.C:
			w.reconcile()
		case <-w.stop:
			return
		}
	}
}

func (w *Worker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.SweepInterval)
	defer cancel()

	if _, err := w.sweeper.Sweep(ctx, time.Now()); err != nil {
		logger.Get().Error("Sweep failed", "error", err)
	}
}

func (w *Worker) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := w.sweeper.ReconcileOrphanSeats(ctx); err != nil {
		logger.Get().Error("Orphan seat reconcile failed", "error", err)
	}
}

func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.stop)

	select {
	case <-w.done:
	case <-ctx.Done():
	}

	if w.sub != nil {
		if err := w.sub.Close(); err != nil {
			logger.Get().Error("Error closing subscription", "error", err)
		}
	}
	if err := w.nats.Close(); err != nil {
		logger.Get().Error("Error closing NATS connection", "error", err)
	}
	return w.db.Close()
}
