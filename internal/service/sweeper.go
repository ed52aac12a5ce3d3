package service

import (
	"context"
	"time"

	"busline/internal/logger"
	"busline/internal/metrics"
	"busline/internal/models"
)

// SweeperService expires overdue pending bookings and reclaims their seats.
// Each booking is handled in its own transaction so one failure never blocks
// the rest of the batch.
type SweeperService struct {
	bookings  BookingStore
	trips     TripStore
	nats      Publisher
	snapshots snapshotInvalidator
}

func NewSweeperService(bookings BookingStore, trips TripStore, nats Publisher, snapshots snapshotInvalidator) *SweeperService {
	return &SweeperService{
		bookings:  bookings,
		trips:     trips,
		nats:      nats,
		snapshots: snapshots,
	}
}

// Sweep cancels every PENDING booking whose payment deadline is behind now
// and returns how many it expired. A booking settled between the scan and the
// cancel is skipped; running the sweep twice changes nothing the second time.
func (s *SweeperService) Sweep(ctx context.Context, now time.Time) (int, error) {
	log := logger.WithContext(ctx)

	expired, err := s.bookings.GetExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, b := range expired {
		updated, changed, err := s.bookings.Cancel(ctx, b.ID)
		if err != nil {
			log.Error("Failed to expire booking", "error", err, "booking_id", b.ID)
			continue
		}
		if !changed {
			continue
		}

		cancelled++
		metrics.BookingsSwept.Inc()
		metrics.BookingsCancelled.WithLabelValues("expired").Inc()
		s.snapshots.Invalidate(ctx, updated.TripID)
		s.publish(ctx, models.EventBookingExpired, models.BookingExpiredEvent{
			BookingID: updated.ID,
			TripID:    updated.TripID,
			Timestamp: now,
		})
		log.Info("Expired overdue booking",
			"booking_id", updated.ID, "trip_id", updated.TripID, "deadline", b.Deadline)
	}

	if cancelled > 0 {
		log.Info("Sweep finished", "scanned", len(expired), "cancelled", cancelled)
	}
	return cancelled, nil
}

// ReconcileOrphanSeats releases seats marked booked in a trip's seat map that
// no live booking accounts for. Safety net for partial failures; normally a
// no-op.
func (s *SweeperService) ReconcileOrphanSeats(ctx context.Context) (int, error) {
	log := logger.WithContext(ctx)

	tripIDs, err := s.bookings.TripIDsWithBookedSeats(ctx)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, tripID := range tripIDs {
		live, err := s.bookings.LiveSeats(ctx, tripID)
		if err != nil {
			log.Error("Failed to load live seats", "error", err, "trip_id", tripID)
			continue
		}
		trip, err := s.trips.GetByID(ctx, tripID)
		if err != nil {
			log.Error("Failed to load trip", "error", err, "trip_id", tripID)
			continue
		}

		var orphans []int
		for seat, state := range trip.Seats {
			if state == models.SeatBooked && !live[seat] {
				orphans = append(orphans, seat)
			}
		}
		if len(orphans) == 0 {
			continue
		}

		n, err := s.trips.ReleaseSeats(ctx, tripID, orphans)
		if err != nil {
			log.Error("Failed to release orphan seats",
				"error", err, "trip_id", tripID, "seats", orphans)
			continue
		}
		released += n
		s.snapshots.Invalidate(ctx, tripID)
		log.Warn("Released orphan seats", "trip_id", tripID, "seats", orphans)
	}

	return released, nil
}

func (s *SweeperService) publish(ctx context.Context, subject string, event any) {
	if err := s.nats.Publish(subject, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err, "subject", subject)
	}
}
