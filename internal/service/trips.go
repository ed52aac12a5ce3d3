package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"busline/internal/cache"
	apperrors "busline/internal/errors"
	"busline/internal/logger"
	"busline/internal/models"
)

// TripService creates trips and serves the advisory seat snapshot. Snapshots
// are cached briefly and invalidated whenever a commit or release changes the
// seat map; the snapshot is display data, never the basis for a commit.
type TripService struct {
	trips       TripStore
	cache       cache.Store
	snapshotTTL time.Duration
}

func NewTripService(trips TripStore, cacheStore cache.Store, snapshotTTL time.Duration) *TripService {
	return &TripService{
		trips:       trips,
		cache:       cacheStore,
		snapshotTTL: snapshotTTL,
	}
}

func snapshotKey(tripID int64) string {
	return fmt.Sprintf("snapshot:%d", tripID)
}

func (s *TripService) Create(ctx context.Context, req *models.CreateTripRequest) (*models.CreateTripResponse, error) {
	if req.TotalSeats <= 0 {
		return nil, apperrors.Validationf("total_seats must be positive")
	}
	if req.PriceCents < 0 {
		return nil, apperrors.Validationf("price_cents must not be negative")
	}
	if !req.ArrivalAt.After(req.DepartureAt) {
		return nil, apperrors.Validationf("arrival_at must be after departure_at")
	}

	trip := &models.Trip{
		BusType:     req.BusType,
		Origin:      req.Origin,
		Destination: req.Destination,
		DepartureAt: req.DepartureAt,
		ArrivalAt:   req.ArrivalAt,
		TotalSeats:  req.TotalSeats,
		PriceCents:  req.PriceCents,
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	logger.WithContext(ctx).Info("Trip created",
		"trip_id", trip.ID, "origin", trip.Origin, "destination", trip.Destination,
		"total_seats", trip.TotalSeats)

	return &models.CreateTripResponse{ID: trip.ID}, nil
}

func (s *TripService) Get(ctx context.Context, tripID int64) (*models.Trip, error) {
	return s.trips.GetByID(ctx, tripID)
}

// Snapshot returns the trip's seat map for display, cache-aside with a short
// TTL.
func (s *TripService) Snapshot(ctx context.Context, tripID int64) (*models.SeatSnapshot, error) {
	key := snapshotKey(tripID)

	if data, err := s.cache.Get(ctx, key); err == nil {
		var snap models.SeatSnapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			return &snap, nil
		}
		// Corrupt entry falls through to a rebuild.
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	snap := buildSnapshot(trip)

	if data, err := json.Marshal(snap); err == nil {
		if err := s.cache.Set(ctx, key, data, s.snapshotTTL); err != nil {
			logger.WithContext(ctx).Warn("Failed to cache seat snapshot",
				"error", err, "trip_id", tripID)
		}
	}

	return snap, nil
}

// Invalidate drops the cached snapshot after a seat map change. Best effort.
func (s *TripService) Invalidate(ctx context.Context, tripID int64) {
	if err := s.cache.Delete(ctx, snapshotKey(tripID)); err != nil {
		logger.WithContext(ctx).Warn("Failed to invalidate seat snapshot",
			"error", err, "trip_id", tripID)
	}
}

func buildSnapshot(trip *models.Trip) *models.SeatSnapshot {
	states := make(map[int]string, len(trip.Seats))
	unavailable := make([]int, 0)
	for seat, state := range trip.Seats {
		states[seat] = state
		if state != models.SeatAvailable {
			unavailable = append(unavailable, seat)
		}
	}
	sort.Ints(unavailable)

	return &models.SeatSnapshot{
		TripID:           trip.ID,
		TotalSeats:       trip.TotalSeats,
		AvailableSeats:   trip.AvailableSeats,
		SeatStates:       states,
		UnavailableSeats: unavailable,
	}
}
