package repository

import (
	"context"
	"database/sql"
	"fmt"

	"busline/internal/database"
	apperrors "busline/internal/errors"
	"busline/internal/models"
)

// TripRepository owns the seat map of each trip. All seat mutations go
// through CommitSeats/ReleaseSeats, which serialize on the trip row via
// SELECT ... FOR UPDATE so that two overlapping commits cannot both succeed.
type TripRepository struct {
	db *database.DB
}

func NewTripRepository(db *database.DB) *TripRepository {
	return &TripRepository{db: db}
}

func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	if trip.TotalSeats <= 0 {
		return apperrors.Validationf("total_seats must be positive")
	}
	trip.AvailableSeats = trip.TotalSeats
	trip.Seats = models.NewSeatMap(trip.TotalSeats)
	if trip.BusType == "" {
		trip.BusType = "STANDARD"
	}

	query := `
		INSERT INTO trips (bus_type, origin, destination, departure_at, arrival_at,
		                   total_seats, available_seats, seats, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		trip.BusType,
		trip.Origin,
		trip.Destination,
		trip.DepartureAt,
		trip.ArrivalAt,
		trip.TotalSeats,
		trip.AvailableSeats,
		trip.Seats,
		trip.PriceCents,
	).Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
}

func (r *TripRepository) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	trip := &models.Trip{}
	query := `
		SELECT id, bus_type, origin, destination, departure_at, arrival_at,
		       total_seats, available_seats, seats, price_cents, created_at, updated_at
		FROM trips
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&trip.ID,
		&trip.BusType,
		&trip.Origin,
		&trip.Destination,
		&trip.DepartureAt,
		&trip.ArrivalAt,
		&trip.TotalSeats,
		&trip.AvailableSeats,
		&trip.Seats,
		&trip.PriceCents,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("trip %d does not exist", id)
	}

	return trip, err
}

// lockedTrip is the mutable slice of a trip row held under FOR UPDATE.
type lockedTrip struct {
	totalSeats     int
	availableSeats int
	seats          models.SeatMap
	priceCents     int64
}

func lockTrip(ctx context.Context, tx *sql.Tx, tripID int64) (*lockedTrip, error) {
	lt := &lockedTrip{}
	query := `
		SELECT total_seats, available_seats, seats, price_cents
		FROM trips
		WHERE id = $1
		FOR UPDATE`

	err := tx.QueryRowContext(ctx, query, tripID).Scan(
		&lt.totalSeats,
		&lt.availableSeats,
		&lt.seats,
		&lt.priceCents,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("trip %d does not exist", tripID)
	}
	return lt, err
}

func saveSeats(ctx context.Context, tx *sql.Tx, tripID int64, lt *lockedTrip) error {
	query := `UPDATE trips SET seats = $1, available_seats = $2, updated_at = NOW() WHERE id = $3`
	_, err := tx.ExecContext(ctx, query, lt.seats, lt.availableSeats, tripID)
	return err
}

// CommitSeatsTx verifies and books the listed seats inside the caller's
// transaction. Either every seat flips to booked or nothing changes; the
// returned price is the per-seat price captured at commit time.
func (r *TripRepository) CommitSeatsTx(ctx context.Context, tx *sql.Tx, tripID int64, seats []int, expectedCount int) (int64, error) {
	if len(seats) != expectedCount {
		return 0, apperrors.Validationf("number of selected seats must match seats booked")
	}

	lt, err := lockTrip(ctx, tx, tripID)
	if err != nil {
		return 0, err
	}

	if lt.availableSeats < expectedCount {
		return 0, apperrors.NewSeatConflict(tripID, seats)
	}

	var conflicts []int
	seen := make(map[int]bool, len(seats))
	for _, seat := range seats {
		if seat < 1 || seat > lt.totalSeats {
			return 0, apperrors.Validationf("seat %d is outside 1..%d", seat, lt.totalSeats)
		}
		if seen[seat] {
			return 0, apperrors.Validationf("seat %d selected more than once", seat)
		}
		seen[seat] = true
		if lt.seats[seat] != models.SeatAvailable {
			conflicts = append(conflicts, seat)
		}
	}
	if len(conflicts) > 0 {
		return 0, apperrors.NewSeatConflict(tripID, conflicts)
	}

	for _, seat := range seats {
		lt.seats[seat] = models.SeatBooked
	}
	lt.availableSeats -= expectedCount

	if err := saveSeats(ctx, tx, tripID, lt); err != nil {
		return 0, fmt.Errorf("failed to commit seats: %w", err)
	}
	return lt.priceCents, nil
}

// ReleaseSeatsTx returns the listed seats to available inside the caller's
// transaction. Seats that are already available are skipped, so a retried
// cancellation releases each seat at most once.
func (r *TripRepository) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, tripID int64, seats []int) (int, error) {
	lt, err := lockTrip(ctx, tx, tripID)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, seat := range seats {
		if seat < 1 || seat > lt.totalSeats {
			continue
		}
		if lt.seats[seat] == models.SeatBooked {
			lt.seats[seat] = models.SeatAvailable
			released++
		}
	}
	if released == 0 {
		return 0, nil
	}

	lt.availableSeats += released
	if lt.availableSeats > lt.totalSeats {
		return 0, fmt.Errorf("%w: trip %d available_seats would exceed total", apperrors.ErrInvariant, tripID)
	}

	if err := saveSeats(ctx, tx, tripID, lt); err != nil {
		return 0, fmt.Errorf("failed to release seats: %w", err)
	}
	return released, nil
}

// CommitSeats books seats as a standalone atomic unit.
func (r *TripRepository) CommitSeats(ctx context.Context, tripID int64, seats []int, expectedCount int) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	price, err := r.CommitSeatsTx(ctx, tx, tripID, seats, expectedCount)
	if err != nil {
		return 0, err
	}
	return price, tx.Commit()
}

// ReleaseSeats releases seats as a standalone atomic unit. Safe to call
// twice for the same seat set.
func (r *TripRepository) ReleaseSeats(ctx context.Context, tripID int64, seats []int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	released, err := r.ReleaseSeatsTx(ctx, tx, tripID, seats)
	if err != nil {
		return 0, err
	}
	return released, tx.Commit()
}
