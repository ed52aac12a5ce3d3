package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"busline/internal/database"
	apperrors "busline/internal/errors"
	"busline/internal/models"
)

const bookingColumns = `id, trip_id, user_id, customer_name, customer_phone, seats, seats_booked,
	       total_price_cents, payment_type, payment_status, status,
	       payment_order_id, payment_reference, deadline, created_at, updated_at`

type BookingRepository struct {
	db    *database.DB
	trips *TripRepository
}

func NewBookingRepository(db *database.DB, trips *TripRepository) *BookingRepository {
	return &BookingRepository{db: db, trips: trips}
}

// Create commits the booking's seats and inserts the record as one atomic
// unit. On a seat conflict nothing is persisted and the conflict error is
// returned to the caller so the client can reselect. The total price is
// captured from the trip's price at commit time and never recomputed.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking, deadline time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	priceCents, err := r.trips.CommitSeatsTx(ctx, tx, booking.TripID, booking.Seats, booking.SeatsBooked)
	if err != nil {
		return err
	}

	booking.TotalPriceCents = priceCents * int64(booking.SeatsBooked)
	booking.Status = models.BookingPending
	booking.PaymentStatus = models.PaymentPending
	booking.Deadline = deadline

	query := `
		INSERT INTO bookings (trip_id, user_id, customer_name, customer_phone, seats,
		                      seats_booked, total_price_cents, payment_type,
		                      payment_status, status, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		booking.TripID,
		booking.UserID,
		booking.CustomerName,
		booking.CustomerPhone,
		booking.Seats,
		booking.SeatsBooked,
		booking.TotalPriceCents,
		booking.PaymentType,
		booking.PaymentStatus,
		booking.Status,
		booking.Deadline,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	return tx.Commit()
}

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	booking := &models.Booking{}
	err := row.Scan(
		&booking.ID,
		&booking.TripID,
		&booking.UserID,
		&booking.CustomerName,
		&booking.CustomerPhone,
		&booking.Seats,
		&booking.SeatsBooked,
		&booking.TotalPriceCents,
		&booking.PaymentType,
		&booking.PaymentStatus,
		&booking.Status,
		&booking.PaymentOrderID,
		&booking.PaymentRef,
		&booking.Deadline,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	return booking, err
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("booking %d does not exist", id)
	}
	return booking, err
}

func (r *BookingRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_order_id = $1`
	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("booking with order %s does not exist", orderID)
	}
	return booking, err
}

// SetOrderID attaches the external payment order id. The unique index on
// payment_order_id rejects a second booking claiming the same order.
func (r *BookingRepository) SetOrderID(ctx context.Context, id int64, orderID string) error {
	query := `UPDATE bookings SET payment_order_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, orderID, id)
	return err
}

// DeleteWithRelease removes a booking and returns its seats in one
// transaction. This is the rollback path for a PENDING booking whose
// provider order could not be created.
func (r *BookingRepository) DeleteWithRelease(ctx context.Context, booking *models.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := r.trips.ReleaseSeatsTx(ctx, tx, booking.TripID, booking.Seats); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, booking.ID); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return tx.Commit()
}

// finalize moves a PENDING booking into a terminal state. The status flip
// and any seat release happen in one transaction, so a crash cannot leave
// seats lost or double-released. If the booking is already terminal the
// call is a no-op and the current record is returned with transitioned=false.
func (r *BookingRepository) finalize(ctx context.Context, id int64, status, paymentStatus string, paymentType, ref *string, releaseSeats bool) (*models.Booking, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	booking, err := scanBooking(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, false, apperrors.NotFoundf("booking %d does not exist", id)
	}
	if err != nil {
		return nil, false, err
	}

	if booking.Terminal() {
		return booking, false, tx.Commit()
	}

	if releaseSeats {
		if _, err := r.trips.ReleaseSeatsTx(ctx, tx, booking.TripID, booking.Seats); err != nil {
			return nil, false, err
		}
	}

	booking.Status = status
	booking.PaymentStatus = paymentStatus
	if paymentType != nil {
		booking.PaymentType = *paymentType
	}
	if ref != nil {
		booking.PaymentRef = ref
	}

	update := `
		UPDATE bookings
		SET status = $1, payment_status = $2, payment_type = $3,
		    payment_reference = $4, updated_at = NOW()
		WHERE id = $5`
	if _, err := tx.ExecContext(ctx, update,
		booking.Status,
		booking.PaymentStatus,
		booking.PaymentType,
		booking.PaymentRef,
		booking.ID,
	); err != nil {
		return nil, false, fmt.Errorf("failed to update booking: %w", err)
	}

	return booking, true, tx.Commit()
}

// ConfirmCash settles a PENDING booking paid in cash.
func (r *BookingRepository) ConfirmCash(ctx context.Context, id int64) (*models.Booking, bool, error) {
	cash := models.PayCash
	return r.finalize(ctx, id, models.BookingConfirmed, models.PaymentPaid, &cash, nil, false)
}

// ApplyPaymentResult maps a provider outcome onto the booking. Success
// confirms, failure cancels and releases the seats. Re-applying a result to
// an already-terminal booking is a no-op.
func (r *BookingRepository) ApplyPaymentResult(ctx context.Context, id int64, success bool, transactionRef string) (*models.Booking, bool, error) {
	var ref *string
	if transactionRef != "" {
		ref = &transactionRef
	}
	if success {
		return r.finalize(ctx, id, models.BookingConfirmed, models.PaymentPaid, nil, ref, false)
	}
	return r.finalize(ctx, id, models.BookingCancelled, models.PaymentFailed, nil, ref, true)
}

// Cancel cancels a PENDING booking and releases its seats. Cancelling an
// already-cancelled booking is a no-op.
func (r *BookingRepository) Cancel(ctx context.Context, id int64) (*models.Booking, bool, error) {
	return r.finalize(ctx, id, models.BookingCancelled, models.PaymentFailed, nil, nil, true)
}

// GetExpired returns PENDING bookings whose payment deadline has passed.
func (r *BookingRepository) GetExpired(ctx context.Context, now time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = 'PENDING' AND deadline < $1
		ORDER BY deadline ASC`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	return bookings, rows.Err()
}

// LiveSeats returns the union of seat numbers held by PENDING or CONFIRMED
// bookings of a trip. Used by the reconciliation pass to spot committed
// seats that no live booking owns.
func (r *BookingRepository) LiveSeats(ctx context.Context, tripID int64) (map[int]bool, error) {
	query := `SELECT seats FROM bookings WHERE trip_id = $1 AND status IN ('PENDING', 'CONFIRMED')`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	live := make(map[int]bool)
	for rows.Next() {
		var seats models.SeatList
		if err := rows.Scan(&seats); err != nil {
			return nil, err
		}
		for _, seat := range seats {
			live[seat] = true
		}
	}
	return live, rows.Err()
}

// TripIDsWithBookedSeats lists trips whose seat map has at least one booked
// seat, for reconciliation sweeps.
func (r *BookingRepository) TripIDsWithBookedSeats(ctx context.Context) ([]int64, error) {
	query := `SELECT id FROM trips WHERE available_seats < total_seats`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
