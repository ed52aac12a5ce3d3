package repository

import (
	"context"
	"testing"
	"time"

	"busline/internal/database"
	apperrors "busline/internal/errors"
	"busline/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBookingRepo(t *testing.T) (*BookingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	wrapped := &database.DB{DB: db}
	return NewBookingRepository(wrapped, NewTripRepository(wrapped)), mock
}

func bookingRow(id int64, status, paymentStatus string, seats string, deadline time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "trip_id", "user_id", "customer_name", "customer_phone", "seats", "seats_booked",
		"total_price_cents", "payment_type", "payment_status", "status",
		"payment_order_id", "payment_reference", "deadline", "created_at", "updated_at",
	}).AddRow(id, int64(1), int64(42), "Amina Hassan", "01012345678", []byte(seats), 2,
		int64(5000), models.PayOnline, paymentStatus, status,
		nil, nil, deadline, time.Now(), time.Now())
}

func TestCreateCommitsSeatsAndInserts(t *testing.T) {
	repo, mock := newBookingRepo(t)
	deadline := time.Now().Add(2 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT total_seats, available_seats, seats, price_cents").
		WithArgs(int64(1)).
		WillReturnRows(lockRows(10, 10, `{"1":"available","2":"available","3":"available","4":"available","5":"available","6":"available","7":"available","8":"available","9":"available","10":"available"}`, 2500))
	mock.ExpectExec("UPDATE trips SET seats").
		WithArgs(sqlmock.AnyArg(), 8, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(int64(1), int64(42), "Amina Hassan", "01012345678", sqlmock.AnyArg(),
			2, int64(5000), models.PayOnline, models.PaymentPending, models.BookingPending, deadline).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(9), time.Now(), time.Now()))
	mock.ExpectCommit()

	booking := &models.Booking{
		TripID:        1,
		UserID:        42,
		CustomerName:  "Amina Hassan",
		CustomerPhone: "01012345678",
		Seats:         models.SeatList{3, 4},
		SeatsBooked:   2,
		PaymentType:   models.PayOnline,
	}
	err := repo.Create(context.Background(), booking, deadline)
	require.NoError(t, err)
	assert.Equal(t, int64(9), booking.ID)
	assert.Equal(t, int64(5000), booking.TotalPriceCents)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSeatConflictPersistsNothing(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT total_seats, available_seats, seats, price_cents").
		WithArgs(int64(1)).
		WillReturnRows(lockRows(2, 1, `{"1":"booked","2":"available"}`, 2500))
	mock.ExpectRollback()

	booking := &models.Booking{
		TripID:      1,
		UserID:      42,
		Seats:       models.SeatList{1},
		SeatsBooked: 1,
		PaymentType: models.PayOnline,
	}
	err := repo.Create(context.Background(), booking, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReleasesSeatsAtomically(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = ").
		WithArgs(int64(9)).
		WillReturnRows(bookingRow(9, models.BookingPending, models.PaymentPending, `[3,4]`, time.Now()))
	mock.ExpectQuery("SELECT total_seats, available_seats, seats, price_cents").
		WithArgs(int64(1)).
		WillReturnRows(lockRows(10, 8, `{"1":"available","2":"available","3":"booked","4":"booked","5":"available","6":"available","7":"available","8":"available","9":"available","10":"available"}`, 2500))
	mock.ExpectExec("UPDATE trips SET seats").
		WithArgs(sqlmock.AnyArg(), 10, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings").
		WithArgs(models.BookingCancelled, models.PaymentFailed, models.PayOnline, nil, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, transitioned, err := repo.Cancel(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, models.BookingCancelled, booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTerminalIsNoOp(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = ").
		WithArgs(int64(9)).
		WillReturnRows(bookingRow(9, models.BookingCancelled, models.PaymentFailed, `[3,4]`, time.Now()))
	mock.ExpectCommit()

	booking, transitioned, err := repo.Cancel(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, models.BookingCancelled, booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentResultSuccessKeepsSeats(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = ").
		WithArgs(int64(9)).
		WillReturnRows(bookingRow(9, models.BookingPending, models.PaymentPending, `[3,4]`, time.Now()))
	// No trip lock: seats stay booked on success.
	mock.ExpectExec("UPDATE bookings").
		WithArgs(models.BookingConfirmed, models.PaymentPaid, models.PayOnline, sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, transitioned, err := repo.ApplyPaymentResult(context.Background(), 9, true, "txn_123")
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.Equal(t, models.PaymentPaid, booking.PaymentStatus)
	require.NotNil(t, booking.PaymentRef)
	assert.Equal(t, "txn_123", *booking.PaymentRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = ").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetExpired(t *testing.T) {
	repo, mock := newBookingRepo(t)
	now := time.Now()

	rows := bookingRow(9, models.BookingPending, models.PaymentPending, `[3,4]`, now.Add(-time.Minute))
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs(now).
		WillReturnRows(rows)

	expired, err := repo.GetExpired(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, int64(9), expired[0].ID)
}
