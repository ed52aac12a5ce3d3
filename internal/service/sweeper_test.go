package service

import (
	"context"
	"testing"
	"time"

	"busline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiresOverdueOnly(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	trip := env.store.addTrip(10, 2500)

	overdue := pendingOnlineBooking(t, env, trip.ID, 1, 2)
	fresh := pendingOnlineBooking(t, env, trip.ID, 3, 4)

	// Push the first booking past its deadline.
	env.store.mu.Lock()
	env.store.bookings[overdue.Booking.ID].Deadline = time.Now().Add(-time.Minute)
	env.store.mu.Unlock()

	cancelled, err := env.sweeper.Sweep(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	b, err := env.store.GetBookingByID(ctx, overdue.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, b.Status)

	b, err = env.store.GetBookingByID(ctx, fresh.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)

	// Only the overdue booking's seats came back.
	updated, err := env.store.GetByID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, updated.AvailableSeats)
	assert.Equal(t, 1, env.pub.published(models.EventBookingExpired))
}

func TestSweepTwiceIsIdempotent(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	trip := env.store.addTrip(10, 2500)

	overdue := pendingOnlineBooking(t, env, trip.ID)
	env.store.mu.Lock()
	env.store.bookings[overdue.Booking.ID].Deadline = time.Now().Add(-time.Minute)
	env.store.mu.Unlock()

	first, err := env.sweeper.Sweep(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := env.sweeper.Sweep(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, second)

	updated, err := env.store.GetByID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.AvailableSeats)
	assert.Equal(t, 1, env.pub.published(models.EventBookingExpired))
}

func TestSweepSkipsSettledBooking(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	trip := env.store.addTrip(10, 2500)

	resp := pendingOnlineBooking(t, env, trip.ID)
	env.store.mu.Lock()
	env.store.bookings[resp.Booking.ID].Deadline = time.Now().Add(-time.Minute)
	env.store.mu.Unlock()

	// Payment lands between the scan and the cancel. Cancel sees a terminal
	// booking and leaves it alone.
	require.NoError(t, env.payments.HandleCallback(ctx, &models.PaymentCallback{
		OrderID: resp.OrderID, Success: true, TransactionID: "txn_late",
	}))

	cancelled, err := env.sweeper.Sweep(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, cancelled)

	b, err := env.store.GetBookingByID(ctx, resp.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)
}

func TestReconcileOrphanSeats(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	trip := env.store.addTrip(10, 2500)

	// A booking holds seats 1 and 2; seat 9 is booked in the map with no
	// booking behind it.
	token, err := env.holdFor(ctx, env.passenger, trip.ID, models.PayCash, 1, 2)
	require.NoError(t, err)
	_, err = env.bookings.ConfirmHold(ctx, trip.ID, token, env.passenger)
	require.NoError(t, err)

	env.store.mu.Lock()
	env.store.trips[trip.ID].Seats[9] = models.SeatBooked
	env.store.trips[trip.ID].AvailableSeats--
	env.store.mu.Unlock()

	released, err := env.sweeper.ReconcileOrphanSeats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	updated, err := env.store.GetByID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeatAvailable, updated.Seats[9])
	assert.Equal(t, models.SeatBooked, updated.Seats[1])
	assert.Equal(t, 8, updated.AvailableSeats)

	// A second pass finds nothing to fix.
	released, err = env.sweeper.ReconcileOrphanSeats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
}
