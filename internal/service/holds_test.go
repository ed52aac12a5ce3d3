package service

import (
	"context"
	"testing"

	apperrors "busline/internal/errors"
	"busline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateHoldAdvisoryOnly(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	trip := env.store.addTrip(10, 2500)

	resp, err := env.holds.Create(ctx, trip.ID, env.passenger, &models.CreateHoldRequest{
		Seats: []int{1, 2},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.HoldToken)
	assert.False(t, resp.ExpiresAt.IsZero())

	// A hold never touches the seat map.
	updated, err := env.store.GetByID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.AvailableSeats)
	assert.Equal(t, models.SeatAvailable, updated.Seats[1])
}

func TestCreateHoldValidation(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	trip := env.store.addTrip(4, 2500)

	_, err := env.holds.Create(ctx, trip.ID, env.passenger, &models.CreateHoldRequest{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.holds.Create(ctx, trip.ID, env.passenger, &models.CreateHoldRequest{Seats: []int{2, 2}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.holds.Create(ctx, trip.ID, env.passenger, &models.CreateHoldRequest{Seats: []int{5}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.holds.Create(ctx, trip.ID, env.passenger, &models.CreateHoldRequest{Seats: []int{0}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.holds.Create(ctx, trip.ID, env.passenger, &models.CreateHoldRequest{
		Seats: []int{1}, PaymentType: "BARTER",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.holds.Create(ctx, 404, env.passenger, &models.CreateHoldRequest{Seats: []int{1}})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreateHoldFailFastOnBookedSeat(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	trip := env.store.addTrip(10, 2500)

	token, err := env.holdFor(ctx, env.passenger, trip.ID, models.PayCash, 3)
	require.NoError(t, err)
	_, err = env.bookings.ConfirmHold(ctx, trip.ID, token, env.passenger)
	require.NoError(t, err)

	_, err = env.holds.Create(ctx, trip.ID, env.other, &models.CreateHoldRequest{Seats: []int{3, 4}})
	var conflict *apperrors.SeatConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []int{3}, conflict.Seats)
}

func TestCreateHoldCustomerIdentity(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	trip := env.store.addTrip(10, 2500)

	// Passenger holds carry the passenger's own profile.
	resp, err := env.holds.Create(ctx, trip.ID, env.passenger, &models.CreateHoldRequest{
		Seats: []int{1}, PaymentType: models.PayCash,
	})
	require.NoError(t, err)
	h, err := env.holdStore.Get(ctx, trip.ID, resp.HoldToken)
	require.NoError(t, err)
	assert.Equal(t, env.passenger.Name, h.CustomerName)
	assert.Equal(t, env.passenger.Phone, h.CustomerPhone)

	// Admin holds require explicit walk-in customer details.
	_, err = env.holds.Create(ctx, trip.ID, env.admin, &models.CreateHoldRequest{
		Seats: []int{2}, PaymentType: models.PayCash,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	resp, err = env.holds.Create(ctx, trip.ID, env.admin, &models.CreateHoldRequest{
		Seats: []int{2}, PaymentType: models.PayCash,
		CustomerName: "Walk In", CustomerPhone: "+201234567890",
	})
	require.NoError(t, err)
	h, err = env.holdStore.Get(ctx, trip.ID, resp.HoldToken)
	require.NoError(t, err)
	assert.Equal(t, "Walk In", h.CustomerName)
	assert.Equal(t, "+201234567890", h.CustomerPhone)
}

func TestOverlappingHoldsBothCreated(t *testing.T) {
	env := newEnv()
	ctx := context.Background()
	trip := env.store.addTrip(10, 2500)

	// Holds are advisory, so two customers can hold the same seat; commit
	// order decides who gets it.
	tokenA, err := env.holdFor(ctx, env.passenger, trip.ID, models.PayCash, 6)
	require.NoError(t, err)
	tokenB, err := env.holdFor(ctx, env.other, trip.ID, models.PayCash, 6)
	require.NoError(t, err)

	_, err = env.bookings.ConfirmHold(ctx, trip.ID, tokenB, env.other)
	require.NoError(t, err)

	_, err = env.bookings.ConfirmHold(ctx, trip.ID, tokenA, env.passenger)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}
