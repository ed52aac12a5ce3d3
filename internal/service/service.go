package service

import (
	"context"
	"time"

	"busline/internal/cache"
	"busline/internal/external"
	"busline/internal/hold"
	"busline/internal/messaging"
	"busline/internal/models"
	"busline/internal/repository"
)

// TripStore is the inventory surface the services need.
type TripStore interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id int64) (*models.Trip, error)
	ReleaseSeats(ctx context.Context, tripID int64, seats []int) (int, error)
}

// BookingStore is the durable booking surface the services need.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking, deadline time.Time) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Booking, error)
	SetOrderID(ctx context.Context, id int64, orderID string) error
	DeleteWithRelease(ctx context.Context, booking *models.Booking) error
	ConfirmCash(ctx context.Context, id int64) (*models.Booking, bool, error)
	ApplyPaymentResult(ctx context.Context, id int64, success bool, transactionRef string) (*models.Booking, bool, error)
	Cancel(ctx context.Context, id int64) (*models.Booking, bool, error)
	GetExpired(ctx context.Context, now time.Time) ([]models.Booking, error)
	LiveSeats(ctx context.Context, tripID int64) (map[int]bool, error)
	TripIDsWithBookedSeats(ctx context.Context) ([]int64, error)
}

// HoldStore keeps TTL-bound seat holds.
type HoldStore interface {
	Create(ctx context.Context, h *models.Hold) (*models.Hold, error)
	Get(ctx context.Context, tripID int64, token string) (*models.Hold, error)
	Consume(ctx context.Context, tripID int64, token string) (*models.Hold, error)
}

// PaymentGateway is the payment provider surface.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountCents int64, itemName, description string, quantity int) (string, error)
	PaymentKey(ctx context.Context, orderID string, amountCents int64, billing external.BillingData) (string, error)
}

// Publisher emits lifecycle events; failures never fail the operation.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

type snapshotInvalidator interface {
	Invalidate(ctx context.Context, tripID int64)
}

type Config struct {
	SnapshotTTL     time.Duration
	PaymentDeadline time.Duration
}

type Services struct {
	Trips    *TripService
	Holds    *HoldService
	Bookings *BookingService
	Payments *PaymentService
	Sweeper  *SweeperService
}

func NewServices(repos *repository.Repositories, holds *hold.Store, cacheStore cache.Store, natsClient *messaging.NATSClient, paymentClient *external.PaymentClient, cfg Config) *Services {
	tripService := NewTripService(repos.Trips, cacheStore, cfg.SnapshotTTL)
	holdService := NewHoldService(repos.Trips, holds)
	bookingService := NewBookingService(repos.Bookings, repos.Trips, holds, paymentClient, natsClient, tripService, cfg.PaymentDeadline)
	paymentService := NewPaymentService(repos.Bookings, natsClient, tripService)
	sweeperService := NewSweeperService(repos.Bookings, repos.Trips, natsClient, tripService)

	return &Services{
		Trips:    tripService,
		Holds:    holdService,
		Bookings: bookingService,
		Payments: paymentService,
		Sweeper:  sweeperService,
	}
}
