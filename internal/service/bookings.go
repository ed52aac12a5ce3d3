package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "busline/internal/errors"
	"busline/internal/external"
	"busline/internal/logger"
	"busline/internal/metrics"
	"busline/internal/models"
)

// BookingService turns holds into durable bookings and drives the booking
// state machine for the online payment flow.
type BookingService struct {
	bookings  BookingStore
	trips     TripStore
	holds     HoldStore
	payment   PaymentGateway
	nats      Publisher
	snapshots snapshotInvalidator
	deadline  time.Duration
}

func NewBookingService(bookings BookingStore, trips TripStore, holds HoldStore, payment PaymentGateway, nats Publisher, snapshots snapshotInvalidator, deadline time.Duration) *BookingService {
	return &BookingService{
		bookings:  bookings,
		trips:     trips,
		holds:     holds,
		payment:   payment,
		nats:      nats,
		snapshots: snapshots,
		deadline:  deadline,
	}
}

// ConfirmHold consumes the hold and commits its seats into a booking. Seat
// availability is re-validated inside the commit transaction; the hold itself
// guarantees nothing. Cash bookings confirm immediately. Online bookings stay
// PENDING with a payment deadline and get a provider order plus payment key.
func (s *BookingService) ConfirmHold(ctx context.Context, tripID int64, token string, user *models.User) (*models.ConfirmHoldResponse, error) {
	log := logger.WithContext(ctx)

	h, err := s.holds.Get(ctx, tripID, token)
	if err != nil {
		return nil, err
	}
	if h.UserID != user.ID && user.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: hold belongs to another user", apperrors.ErrUnauthorized)
	}

	// Consume-once: a concurrent confirm of the same token loses here.
	h, err = s.holds.Consume(ctx, tripID, token)
	if err != nil {
		return nil, err
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		TripID:        tripID,
		UserID:        h.UserID,
		CustomerName:  h.CustomerName,
		CustomerPhone: h.CustomerPhone,
		Seats:         models.SeatList(h.Seats),
		SeatsBooked:   len(h.Seats),
		PaymentType:   h.PaymentType,
	}

	if err := s.bookings.Create(ctx, booking, time.Now().Add(s.deadline)); err != nil {
		var conflict *apperrors.SeatConflict
		if errors.As(err, &conflict) {
			metrics.SeatConflicts.Inc()
			log.Info("Seat commit lost to a concurrent booking",
				"trip_id", tripID, "seats", conflict.Seats)
		}
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	s.snapshots.Invalidate(ctx, tripID)
	s.publish(ctx, models.EventBookingCreated, models.BookingCreatedEvent{
		BookingID: booking.ID,
		TripID:    tripID,
		UserID:    booking.UserID,
		Seats:     h.Seats,
		Timestamp: time.Now(),
	})

	if booking.PaymentType == models.PayCash {
		confirmed, changed, err := s.bookings.ConfirmCash(ctx, booking.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to confirm cash booking: %w", err)
		}
		if changed {
			metrics.BookingsConfirmed.Inc()
			s.publish(ctx, models.EventBookingConfirmed, models.BookingConfirmedEvent{
				BookingID:   confirmed.ID,
				TripID:      confirmed.TripID,
				PaymentType: confirmed.PaymentType,
				Timestamp:   time.Now(),
			})
		}
		log.Info("Cash booking confirmed", "booking_id", confirmed.ID, "trip_id", tripID)
		return &models.ConfirmHoldResponse{Booking: confirmed}, nil
	}

	description := fmt.Sprintf("%s to %s", trip.Origin, trip.Destination)
	orderID, err := s.payment.CreateOrder(ctx, booking.TotalPriceCents, "Bus Ticket", description, booking.SeatsBooked)
	if err != nil {
		// Without a provider order the booking can never be paid, so the
		// seats go back immediately instead of waiting for the sweeper.
		if delErr := s.bookings.DeleteWithRelease(ctx, booking); delErr != nil {
			log.Error("Failed to roll back booking after order failure",
				"error", delErr, "booking_id", booking.ID)
		}
		s.snapshots.Invalidate(ctx, tripID)
		return nil, err
	}

	if err := s.bookings.SetOrderID(ctx, booking.ID, orderID); err != nil {
		// A pending booking without an order id can never be settled by a
		// callback, so it gets the same rollback as an order failure.
		if delErr := s.bookings.DeleteWithRelease(ctx, booking); delErr != nil {
			log.Error("Failed to roll back booking after order id attach failure",
				"error", delErr, "booking_id", booking.ID)
		}
		s.snapshots.Invalidate(ctx, tripID)
		return nil, fmt.Errorf("failed to attach order id: %w", err)
	}
	booking.PaymentOrderID = &orderID

	resp := &models.ConfirmHoldResponse{Booking: booking, OrderID: orderID}

	key, err := s.paymentKey(ctx, orderID, booking, user)
	if err != nil {
		// The booking and order survive; the client retries key generation
		// through the payment key endpoint.
		log.Warn("Failed to generate payment key",
			"error", err, "booking_id", booking.ID, "order_id", orderID)
		return resp, nil
	}
	resp.PaymentKey = key

	log.Info("Online booking pending payment",
		"booking_id", booking.ID, "trip_id", tripID, "order_id", orderID,
		"deadline", booking.Deadline)
	return resp, nil
}

// PaymentKeyForOrder regenerates the client payment token for a pending order.
func (s *BookingService) PaymentKeyForOrder(ctx context.Context, orderID string, user *models.User) (*models.PaymentKeyResponse, error) {
	booking, err := s.bookings.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != user.ID && user.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: booking belongs to another user", apperrors.ErrUnauthorized)
	}
	if booking.Status != models.BookingPending {
		return nil, apperrors.Validationf("booking is already %s", booking.Status)
	}

	key, err := s.paymentKey(ctx, orderID, booking, user)
	if err != nil {
		return nil, err
	}
	return &models.PaymentKeyResponse{PaymentKey: key}, nil
}

// Get looks a booking up by numeric id, falling back to provider order id.
func (s *BookingService) Get(ctx context.Context, idOrOrderID string, user *models.User) (*models.Booking, error) {
	var booking *models.Booking

	if id, err := strconv.ParseInt(idOrOrderID, 10, 64); err == nil {
		booking, err = s.bookings.GetByID(ctx, id)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}
	if booking == nil {
		var err error
		booking, err = s.bookings.GetByOrderID(ctx, idOrOrderID)
		if err != nil {
			return nil, err
		}
	}

	if booking.UserID != user.ID && user.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: booking belongs to another user", apperrors.ErrUnauthorized)
	}
	return booking, nil
}

// Cancel moves a booking to CANCELLED and releases its seats. Terminal
// bookings are left untouched and returned as-is.
func (s *BookingService) Cancel(ctx context.Context, id int64) (*models.Booking, error) {
	booking, changed, err := s.bookings.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return booking, nil
	}

	metrics.BookingsCancelled.WithLabelValues("admin").Inc()
	s.snapshots.Invalidate(ctx, booking.TripID)
	s.publish(ctx, models.EventBookingCancelled, models.BookingCancelledEvent{
		BookingID: booking.ID,
		TripID:    booking.TripID,
		Reason:    "cancelled_by_admin",
		Timestamp: time.Now(),
	})

	logger.WithContext(ctx).Info("Booking cancelled",
		"booking_id", booking.ID, "trip_id", booking.TripID)
	return booking, nil
}

func (s *BookingService) paymentKey(ctx context.Context, orderID string, booking *models.Booking, user *models.User) (string, error) {
	first, last := splitName(booking.CustomerName)
	return s.payment.PaymentKey(ctx, orderID, booking.TotalPriceCents, external.BillingData{
		FirstName: first,
		LastName:  last,
		Phone:     booking.CustomerPhone,
		Email:     user.Email,
	})
}

func (s *BookingService) publish(ctx context.Context, subject string, event any) {
	if err := s.nats.Publish(subject, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err, "subject", subject)
	}
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
