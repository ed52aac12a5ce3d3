package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "busline/internal/errors"
	"busline/internal/logger"
	"busline/internal/metrics"
	"busline/internal/models"
)

// PaymentService reconciles provider callbacks with bookings. Both callback
// channels land here; the first to arrive settles the booking and any repeat
// is a no-op.
type PaymentService struct {
	bookings  BookingStore
	nats      Publisher
	snapshots snapshotInvalidator
}

func NewPaymentService(bookings BookingStore, nats Publisher, snapshots snapshotInvalidator) *PaymentService {
	return &PaymentService{
		bookings:  bookings,
		nats:      nats,
		snapshots: snapshots,
	}
}

// HandleCallback applies one provider callback. Unknown order ids are logged
// and acknowledged so the provider stops retrying.
func (s *PaymentService) HandleCallback(ctx context.Context, cb *models.PaymentCallback) error {
	log := logger.WithContext(ctx)

	if cb.OrderID == "" {
		return apperrors.Validationf("callback is missing the order id")
	}

	booking, err := s.bookings.GetByOrderID(ctx, cb.OrderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			metrics.PaymentCallbacks.WithLabelValues("unknown_order").Inc()
			log.Warn("Callback for unknown order", "order_id", cb.OrderID)
			return nil
		}
		return err
	}

	updated, changed, err := s.bookings.ApplyPaymentResult(ctx, booking.ID, cb.Success, cb.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to apply payment result: %w", err)
	}
	if !changed {
		metrics.PaymentCallbacks.WithLabelValues("duplicate").Inc()
		log.Info("Duplicate payment callback ignored",
			"booking_id", updated.ID, "order_id", cb.OrderID, "status", updated.Status)
		return nil
	}

	if cb.Success {
		metrics.PaymentCallbacks.WithLabelValues("success").Inc()
		metrics.BookingsConfirmed.Inc()
		s.publish(ctx, models.EventBookingConfirmed, models.BookingConfirmedEvent{
			BookingID:   updated.ID,
			TripID:      updated.TripID,
			PaymentType: updated.PaymentType,
			Timestamp:   time.Now(),
		})
		log.Info("Payment confirmed",
			"booking_id", updated.ID, "order_id", cb.OrderID, "transaction_id", cb.TransactionID)
		return nil
	}

	metrics.PaymentCallbacks.WithLabelValues("failure").Inc()
	metrics.BookingsCancelled.WithLabelValues("payment_failed").Inc()
	s.snapshots.Invalidate(ctx, updated.TripID)
	s.publish(ctx, models.EventBookingCancelled, models.BookingCancelledEvent{
		BookingID: updated.ID,
		TripID:    updated.TripID,
		Reason:    "payment_failed",
		Timestamp: time.Now(),
	})
	log.Info("Payment failed, booking cancelled",
		"booking_id", updated.ID, "order_id", cb.OrderID)
	return nil
}

func (s *PaymentService) publish(ctx context.Context, subject string, event any) {
	if err := s.nats.Publish(subject, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err, "subject", subject)
	}
}
