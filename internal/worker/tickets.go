package worker

import (
	"context"
	"encoding/json"
	"time"

	"busline/internal/logger"
	"busline/internal/models"
	"busline/internal/notify"

	"github.com/nats-io/stan.go"
)

// handleBookingConfirmed mails the ticket for a confirmed booking. The
// message is acked even when delivery fails: a confirmed booking is never
// rewound over a lost email, and redelivery storms help nobody.
func (w *Worker) handleBookingConfirmed(msg *stan.Msg) {
	defer func() {
		if err := msg.Ack(); err != nil {
			logger.Get().Error("Failed to ack message", "error", err)
		}
	}()

	var event models.BookingConfirmedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Get().Error("Malformed booking confirmed event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.deliverTicket(ctx, event.BookingID); err != nil {
		logger.Get().Error("Ticket delivery failed",
			"error", err, "booking_id", event.BookingID)
	}
}

func (w *Worker) deliverTicket(ctx context.Context, bookingID int64) error {
	booking, err := w.repos.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status != models.BookingConfirmed {
		logger.Get().Info("Skipping ticket for non-confirmed booking",
			"booking_id", bookingID, "status", booking.Status)
		return nil
	}

	trip, err := w.repos.Trips.GetByID(ctx, booking.TripID)
	if err != nil {
		return err
	}
	user, err := w.repos.Users.GetByID(ctx, booking.UserID)
	if err != nil {
		return err
	}

	ref := ""
	if booking.PaymentRef != nil {
		ref = *booking.PaymentRef
	}

	return w.notifier.SendTicket(ctx, notify.TicketData{
		BookingID:       booking.ID,
		CustomerName:    booking.CustomerName,
		CustomerPhone:   booking.CustomerPhone,
		CustomerEmail:   user.Email,
		Origin:          trip.Origin,
		Destination:     trip.Destination,
		DepartureAt:     trip.DepartureAt,
		ArrivalAt:       trip.ArrivalAt,
		Seats:           booking.Seats,
		SeatsBooked:     booking.SeatsBooked,
		TotalPriceCents: booking.TotalPriceCents,
		PaymentType:     booking.PaymentType,
		PaymentRef:      ref,
	})
}
