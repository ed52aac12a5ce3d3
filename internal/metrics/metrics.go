package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "busline_bookings_created_total",
		Help: "Number of bookings created.",
	})

	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "busline_bookings_confirmed_total",
		Help: "Number of bookings that reached CONFIRMED.",
	})

	BookingsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "busline_bookings_cancelled_total",
		Help: "Number of bookings that reached CANCELLED, by reason.",
	}, []string{"reason"})

	SeatConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "busline_seat_conflicts_total",
		Help: "Number of seat commits rejected because a seat was taken.",
	})

	HoldsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "busline_holds_created_total",
		Help: "Number of temporary seat holds created.",
	})

	BookingsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "busline_bookings_swept_total",
		Help: "Number of overdue bookings expired by the sweeper.",
	})

	PaymentCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "busline_payment_callbacks_total",
		Help: "Number of payment provider callbacks processed, by outcome.",
	}, []string{"outcome"})
)
