package models

import "time"

// NATS subjects for booking lifecycle events
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"
)

// BookingCreatedEvent is published when a hold is committed into a booking
type BookingCreatedEvent struct {
	BookingID int64     `json:"booking_id"`
	TripID    int64     `json:"trip_id"`
	UserID    int64     `json:"user_id"`
	Seats     []int     `json:"seats"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingConfirmedEvent triggers ticket delivery in the worker
type BookingConfirmedEvent struct {
	BookingID   int64     `json:"booking_id"`
	TripID      int64     `json:"trip_id"`
	PaymentType string    `json:"payment_type"`
	Timestamp   time.Time `json:"timestamp"`
}

// BookingCancelledEvent is published on explicit cancel or payment failure
type BookingCancelledEvent struct {
	BookingID int64     `json:"booking_id"`
	TripID    int64     `json:"trip_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingExpiredEvent is published by the expiry sweeper
type BookingExpiredEvent struct {
	BookingID int64     `json:"booking_id"`
	TripID    int64     `json:"trip_id"`
	Timestamp time.Time `json:"timestamp"`
}
