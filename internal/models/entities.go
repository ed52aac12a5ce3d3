package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Seat states within a trip's seat map.
const (
	SeatAvailable = "available"
	SeatBooked    = "booked"
)

// Booking statuses. CONFIRMED and CANCELLED are terminal.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Payment statuses tracked alongside the booking status.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentFailed  = "FAILED"
)

// Payment types.
const (
	PayCash   = "CASH"
	PayOnline = "ONLINE"
	PayWallet = "WALLET"
)

// User roles.
const (
	RolePassenger = "passenger"
	RoleAdmin     = "admin"
)

// SeatMap maps seat number (1..total) to its state. Stored as JSONB with
// string keys, matching the trips.seats column.
type SeatMap map[int]string

func NewSeatMap(totalSeats int) SeatMap {
	m := make(SeatMap, totalSeats)
	for i := 1; i <= totalSeats; i++ {
		m[i] = SeatAvailable
	}
	return m
}

func (m SeatMap) Value() (driver.Value, error) {
	raw := make(map[string]string, len(m))
	for seat, state := range m {
		raw[strconv.Itoa(seat)] = state
	}
	return json.Marshal(raw)
}

func (m *SeatMap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SeatMap", src)
	}

	raw := make(map[string]string)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(SeatMap, len(raw))
	for key, state := range raw {
		seat, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("invalid seat number %q in seat map", key)
		}
		out[seat] = state
	}
	*m = out
	return nil
}

// SeatList is a booking's seat numbers, stored as a JSONB array.
type SeatList []int

func (l SeatList) Value() (driver.Value, error) {
	return json.Marshal([]int(l))
}

func (l *SeatList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SeatList", src)
	}
	return json.Unmarshal(data, (*[]int)(l))
}

// Trip is one scheduled journey with a fixed-size seat map.
type Trip struct {
	ID             int64     `json:"id"`
	BusType        string    `json:"bus_type"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartureAt    time.Time `json:"departure_at"`
	ArrivalAt      time.Time `json:"arrival_at"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	Seats          SeatMap   `json:"seats"`
	PriceCents     int64     `json:"price_cents"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Booking is the durable sale record. Seats listed here are marked booked in
// the trip's seat map while status is PENDING or CONFIRMED.
type Booking struct {
	ID              int64     `json:"id"`
	TripID          int64     `json:"trip_id"`
	UserID          int64     `json:"user_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	Seats           SeatList  `json:"seats"`
	SeatsBooked     int       `json:"seats_booked"`
	TotalPriceCents int64     `json:"total_price_cents"`
	PaymentType     string    `json:"payment_type"`
	PaymentStatus   string    `json:"payment_status"`
	Status          string    `json:"status"`
	PaymentOrderID  *string   `json:"payment_order_id,omitempty"`
	PaymentRef      *string   `json:"payment_reference,omitempty"`
	Deadline        time.Time `json:"deadline"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Terminal reports whether no further status transitions are permitted.
func (b *Booking) Terminal() bool {
	return b.Status == BookingConfirmed || b.Status == BookingCancelled
}

// User is the authenticated actor. Identity issuance lives elsewhere; this
// service only verifies tokens and reads the profile.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Hold is an advisory, TTL-bound claim on seats prior to a durable booking.
// It never marks trip seats unavailable; availability is re-validated at
// commit time.
type Hold struct {
	Token         string    `json:"token"`
	TripID        int64     `json:"trip_id"`
	UserID        int64     `json:"user_id"`
	Seats         []int     `json:"seats"`
	PaymentType   string    `json:"payment_type"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}
