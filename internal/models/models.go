package models

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// CreateTripRequest - operator creates a scheduled trip
type CreateTripRequest struct {
	BusType     string    `json:"bus_type"`
	Origin      string    `json:"origin" binding:"required"`
	Destination string    `json:"destination" binding:"required"`
	DepartureAt time.Time `json:"departure_at" binding:"required"`
	ArrivalAt   time.Time `json:"arrival_at" binding:"required"`
	TotalSeats  int       `json:"total_seats" binding:"required"`
	PriceCents  int64     `json:"price_cents" binding:"required"`
}

// CreateTripResponse
type CreateTripResponse struct {
	ID int64 `json:"id"`
}

// SeatSnapshot - advisory display data for one trip's seat map
type SeatSnapshot struct {
	TripID           int64          `json:"trip_id"`
	TotalSeats       int            `json:"total_seats"`
	AvailableSeats   int            `json:"available_seats"`
	SeatStates       map[int]string `json:"seat_states"`
	UnavailableSeats []int          `json:"unavailable_seats"`
}

// CreateHoldRequest - requester selects seats before committing
type CreateHoldRequest struct {
	Seats         []int  `json:"seats" binding:"required"`
	PaymentType   string `json:"payment_type"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

// CreateHoldResponse
type CreateHoldResponse struct {
	HoldToken string    `json:"hold_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ConfirmHoldResponse - returned after a hold is committed into a booking
type ConfirmHoldResponse struct {
	Booking    *Booking `json:"booking"`
	OrderID    string   `json:"order_id,omitempty"`
	PaymentKey string   `json:"payment_key,omitempty"`
}

// PaymentKeyResponse - client-facing payment token for an order
type PaymentKeyResponse struct {
	PaymentKey string `json:"payment_key"`
}

// SweepResponse - result of an on-demand expiry sweep
type SweepResponse struct {
	Cancelled int `json:"cancelled"`
}

// PaymentCallback is the normalized form of both provider callback shapes
// (redirect-style and server-to-server webhook).
type PaymentCallback struct {
	OrderID       string
	Success       bool
	TransactionID string
}

// callbackPayload matches the provider's JSON body; fields may be nested
// under an "obj" wrapper.
type callbackPayload struct {
	Obj     *callbackPayload `json:"obj"`
	Order   json.Number      `json:"order"`
	Success any              `json:"success"`
	ID      json.Number      `json:"id"`
}

// ParseCallbackJSON parses a provider callback delivered as a JSON body.
func ParseCallbackJSON(body []byte) (*PaymentCallback, error) {
	var payload callbackPayload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Obj != nil {
		payload = *payload.Obj
	}
	return &PaymentCallback{
		OrderID:       payload.Order.String(),
		Success:       truthy(payload.Success),
		TransactionID: payload.ID.String(),
	}, nil
}

// ParseCallbackQuery parses a provider callback delivered as query params.
func ParseCallbackQuery(params url.Values) *PaymentCallback {
	return &PaymentCallback{
		OrderID:       params.Get("order"),
		Success:       truthy(params.Get("success")),
		TransactionID: params.Get("id"),
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}
