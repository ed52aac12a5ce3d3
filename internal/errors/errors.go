package errors

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Sentinel errors for the booking core. Handlers map these onto HTTP status
// codes, everything else is a 500.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("seat no longer available")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("operation is forbidden for user")
	ErrUpstream     = errors.New("payment provider failure")

	// ErrInvariant marks internal inconsistencies (seat counts out of sync,
	// release of a seat no booking owns). Seeing one is a bug, not a user error.
	ErrInvariant = errors.New("invariant violation")
)

// SeatConflict reports which seats of a commit attempt were already booked.
type SeatConflict struct {
	TripID int64
	Seats  []int
}

func (e *SeatConflict) Error() string {
	parts := make([]string, len(e.Seats))
	for i, s := range e.Seats {
		parts[i] = strconv.Itoa(s)
	}
	return fmt.Sprintf("trip %d: seat(s) %s not available", e.TripID, strings.Join(parts, ", "))
}

func (e *SeatConflict) Unwrap() error { return ErrConflict }

// NewSeatConflict builds a SeatConflict with seats sorted for stable messages.
func NewSeatConflict(tripID int64, seats []int) *SeatConflict {
	sorted := append([]int(nil), seats...)
	sort.Ints(sorted)
	return &SeatConflict{TripID: tripID, Seats: sorted}
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

func Upstreamf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUpstream}, args...)...)
}
