package service

import (
	"context"
	"fmt"

	apperrors "busline/internal/errors"
	"busline/internal/logger"
	"busline/internal/metrics"
	"busline/internal/models"
)

// HoldService creates temporary seat holds. The availability check here is
// advisory fail-fast; the binding check happens when the hold is confirmed.
type HoldService struct {
	trips TripStore
	holds HoldStore
}

func NewHoldService(trips TripStore, holds HoldStore) *HoldService {
	return &HoldService{trips: trips, holds: holds}
}

func (s *HoldService) Create(ctx context.Context, tripID int64, user *models.User, req *models.CreateHoldRequest) (*models.CreateHoldResponse, error) {
	if len(req.Seats) == 0 {
		return nil, apperrors.Validationf("at least one seat is required")
	}

	seen := make(map[int]bool, len(req.Seats))
	for _, seat := range req.Seats {
		if seen[seat] {
			return nil, apperrors.Validationf("seat %d requested more than once", seat)
		}
		seen[seat] = true
	}

	paymentType := req.PaymentType
	if paymentType == "" {
		paymentType = models.PayOnline
	}
	switch paymentType {
	case models.PayCash, models.PayOnline, models.PayWallet:
	default:
		return nil, apperrors.Validationf("unknown payment type %q", paymentType)
	}

	customerName, customerPhone := user.Name, user.Phone
	if user.Role == models.RoleAdmin {
		// Admin holds are made on behalf of walk-in customers.
		if req.CustomerName == "" || req.CustomerPhone == "" {
			return nil, apperrors.Validationf("customer_name and customer_phone are required")
		}
		customerName, customerPhone = req.CustomerName, req.CustomerPhone
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	// Advisory pre-check against the current seat map. Seats are not marked
	// unavailable; a racing booking can still win these seats.
	var taken []int
	for _, seat := range req.Seats {
		if seat < 1 || seat > trip.TotalSeats {
			return nil, apperrors.Validationf("seat %d is out of range 1..%d", seat, trip.TotalSeats)
		}
		if trip.Seats[seat] != models.SeatAvailable {
			taken = append(taken, seat)
		}
	}
	if len(taken) > 0 {
		return nil, apperrors.NewSeatConflict(tripID, taken)
	}

	h, err := s.holds.Create(ctx, &models.Hold{
		TripID:        tripID,
		UserID:        user.ID,
		Seats:         req.Seats,
		PaymentType:   paymentType,
		CustomerName:  customerName,
		CustomerPhone: customerPhone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hold: %w", err)
	}

	metrics.HoldsCreated.Inc()
	logger.WithContext(ctx).Info("Hold created",
		"trip_id", tripID, "user_id", user.ID, "seats", req.Seats,
		"expires_at", h.ExpiresAt)

	return &models.CreateHoldResponse{
		HoldToken: h.Token,
		ExpiresAt: h.ExpiresAt,
	}, nil
}
