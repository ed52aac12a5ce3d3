package hold

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"busline/internal/cache"
	apperrors "busline/internal/errors"
	"busline/internal/models"

	"github.com/google/uuid"
)

// Store keeps temporary seat holds in the TTL cache. A hold is advisory: it
// never marks trip seats unavailable. The scarce-resource guarantee lives in
// the inventory's atomic seat commit, which re-validates availability when
// the hold is confirmed.
type Store struct {
	cache cache.Store
	ttl   time.Duration
}

func NewStore(c cache.Store, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

func key(tripID int64, token string) string {
	return fmt.Sprintf("hold:%d:%s", tripID, token)
}

// Create stores a hold under a fresh opaque token and returns it.
func (s *Store) Create(ctx context.Context, h *models.Hold) (*models.Hold, error) {
	h.Token = uuid.New().String()
	h.CreatedAt = time.Now()
	h.ExpiresAt = h.CreatedAt.Add(s.ttl)

	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key(h.TripID, h.Token), data, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store hold: %w", err)
	}
	return h, nil
}

// Get returns the hold, or ErrNotFound once the TTL has elapsed.
func (s *Store) Get(ctx context.Context, tripID int64, token string) (*models.Hold, error) {
	data, err := s.cache.Get(ctx, key(tripID, token))
	if err == cache.ErrMiss {
		return nil, apperrors.NotFoundf("hold %s expired or does not exist", token)
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// Consume atomically fetches and deletes the hold, so it can be confirmed
// at most once.
func (s *Store) Consume(ctx context.Context, tripID int64, token string) (*models.Hold, error) {
	data, err := s.cache.GetDel(ctx, key(tripID, token))
	if err == cache.ErrMiss {
		return nil, apperrors.NotFoundf("hold %s expired or does not exist", token)
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func decode(data []byte) (*models.Hold, error) {
	var h models.Hold
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("corrupt hold payload: %w", err)
	}
	return &h, nil
}
