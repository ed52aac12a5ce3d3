package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or its TTL has elapsed.
var ErrMiss = errors.New("cache miss")

// Store is a TTL-expiring key-value store. Holds, provider auth tokens and
// seat snapshots live here; all of it is ephemeral and safe to lose on
// restart. The in-memory store suffices for single-process deployments,
// Redis is required once holds must be visible across workers.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// GetDel atomically fetches and deletes, so a hold can be consumed
	// exactly once even under concurrent confirmation attempts.
	GetDel(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Config selects the backing store. Empty Addr means in-memory.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New returns a Redis-backed store when an address is configured, otherwise
// the in-memory store.
func New(cfg Config) (Store, error) {
	if cfg.Addr == "" {
		return NewMemory(), nil
	}
	return NewRedis(cfg)
}
