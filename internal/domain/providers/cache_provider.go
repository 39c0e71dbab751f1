package providers

import (
	"context"
	"errors"
	"time"
)

// CacheProvider is a key/value store with expiry. Login sessions and the
// cached clinic configuration live behind it.
type CacheProvider interface {
	// Get returns the value under key, or ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Touch restarts the expiry of an existing key, or returns ErrCacheMiss
	Touch(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes key; absent keys are not an error
	Delete(ctx context.Context, key string) error
}

// ErrCacheMiss is returned when the key is absent or expired
var ErrCacheMiss = errors.New("cache miss")
