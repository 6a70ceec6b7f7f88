package providers

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines the interface for the shared snapshot cache
type CacheProvider interface {
	// Get retrieves a value from cache, returning ErrCacheMiss when absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)
}
