package ports

import (
	"context"
	"time"
)

// CacheStore is the fast ephemeral tier of the hybrid session store.
// Keys follow the convention "conversation:session:<phone>".
type CacheStore interface {
	// Get returns the value for key, or domain.ErrSessionNotFound on miss.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key with the given TTL (0 = no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes the key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining lifetime of the key.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Keys returns all keys matching the glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
}
