// Package redis implements the cache tier of the hybrid session store
// on top of go-redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/balcao/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.CacheStore using Redis.
type Store struct {
	client *backend.Client
}

// New creates a Redis store from a redis:// URL and verifies the
// connection.
func New(ctx context.Context, url string) (*Store, error) {
	opt, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := backend.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewFromClient creates a Store from an existing client. Used by tests
// to point at miniredis.
func NewFromClient(client *backend.Client) *Store {
	return &Store{client: client}
}

// Get returns the value for key, or domain.ErrSessionNotFound on miss.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == backend.Nil {
			return "", domain.ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// Set stores value under key with the given TTL.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// Del removes the key.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Exists reports whether the key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence in redis: %w", err)
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of the key.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read ttl from redis: %w", err)
	}
	return ttl, nil
}

// Keys returns all keys matching the glob pattern. SCAN is used instead
// of KEYS to stay safe on busy instances.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan redis keys: %w", err)
	}
	return keys, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
