package ports

import (
	"context"
	"time"
)

// StoredSession is the durable representation of a conversation session.
// State uses the storage vocabulary, which is narrower than the internal
// enumeration; pkg/session owns the mapping between the two.
type StoredSession struct {
	Phone        string
	State        string
	ContextJSON  []byte
	CustomerID   string
	LastActivity time.Time
	ExpiresAt    time.Time
}

// SessionRepository is the durable tier of the hybrid session store: a
// relational-style repository keyed by phone number with an expires_at
// column. It is the source of truth; the cache tier only shaves latency.
type SessionRepository interface {
	// FindByPhone returns the stored session, or domain.ErrSessionNotFound.
	FindByPhone(ctx context.Context, phone string) (*StoredSession, error)

	// Create inserts a new row. Implementations may upsert: the sync
	// sweep relies on idempotent writes keyed by phone number.
	Create(ctx context.Context, s *StoredSession) error

	// Update upserts the row for s.Phone.
	Update(ctx context.Context, s *StoredSession) error

	// Delete removes the row. Deleting an absent row is not an error.
	Delete(ctx context.Context, phone string) error

	// FindActive returns all rows whose expires_at is in the future.
	FindActive(ctx context.Context) ([]*StoredSession, error)
}
