package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/balcao/internal/logging"
	"github.com/aretw0/balcao/pkg/domain"
	"github.com/aretw0/balcao/pkg/observability"
	"github.com/aretw0/balcao/pkg/ports"
)

// DefaultTTL is the inactivity window after which a session is treated
// as absent. Matches the common deployment default of one hour.
const DefaultTTL = time.Hour

// lockEntry holds the per-phone mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Stats is the operational snapshot exposed for dashboards.
type Stats struct {
	TotalSessions   int                               `json:"total_sessions"`
	SessionsByState map[domain.ConversationState]int  `json:"sessions_by_state"`
}

// Manager is the hybrid session store. The durable repository is the
// source of truth; the cache tier shaves I/O latency off the hot path of
// every chat turn. Per-phone refcounted mutexes serialize concurrent
// get-modify-put cycles against the same phone number.
type Manager struct {
	cache   ports.CacheStore
	durable ports.SessionRepository
	ttl     time.Duration
	retry   retryPolicy

	mu    sync.Mutex
	locks map[string]*lockEntry

	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures the Manager.
type Option func(*Manager)

// WithTTL overrides the session inactivity window.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithLogger configures a logger for internal events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics wires Prometheus instrumentation.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a hybrid store over the given tiers.
func NewManager(cache ports.CacheStore, durable ports.SessionRepository, opts ...Option) *Manager {
	m := &Manager{
		cache:   cache,
		durable: durable,
		ttl:     DefaultTTL,
		retry:   defaultRetryPolicy,
		locks:   make(map[string]*lockEntry),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the configured inactivity window.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// acquire gets or creates a lock entry and increments its refcount.
func (m *Manager) acquire(phone string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[phone]
	if !exists {
		entry = &lockEntry{}
		m.locks[phone] = entry
	}
	entry.refs++
	return entry
}

// release decrements the refcount and garbage collects the entry.
func (m *Manager) release(phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[phone]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, phone)
	}
}

// WithLock executes fn while holding the lock for the phone number.
func (m *Manager) WithLock(ctx context.Context, phone string, fn func(context.Context) error) error {
	entry := m.acquire(phone)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(phone)
	}()
	return fn(ctx)
}

// Get returns the live session for the phone number, creating a fresh
// one in GREETING when neither tier holds a live copy. Callers never
// see "not found" on this path; use Peek for targeted lookups.
func (m *Manager) Get(ctx context.Context, phone string) (*domain.ConversationSession, error) {
	var s *domain.ConversationSession
	err := m.WithLock(ctx, phone, func(ctx context.Context) error {
		var err error
		s, err = m.getLocked(ctx, phone)
		return err
	})
	return s, err
}

// Mutate loads the live session (auto-creating in GREETING on a full
// miss), runs fn against it and persists the result, all while holding
// the phone's lock. Concurrent mutations of the same conversation are
// serialized; an error from fn aborts without persisting.
func (m *Manager) Mutate(ctx context.Context, phone string, fn func(ctx context.Context, s *domain.ConversationSession) error) (*domain.ConversationSession, error) {
	var s *domain.ConversationSession
	err := m.WithLock(ctx, phone, func(ctx context.Context) error {
		var err error
		s, err = m.getLocked(ctx, phone)
		if err != nil {
			return err
		}
		if err := fn(ctx, s); err != nil {
			return err
		}
		s.Touch()
		return m.persist(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) getLocked(ctx context.Context, phone string) (*domain.ConversationSession, error) {
	if s := m.readLive(ctx, phone); s != nil {
		return s, nil
	}

	// Neither tier has a live session: auto-create.
	s := domain.NewSession(phone, domain.StateGreeting)
	if err := m.persist(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", phone, err)
	}
	return s, nil
}

// readLive tries cache then durable, repairing the cache on a durable
// restore and actively deleting expired entries instead of serving
// stale state. Returns nil on a full miss.
func (m *Manager) readLive(ctx context.Context, phone string) *domain.ConversationSession {
	now := time.Now().UTC()

	// Cache tier.
	var raw string
	err := m.retry.do(ctx, m.logger, m.metrics, "cache.get", func(ctx context.Context) error {
		var err error
		raw, err = m.cache.Get(ctx, cacheKey(phone))
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil // definitive miss, not a transient failure
		}
		return err
	})
	if err == nil && raw != "" {
		s, decodeErr := decodeCache(raw)
		switch {
		case decodeErr != nil:
			m.logger.Warn("dropping undecodable cached session", "phone", phone, "err", decodeErr)
			_ = m.cache.Del(ctx, cacheKey(phone))
		case s.ExpiredAt(now, m.ttl):
			m.deleteBothTiers(ctx, phone)
		default:
			m.metrics.CacheHit()
			return s
		}
	}
	m.metrics.CacheMiss()

	// Durable tier.
	var row *ports.StoredSession
	err = m.retry.do(ctx, m.logger, m.metrics, "durable.find", func(ctx context.Context) error {
		var err error
		row, err = m.durable.FindByPhone(ctx, phone)
		if errors.Is(err, domain.ErrSessionNotFound) {
			row = nil
			return nil
		}
		return err
	})
	if err != nil || row == nil {
		return nil
	}

	s, decodeErr := fromStored(row)
	if decodeErr != nil {
		m.logger.Warn("dropping undecodable durable session", "phone", phone, "err", decodeErr)
		return nil
	}
	if s.ExpiredAt(now, m.ttl) {
		m.deleteBothTiers(ctx, phone)
		return nil
	}

	// Restore: repair the cache so the next read is a hit.
	if encoded, encErr := encodeCache(s); encErr == nil {
		if setErr := m.cache.Set(ctx, cacheKey(phone), encoded, m.ttl); setErr != nil {
			m.logger.Warn("failed to repair cache after durable restore", "phone", phone, "err", setErr)
		}
	}
	return s
}

// Create starts a session in the given state, replacing any existing one.
func (m *Manager) Create(ctx context.Context, phone string, initial domain.ConversationState, customerID string) (*domain.ConversationSession, error) {
	s := domain.NewSession(phone, initial)
	s.CustomerID = customerID
	err := m.WithLock(ctx, phone, func(ctx context.Context) error {
		return m.persist(ctx, s)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", phone, err)
	}
	return s, nil
}

// Peek is the targeted lookup used by maintenance operations. Unlike
// Get it does not auto-create: a full miss is domain.ErrSessionNotFound.
func (m *Manager) Peek(ctx context.Context, phone string) (*domain.ConversationSession, error) {
	var s *domain.ConversationSession
	err := m.WithLock(ctx, phone, func(ctx context.Context) error {
		s = m.readLive(ctx, phone)
		if s == nil {
			return domain.ErrSessionNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update persists the session to both tiers, durable first. The write
// reports success if either tier accepted it: chat continuity is not
// broken by a durable hiccup, at the cost of the session being at risk
// until the next successful durable write or sync sweep.
func (m *Manager) Update(ctx context.Context, s *domain.ConversationSession) error {
	return m.WithLock(ctx, s.Phone, func(ctx context.Context) error {
		s.Touch()
		return m.persist(ctx, s)
	})
}

func (m *Manager) persist(ctx context.Context, s *domain.ConversationSession) error {
	var durableErr, cacheErr error

	row, err := toStored(s, m.ttl)
	if err != nil {
		durableErr = err
	} else {
		durableErr = m.retry.do(ctx, m.logger, m.metrics, "durable.update", func(ctx context.Context) error {
			return m.durable.Update(ctx, row)
		})
	}
	if durableErr != nil {
		m.logger.Warn("durable session write failed, relying on cache tier",
			"phone", s.Phone, "err", durableErr)
	}

	encoded, err := encodeCache(s)
	if err != nil {
		cacheErr = err
	} else {
		cacheErr = m.retry.do(ctx, m.logger, m.metrics, "cache.set", func(ctx context.Context) error {
			return m.cache.Set(ctx, cacheKey(s.Phone), encoded, m.ttl)
		})
	}

	if durableErr != nil && cacheErr != nil {
		return fmt.Errorf("both storage tiers rejected the write: durable: %v; cache: %w", durableErr, cacheErr)
	}
	return nil
}

// Delete removes the session from both tiers.
func (m *Manager) Delete(ctx context.Context, phone string) error {
	return m.WithLock(ctx, phone, func(ctx context.Context) error {
		m.deleteBothTiers(ctx, phone)
		return nil
	})
}

func (m *Manager) deleteBothTiers(ctx context.Context, phone string) {
	if err := m.cache.Del(ctx, cacheKey(phone)); err != nil {
		m.logger.Warn("failed to delete cached session", "phone", phone, "err", err)
	}
	if err := m.durable.Delete(ctx, phone); err != nil {
		m.logger.Warn("failed to delete durable session", "phone", phone, "err", err)
	}
}

// CountActive returns the number of live sessions. Degrades to zero
// when the durable tier is unreachable.
func (m *Manager) CountActive(ctx context.Context) int {
	rows := m.findActive(ctx)
	m.metrics.SetActiveSessions(len(rows))
	return len(rows)
}

// GetStats returns totals and a by-state breakdown for dashboards. The
// breakdown uses the internal enumeration restored from the durable
// vocabulary, so folded states surface as their restore target.
func (m *Manager) GetStats(ctx context.Context) Stats {
	stats := Stats{SessionsByState: make(map[domain.ConversationState]int)}
	for _, row := range m.findActive(ctx) {
		stats.TotalSessions++
		stats.SessionsByState[DecodeState(row.State)]++
	}
	m.metrics.SetActiveSessions(stats.TotalSessions)
	return stats
}

func (m *Manager) findActive(ctx context.Context) []*ports.StoredSession {
	var rows []*ports.StoredSession
	err := m.retry.do(ctx, m.logger, m.metrics, "durable.findActive", func(ctx context.Context) error {
		var err error
		rows, err = m.durable.FindActive(ctx)
		return err
	})
	if err != nil {
		m.logger.Warn("failed to enumerate active sessions", "err", err)
		return nil
	}
	return rows
}

// SyncActiveToDurable reconciles cache-resident sessions back into the
// durable tier. Used as a periodic repair after the durable tier was
// briefly unavailable; safe to run concurrently with normal traffic
// because the writes are idempotent upserts keyed by phone number.
func (m *Manager) SyncActiveToDurable(ctx context.Context) (int, error) {
	keys, err := m.cache.Keys(ctx, KeyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate cached sessions: %w", err)
	}

	synced := 0
	for _, key := range keys {
		phone := strings.TrimPrefix(key, KeyPrefix)
		err := m.WithLock(ctx, phone, func(ctx context.Context) error {
			raw, err := m.cache.Get(ctx, key)
			if err != nil {
				return nil // evicted between Keys and Get
			}
			s, err := decodeCache(raw)
			if err != nil {
				m.logger.Warn("skipping undecodable cached session during sync", "key", key, "err", err)
				return nil
			}
			row, err := toStored(s, m.ttl)
			if err != nil {
				return err
			}
			if err := m.durable.Update(ctx, row); err != nil {
				return err
			}
			synced++
			return nil
		})
		if err != nil {
			m.logger.Warn("failed to sync session to durable store", "key", key, "err", err)
		}
	}
	return synced, nil
}
