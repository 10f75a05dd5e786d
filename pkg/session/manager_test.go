package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisadapter "github.com/aretw0/balcao/pkg/adapters/redis"
	"github.com/aretw0/balcao/pkg/adapters/sqlite"
	"github.com/aretw0/balcao/pkg/domain"
	"github.com/aretw0/balcao/pkg/ports"
	"github.com/aretw0/balcao/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyRepository wraps a real repository and fails on demand, to
// exercise the degraded write path and the sync sweep.
type flakyRepository struct {
	ports.SessionRepository
	mu   sync.Mutex
	down bool
}

func (f *flakyRepository) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyRepository) failing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down
}

func (f *flakyRepository) Update(ctx context.Context, s *ports.StoredSession) error {
	if f.failing() {
		return errors.New("durable tier unavailable")
	}
	return f.SessionRepository.Update(ctx, s)
}

func (f *flakyRepository) FindByPhone(ctx context.Context, phone string) (*ports.StoredSession, error) {
	if f.failing() {
		return nil, errors.New("durable tier unavailable")
	}
	return f.SessionRepository.FindByPhone(ctx, phone)
}

func newManager(t *testing.T, opts ...session.Option) (*session.Manager, *redisadapter.Store, *flakyRepository) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cache := redisadapter.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))

	repo, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	flaky := &flakyRepository{SessionRepository: repo}
	return session.NewManager(cache, flaky, opts...), cache, flaky
}

func TestGet_AutoCreatesGreetingSession(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	s, err := m.Get(ctx, "5511999000001")
	require.NoError(t, err)
	assert.Equal(t, domain.StateGreeting, s.State)
	assert.Equal(t, "5511999000001", s.Phone)

	// The fresh session is already visible to targeted lookups.
	peeked, err := m.Peek(ctx, "5511999000001")
	require.NoError(t, err)
	assert.Equal(t, domain.StateGreeting, peeked.State)
}

func TestRoundTrip_CacheHitPath(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	s, err := m.Get(ctx, "5511999000002")
	require.NoError(t, err)

	s.State = domain.StateBrowsingProducts
	s.Context.Order = &domain.CurrentOrder{
		Items: []domain.OrderItem{{ProductID: "p1", Name: "Pizza", UnitPrice: 12.5, Quantity: 2}},
	}
	s.Context.Order.Recompute()
	before := s.LastActivity
	require.NoError(t, m.Update(ctx, s))

	got, err := m.Get(ctx, "5511999000002")
	require.NoError(t, err)
	assert.Equal(t, s.Phone, got.Phone)
	assert.Equal(t, domain.StateBrowsingProducts, got.State)
	assert.Equal(t, s.Context.Order, got.Context.Order)
	assert.True(t, got.LastActivity.After(before), "last activity must advance on write")
}

func TestExpiry_FreshSessionAfterTTL(t *testing.T) {
	m, _, _ := newManager(t, session.WithTTL(50*time.Millisecond))
	ctx := context.Background()

	s, err := m.Get(ctx, "5511999000003")
	require.NoError(t, err)
	s.State = domain.StateAwaitingPayment
	s.Context.PaymentRef = "PAY-OLD"
	require.NoError(t, m.Update(ctx, s))

	time.Sleep(80 * time.Millisecond)

	got, err := m.Get(ctx, "5511999000003")
	require.NoError(t, err)
	assert.Equal(t, domain.StateGreeting, got.State, "expired session must be replaced by a fresh one")
	assert.Empty(t, got.Context.PaymentRef)
}

func TestDurableFallback_RepairsCache(t *testing.T) {
	m, cache, _ := newManager(t)
	ctx := context.Background()

	s, err := m.Get(ctx, "5511999000004")
	require.NoError(t, err)
	s.State = domain.StateReviewingOrder
	s.Context.Order = &domain.CurrentOrder{
		Items: []domain.OrderItem{{ProductID: "p1", Name: "Pizza", UnitPrice: 10, Quantity: 1}},
	}
	s.Context.Order.Recompute()
	require.NoError(t, m.Update(ctx, s))

	// Simulate cache eviction.
	require.NoError(t, cache.Del(ctx, session.KeyPrefix+"5511999000004"))

	got, err := m.Get(ctx, "5511999000004")
	require.NoError(t, err)
	// reviewing_order folds onto "cart" in the durable vocabulary and
	// restores as adding_to_cart.
	assert.Equal(t, domain.StateAddingToCart, got.State)
	assert.Equal(t, s.Context.Order, got.Context.Order)

	// The read-through repaired the cache.
	exists, err := cache.Exists(ctx, session.KeyPrefix+"5511999000004")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUpdate_SurvivesDurableOutage(t *testing.T) {
	m, _, flaky := newManager(t)
	ctx := context.Background()

	s, err := m.Get(ctx, "5511999000005")
	require.NoError(t, err)

	flaky.setDown(true)
	s.State = domain.StateBrowsingProducts
	require.NoError(t, m.Update(ctx, s), "cache-only write still reports success")

	got, err := m.Get(ctx, "5511999000005")
	require.NoError(t, err)
	assert.Equal(t, domain.StateBrowsingProducts, got.State)
}

func TestSyncActiveToDurable(t *testing.T) {
	m, _, flaky := newManager(t)
	ctx := context.Background()

	s, err := m.Get(ctx, "5511999000006")
	require.NoError(t, err)

	flaky.setDown(true)
	s.State = domain.StateAddingToCart
	require.NoError(t, m.Update(ctx, s))

	// Durable tier recovers; the sweep reconciles the cached session.
	flaky.setDown(false)
	synced, err := m.SyncActiveToDurable(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, synced, 1)

	row, err := flaky.SessionRepository.FindByPhone(ctx, "5511999000006")
	require.NoError(t, err)
	assert.Equal(t, "cart", row.State)

	// Running the sweep again is harmless: upserts are idempotent.
	_, err = m.SyncActiveToDurable(ctx)
	require.NoError(t, err)
}

func TestDelete_RemovesBothTiers(t *testing.T) {
	m, cache, _ := newManager(t)
	ctx := context.Background()

	_, err := m.Get(ctx, "5511999000007")
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, "5511999000007"))

	_, err = m.Peek(ctx, "5511999000007")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	exists, err := cache.Exists(ctx, session.KeyPrefix+"5511999000007")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetStats(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	for _, phone := range []string{"111", "222", "333"} {
		s, err := m.Get(ctx, phone)
		require.NoError(t, err)
		if phone == "333" {
			s.State = domain.StateBrowsingProducts
			require.NoError(t, m.Update(ctx, s))
		}
	}

	stats := m.GetStats(ctx)
	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, 2, stats.SessionsByState[domain.StateGreeting])
	assert.Equal(t, 1, stats.SessionsByState[domain.StateBrowsingProducts])
	assert.Equal(t, 3, m.CountActive(ctx))
}

func TestConcurrentUpdates_AreSerialized(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	s, err := m.Get(ctx, "5511999000008")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cp := *s
			assert.NoError(t, m.Update(ctx, &cp))
		}()
	}
	wg.Wait()

	got, err := m.Get(ctx, "5511999000008")
	require.NoError(t, err)
	assert.Equal(t, domain.StateGreeting, got.State)
}

func TestStateEncoding_Exhaustive(t *testing.T) {
	for _, state := range domain.AllStates {
		encoded := session.EncodeState(state)
		require.NotEmpty(t, encoded)
		decoded := session.DecodeState(encoded)
		assert.Equal(t, encoded, session.EncodeState(decoded),
			"restore target of %q must fold back to the same storage state", state)
	}
}
