package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/balcao/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionRepositoryContract runs a suite of tests verifying that a
// SessionRepository implementation adheres to the interface contract.
func RunSessionRepositoryContract(t *testing.T, repo SessionRepository) {
	ctx := context.Background()
	phone := "5511999" + time.Now().Format("150405")

	now := time.Now().UTC().Truncate(time.Second)
	row := &StoredSession{
		Phone:        phone,
		State:        "browsing",
		ContextJSON:  []byte(`{"payment_ref":"PAY-TEST"}`),
		CustomerID:   "cust-1",
		LastActivity: now,
		ExpiresAt:    now.Add(time.Hour),
	}

	t.Run("Create and FindByPhone", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, row))

		found, err := repo.FindByPhone(ctx, phone)
		require.NoError(t, err)
		assert.Equal(t, phone, found.Phone)
		assert.Equal(t, "browsing", found.State)
		assert.JSONEq(t, string(row.ContextJSON), string(found.ContextJSON))
		assert.Equal(t, "cust-1", found.CustomerID)
		assert.WithinDuration(t, now, found.LastActivity, time.Second)
	})

	t.Run("Update is an upsert", func(t *testing.T) {
		updated := *row
		updated.State = "payment"
		updated.LastActivity = now.Add(time.Minute)
		updated.ExpiresAt = now.Add(time.Hour + time.Minute)
		require.NoError(t, repo.Update(ctx, &updated))

		found, err := repo.FindByPhone(ctx, phone)
		require.NoError(t, err)
		assert.Equal(t, "payment", found.State)

		// Updating twice with the same row must be idempotent.
		require.NoError(t, repo.Update(ctx, &updated))
	})

	t.Run("FindByPhone non-existent", func(t *testing.T) {
		_, err := repo.FindByPhone(ctx, "000000000")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("FindActive excludes expired rows", func(t *testing.T) {
		expired := &StoredSession{
			Phone:        phone + "-old",
			State:        "greeting",
			ContextJSON:  []byte(`{}`),
			LastActivity: now.Add(-2 * time.Hour),
			ExpiresAt:    now.Add(-time.Hour),
		}
		require.NoError(t, repo.Create(ctx, expired))
		defer func() { _ = repo.Delete(ctx, expired.Phone) }()

		active, err := repo.FindActive(ctx)
		require.NoError(t, err)

		phones := make([]string, 0, len(active))
		for _, s := range active {
			phones = append(phones, s.Phone)
		}
		assert.Contains(t, phones, phone)
		assert.NotContains(t, phones, expired.Phone)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, phone))

		_, err := repo.FindByPhone(ctx, phone)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		// Deleting again must not fail.
		require.NoError(t, repo.Delete(ctx, phone))
	})
}
