package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-token-service/internal/model"
)

func TestMemoryStoreRevokeRenewalCAS(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateRenewal(ctx, model.RenewalCredential{
		UserID: 1, TokenHash: "h1", SessionID: "s1", ExpiresAt: now.Add(time.Hour),
	}))

	won, err := s.RevokeRenewal(ctx, "h1", now)
	require.NoError(t, err)
	require.True(t, won)

	won, err = s.RevokeRenewal(ctx, "h1", now)
	require.NoError(t, err)
	require.False(t, won)

	won, err = s.RevokeRenewal(ctx, "absent", now)
	require.NoError(t, err)
	require.False(t, won)
}

func TestMemoryStoreRevokeRenewalConcurrentSingleWinner(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateRenewal(ctx, model.RenewalCredential{
		UserID: 1, TokenHash: "h1", SessionID: "s1", ExpiresAt: now.Add(time.Hour),
	}))

	const n = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := s.RevokeRenewal(ctx, "h1", now)
			require.NoError(t, err)
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestMemoryStoreRevokeExpiredRenewalLoses(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateRenewal(ctx, model.RenewalCredential{
		UserID: 1, TokenHash: "h1", SessionID: "s1", ExpiresAt: now,
	}))

	// At exactly expires_at the row is already dead.
	won, err := s.RevokeRenewal(ctx, "h1", now)
	require.NoError(t, err)
	require.False(t, won)
}

func TestMemoryStoreListActiveOrdering(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for i, h := range []string{"old", "mid", "new"} {
		require.NoError(t, s.CreateRenewal(ctx, model.RenewalCredential{
			UserID: 1, TokenHash: h, SessionID: h,
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}
	// Another user's rows and revoked rows stay out of the listing.
	require.NoError(t, s.CreateRenewal(ctx, model.RenewalCredential{
		UserID: 2, TokenHash: "other", SessionID: "other", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}))
	_, err := s.RevokeRenewal(ctx, "mid", now)
	require.NoError(t, err)

	rows, err := s.ListActiveRenewalsForUser(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "new", rows[0].SessionID)
	require.Equal(t, "old", rows[1].SessionID)
}

func TestMemoryStoreConsumeRecoveryAtomicity(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()
	now := time.Now().UTC()

	applied := 0
	s.ApplyPassword = func(_ context.Context, userID uint64, hash string) error {
		applied++
		return nil
	}

	require.NoError(t, s.CreateRecovery(ctx, model.RecoveryToken{
		UserID: 42, TokenHash: "r1", ExpiresAt: now.Add(time.Hour),
	}))

	userID, err := s.ConsumeRecovery(ctx, "r1", "new-hash", now)
	require.NoError(t, err)
	require.Equal(t, uint64(42), userID)
	require.Equal(t, 1, applied)

	_, err = s.ConsumeRecovery(ctx, "r1", "another-hash", now)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 1, applied)
}

func TestMemoryStoreInvalidateRecoveryForUser(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateRecovery(ctx, model.RecoveryToken{UserID: 1, TokenHash: "a", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.CreateRecovery(ctx, model.RecoveryToken{UserID: 1, TokenHash: "b", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.CreateRecovery(ctx, model.RecoveryToken{UserID: 2, TokenHash: "c", ExpiresAt: now.Add(time.Hour)}))

	require.NoError(t, s.InvalidateRecoveryForUser(ctx, 1, now))

	a, err := s.FindRecovery(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, a.UsedAt)
	b, err := s.FindRecovery(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, b.UsedAt)
	c, err := s.FindRecovery(ctx, "c")
	require.NoError(t, err)
	require.Nil(t, c.UsedAt)
}

func TestMemoryStorePurgeExpired(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateRenewal(ctx, model.RenewalCredential{UserID: 1, TokenHash: "live", SessionID: "l", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.CreateRenewal(ctx, model.RenewalCredential{UserID: 1, TokenHash: "dead", SessionID: "d", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, s.CreateRenewal(ctx, model.RenewalCredential{UserID: 1, TokenHash: "gone", SessionID: "g", ExpiresAt: now.Add(time.Hour)}))
	_, err := s.RevokeRenewal(ctx, "gone", now)
	require.NoError(t, err)

	require.NoError(t, s.CreateRecovery(ctx, model.RecoveryToken{UserID: 1, TokenHash: "rl", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.CreateRecovery(ctx, model.RecoveryToken{UserID: 1, TokenHash: "rd", ExpiresAt: now.Add(-time.Hour)}))

	renewals, recoveries, err := s.PurgeExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(2), renewals)
	require.Equal(t, int64(1), recoveries)

	_, err = s.FindRenewal(ctx, "live")
	require.NoError(t, err)
	_, err = s.FindRenewal(ctx, "dead")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindRecovery(ctx, "rl")
	require.NoError(t, err)
}
