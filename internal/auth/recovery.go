package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/auth-token-service/internal/model"
	"github.com/iliyamo/auth-token-service/internal/repository"
	"github.com/iliyamo/auth-token-service/internal/token"
	"github.com/iliyamo/auth-token-service/internal/utils"
)

// recoveryValueBytes sizes the opaque recovery value (32 bytes -> 64 hex chars).
const recoveryValueBytes = 32

// notifyTimeout bounds the background notification dispatch. The caller
// never waits on it.
const notifyTimeout = 10 * time.Second

// Notifier delivers the recovery message out of band. Implementations are
// best-effort from this package's perspective: a failure is logged, never
// surfaced to the requester.
type Notifier interface {
	SendRecoveryMessage(ctx context.Context, email, displayName, tokenValue string, expiresAt time.Time) error
}

// RecoveryManager issues, validates and consumes single-use password
// recovery tokens. At most one unused, unexpired token exists per user:
// every issue invalidates its predecessors. Consumption flips the token and
// applies the new password as one atomic unit in the store.
type RecoveryManager struct {
	store      repository.CredentialStore
	notifier   Notifier
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
}

func NewRecoveryManager(store repository.CredentialStore, notifier Notifier, ttl time.Duration, bcryptCost int) *RecoveryManager {
	return &RecoveryManager{
		store:      store,
		notifier:   notifier,
		ttl:        ttl,
		bcryptCost: bcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// IssueForUser invalidates every live token of the user, creates exactly one
// replacement, and dispatches the notification without blocking the caller.
func (m *RecoveryManager) IssueForUser(ctx context.Context, u model.User) (string, time.Time, error) {
	raw, err := token.RandomHex(recoveryValueBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate recovery value: %w", err)
	}
	now := m.now()
	exp := now.Add(m.ttl)

	if err := m.store.InvalidateRecoveryForUser(ctx, u.ID, now); err != nil {
		return "", time.Time{}, fmt.Errorf("invalidate prior recovery tokens: %w", err)
	}
	rec := model.RecoveryToken{
		UserID:    u.ID,
		TokenHash: token.HashOpaque(raw),
		ExpiresAt: exp,
		CreatedAt: now,
	}
	if err := m.store.CreateRecovery(ctx, rec); err != nil {
		return "", time.Time{}, fmt.Errorf("persist recovery token: %w", err)
	}

	if m.notifier != nil {
		// Fire and forget with a detached context: the request context dies
		// with the response, the dispatch must not.
		go func(email, name, value string, exp time.Time) {
			nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := m.notifier.SendRecoveryMessage(nctx, email, name, value, exp); err != nil {
				log.Printf("recovery: notification dispatch failed for user %d: %v", u.ID, err)
			}
		}(u.Email, u.DisplayName, raw, exp)
	}
	return raw, exp, nil
}

// Validate is the read-only pre-flight check. It distinguishes a consumed
// token from an unknown or expired one; consumption itself does not.
func (m *RecoveryManager) Validate(ctx context.Context, presented string) (uint64, time.Time, error) {
	rec, err := m.store.FindRecovery(ctx, token.HashOpaque(presented))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, time.Time{}, ErrInvalidOrExpiredRecoveryToken
		}
		return 0, time.Time{}, fmt.Errorf("find recovery token: %w", err)
	}
	if rec.UsedAt != nil {
		return 0, time.Time{}, ErrRecoveryTokenConsumed
	}
	if !m.now().Before(rec.ExpiresAt) {
		return 0, time.Time{}, ErrInvalidOrExpiredRecoveryToken
	}
	return rec.UserID, rec.ExpiresAt, nil
}

// Consume marks the token used and applies newPassword to its owner as one
// atomic unit. A second consume of the same value fails and the password is
// changed exactly once.
func (m *RecoveryManager) Consume(ctx context.Context, presented, newPassword string) (uint64, error) {
	if !utils.AcceptablePassword(newPassword) {
		return 0, ErrWeakPassword
	}
	hash, err := utils.HashPassword(newPassword, m.bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash new password: %w", err)
	}
	userID, err := m.store.ConsumeRecovery(ctx, token.HashOpaque(presented), hash, m.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrInvalidOrExpiredRecoveryToken
		}
		return 0, fmt.Errorf("consume recovery token: %w", err)
	}
	return userID, nil
}
