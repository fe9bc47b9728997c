package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-token-service/internal/model"
	"github.com/iliyamo/auth-token-service/internal/repository"
	"github.com/iliyamo/auth-token-service/internal/token"
)

// renewalValueBytes sizes the opaque renewal value (48 bytes -> 96 hex chars).
const renewalValueBytes = 48

// SessionMeta carries request metadata recorded on a renewal row.
type SessionMeta struct {
	ClientIP  string
	UserAgent string
}

// IssuedAccess is a signed access credential with its expiry.
type IssuedAccess struct {
	Token     string
	ExpiresAt time.Time
}

// IssuedRenewal is a raw renewal value with its expiry. The raw value exists
// only in memory and in the client's hands; the store sees its hash.
type IssuedRenewal struct {
	Value     string
	ExpiresAt time.Time
}

// RenewalManager issues, rotates and revokes store-backed renewal
// credentials. Each value is usable at most once: a successful rotation
// revokes the presented row before the replacement exists, via the store's
// compare-and-swap, so of N concurrent rotations of one value exactly one
// succeeds.
type RenewalManager struct {
	store      repository.CredentialStore
	users      repository.UserDirectory
	issuer     *token.Issuer
	accessTTL  time.Duration
	renewalTTL time.Duration
	now        func() time.Time
}

func NewRenewalManager(store repository.CredentialStore, users repository.UserDirectory, issuer *token.Issuer, accessTTL, renewalTTL time.Duration) *RenewalManager {
	return &RenewalManager{
		store:      store,
		users:      users,
		issuer:     issuer,
		accessTTL:  accessTTL,
		renewalTTL: renewalTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a fresh renewal credential for the user. Called at login;
// rotation reuses issueRow so the session id survives the swap.
func (m *RenewalManager) Issue(ctx context.Context, u model.User, meta SessionMeta) (IssuedRenewal, error) {
	return m.issueRow(ctx, u.ID, uuid.NewString(), meta)
}

// Rotate exchanges a presented renewal value for a new access credential and
// a replacement renewal value. The presented row is revoked first; if this
// call loses the revoke race, or the value is unknown, revoked or expired,
// the caller sees the one undifferentiated failure.
func (m *RenewalManager) Rotate(ctx context.Context, presented string, meta SessionMeta) (model.User, IssuedAccess, IssuedRenewal, error) {
	hash := token.HashOpaque(presented)
	now := m.now()

	// Look up first so the session id and owner are known, then CAS-revoke.
	// The revoke is the authority: a row that vanished or flipped between
	// the two calls simply loses here.
	row, err := m.store.FindRenewal(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, IssuedAccess{}, IssuedRenewal{}, ErrInvalidOrExpiredRenewal
		}
		return model.User{}, IssuedAccess{}, IssuedRenewal{}, fmt.Errorf("find renewal: %w", err)
	}
	won, err := m.store.RevokeRenewal(ctx, hash, now)
	if err != nil {
		return model.User{}, IssuedAccess{}, IssuedRenewal{}, fmt.Errorf("revoke presented renewal: %w", err)
	}
	if !won {
		return model.User{}, IssuedAccess{}, IssuedRenewal{}, ErrInvalidOrExpiredRenewal
	}

	u, err := m.users.GetByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, IssuedAccess{}, IssuedRenewal{}, ErrInvalidOrExpiredRenewal
		}
		return model.User{}, IssuedAccess{}, IssuedRenewal{}, fmt.Errorf("load renewal owner: %w", err)
	}
	if !u.IsActive {
		return model.User{}, IssuedAccess{}, IssuedRenewal{}, ErrInvalidOrExpiredRenewal
	}

	renewal, err := m.issueRow(ctx, u.ID, row.SessionID, meta)
	if err != nil {
		return model.User{}, IssuedAccess{}, IssuedRenewal{}, err
	}
	access, err := m.MintAccess(u)
	if err != nil {
		return model.User{}, IssuedAccess{}, IssuedRenewal{}, err
	}
	return u, access, renewal, nil
}

// MintAccess signs a short-lived access credential for the user.
func (m *RenewalManager) MintAccess(u model.User) (IssuedAccess, error) {
	signed, exp, err := m.issuer.Issue(u, m.accessTTL)
	if err != nil {
		return IssuedAccess{}, fmt.Errorf("sign access credential: %w", err)
	}
	return IssuedAccess{Token: signed, ExpiresAt: exp}, nil
}

// Revoke invalidates a single renewal value. Idempotent; unknown values are
// a no-op.
func (m *RenewalManager) Revoke(ctx context.Context, presented string) error {
	_, err := m.store.RevokeRenewal(ctx, token.HashOpaque(presented), m.now())
	return err
}

// RevokeAllForUser invalidates every active renewal credential of the user.
func (m *RenewalManager) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return m.store.RevokeAllRenewalsForUser(ctx, userID, m.now())
}

// Sessions lists the user's active sessions, newest first, without secret
// material.
func (m *RenewalManager) Sessions(ctx context.Context, userID uint64) ([]model.SessionInfo, error) {
	rows, err := m.store.ListActiveRenewalsForUser(ctx, userID, m.now())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]model.SessionInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.SessionInfo{
			SessionID: r.SessionID,
			ClientIP:  r.ClientIP,
			UserAgent: r.UserAgent,
			CreatedAt: r.CreatedAt,
			ExpiresAt: r.ExpiresAt,
		})
	}
	return out, nil
}

func (m *RenewalManager) issueRow(ctx context.Context, userID uint64, sessionID string, meta SessionMeta) (IssuedRenewal, error) {
	raw, err := token.RandomHex(renewalValueBytes)
	if err != nil {
		return IssuedRenewal{}, fmt.Errorf("generate renewal value: %w", err)
	}
	now := m.now()
	exp := now.Add(m.renewalTTL)
	rec := model.RenewalCredential{
		UserID:    userID,
		TokenHash: token.HashOpaque(raw),
		SessionID: sessionID,
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
		ExpiresAt: exp,
		CreatedAt: now,
	}
	if err := m.store.CreateRenewal(ctx, rec); err != nil {
		return IssuedRenewal{}, fmt.Errorf("persist renewal credential: %w", err)
	}
	return IssuedRenewal{Value: raw, ExpiresAt: exp}, nil
}
