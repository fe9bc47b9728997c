package repository

import (
	"context"
	"time"

	"github.com/iliyamo/auth-token-service/internal/model"
)

// CredentialStore persists renewal credentials and recovery tokens, keyed by
// the SHA-256 hash of the opaque value. All mutations that pair a state flip
// with a second effect (rotation's revoke+create, consume's mark-used+password
// update) are atomic with respect to concurrent callers on the same hash:
// the revoke/consume step is a compare-and-swap, so of N racing callers
// exactly one wins.
type CredentialStore interface {
	// CreateRenewal inserts a renewal credential row.
	CreateRenewal(ctx context.Context, rec model.RenewalCredential) error

	// FindRenewal returns the row for tokenHash or ErrNotFound. It reports
	// revoked and expired rows as-is; callers decide usability.
	FindRenewal(ctx context.Context, tokenHash string) (model.RenewalCredential, error)

	// RevokeRenewal marks the row revoked if and only if it is still active
	// at now. The boolean reports whether this call won the flip; false means
	// the row was absent, already revoked, or expired.
	RevokeRenewal(ctx context.Context, tokenHash string, now time.Time) (bool, error)

	// RevokeAllRenewalsForUser revokes every active renewal row owned by the
	// user. Idempotent.
	RevokeAllRenewalsForUser(ctx context.Context, userID uint64, now time.Time) error

	// ListActiveRenewalsForUser returns the user's active rows ordered by
	// creation time, newest first.
	ListActiveRenewalsForUser(ctx context.Context, userID uint64, now time.Time) ([]model.RenewalCredential, error)

	// CreateRecovery inserts a recovery token row.
	CreateRecovery(ctx context.Context, rec model.RecoveryToken) error

	// FindRecovery returns the row for tokenHash or ErrNotFound.
	FindRecovery(ctx context.Context, tokenHash string) (model.RecoveryToken, error)

	// InvalidateRecoveryForUser marks every unused token of the user as used,
	// enforcing the at-most-one-live-token invariant before a new issue.
	InvalidateRecoveryForUser(ctx context.Context, userID uint64, now time.Time) error

	// ConsumeRecovery atomically marks the token used and applies the new
	// password hash to its owner. Both effects commit together or not at
	// all. Returns the owning user id, or ErrNotFound when the token is
	// absent, already used, or expired.
	ConsumeRecovery(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (uint64, error)

	// PurgeExpired deletes renewal rows that are revoked or expired and
	// recovery rows that are used or expired. Delete-only; safe to run
	// concurrently with live traffic.
	PurgeExpired(ctx context.Context, now time.Time) (renewals, recoveries int64, err error)
}
