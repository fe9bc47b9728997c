package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/auth-token-service/internal/model"
)

// CredentialRepo is the MySQL CredentialStore. Rotation and consumption rely
// on conditional UPDATEs (affected-rows CAS) rather than in-process locks, so
// the guarantees hold across multiple server instances.
type CredentialRepo struct{ DB *sql.DB }

func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{DB: db} }

var _ CredentialStore = (*CredentialRepo)(nil)

// ----- renewal credentials -----

func (r *CredentialRepo) CreateRenewal(ctx context.Context, rec model.RenewalCredential) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO renewal_credentials (user_id, token_hash, session_id, client_ip, user_agent, expires_at) VALUES (?,?,?,?,?,?)",
		rec.UserID, rec.TokenHash, rec.SessionID, rec.ClientIP, rec.UserAgent, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert renewal credential: %w", err)
	}
	return nil
}

func (r *CredentialRepo) FindRenewal(ctx context.Context, tokenHash string) (model.RenewalCredential, error) {
	var (
		rec       model.RenewalCredential
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, session_id, client_ip, user_agent, expires_at, revoked_at, created_at FROM renewal_credentials WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.SessionID,
		&rec.ClientIP, &rec.UserAgent, &rec.ExpiresAt, &revokedAt, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return model.RenewalCredential{}, ErrNotFound
	}
	if err != nil {
		return model.RenewalCredential{}, fmt.Errorf("select renewal credential: %w", err)
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		rec.RevokedAt = &t
	}
	return rec, nil
}

// RevokeRenewal flips revoked_at only while the row is still active. The
// WHERE clause is the compare-and-swap: two racing callers see exactly one
// affected row between them.
func (r *CredentialRepo) RevokeRenewal(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE renewal_credentials SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL AND expires_at > ?",
		now, tokenHash, now)
	if err != nil {
		return false, fmt.Errorf("revoke renewal credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke renewal credential: %w", err)
	}
	return n == 1, nil
}

func (r *CredentialRepo) RevokeAllRenewalsForUser(ctx context.Context, userID uint64, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE renewal_credentials SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		now, userID)
	if err != nil {
		return fmt.Errorf("revoke renewal credentials for user: %w", err)
	}
	return nil
}

func (r *CredentialRepo) ListActiveRenewalsForUser(ctx context.Context, userID uint64, now time.Time) ([]model.RenewalCredential, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, token_hash, session_id, client_ip, user_agent, expires_at, created_at FROM renewal_credentials WHERE user_id=? AND revoked_at IS NULL AND expires_at > ? ORDER BY created_at DESC",
		userID, now)
	if err != nil {
		return nil, fmt.Errorf("list renewal credentials: %w", err)
	}
	defer rows.Close()

	var out []model.RenewalCredential
	for rows.Next() {
		var rec model.RenewalCredential
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.SessionID,
			&rec.ClientIP, &rec.UserAgent, &rec.ExpiresAt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan renewal credential: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ----- recovery tokens -----

func (r *CredentialRepo) CreateRecovery(ctx context.Context, rec model.RecoveryToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO recovery_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		rec.UserID, rec.TokenHash, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert recovery token: %w", err)
	}
	return nil
}

func (r *CredentialRepo) FindRecovery(ctx context.Context, tokenHash string) (model.RecoveryToken, error) {
	var (
		rec    model.RecoveryToken
		usedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, used_at, created_at FROM recovery_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.ExpiresAt, &usedAt, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return model.RecoveryToken{}, ErrNotFound
	}
	if err != nil {
		return model.RecoveryToken{}, fmt.Errorf("select recovery token: %w", err)
	}
	if usedAt.Valid {
		t := usedAt.Time
		rec.UsedAt = &t
	}
	return rec, nil
}

func (r *CredentialRepo) InvalidateRecoveryForUser(ctx context.Context, userID uint64, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE recovery_tokens SET used_at=? WHERE user_id=? AND used_at IS NULL",
		now, userID)
	if err != nil {
		return fmt.Errorf("invalidate recovery tokens for user: %w", err)
	}
	return nil
}

// ConsumeRecovery runs the used_at flip and the password update in one
// transaction. The flip is a CAS, so a second consumer of the same value
// loses before the password is ever touched twice.
func (r *CredentialRepo) ConsumeRecovery(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin consume tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE recovery_tokens SET used_at=? WHERE token_hash=? AND used_at IS NULL AND expires_at > ?",
		now, tokenHash, now)
	if err != nil {
		return 0, fmt.Errorf("mark recovery token used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark recovery token used: %w", err)
	}
	if n != 1 {
		return 0, ErrNotFound
	}

	var userID uint64
	if err := tx.QueryRowContext(ctx,
		"SELECT user_id FROM recovery_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID); err != nil {
		return 0, fmt.Errorf("load recovery token owner: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?",
		newPasswordHash, now, userID); err != nil {
		return 0, fmt.Errorf("apply new password: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit consume tx: %w", err)
	}
	return userID, nil
}

// ----- maintenance -----

func (r *CredentialRepo) PurgeExpired(ctx context.Context, now time.Time) (renewals, recoveries int64, err error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM renewal_credentials WHERE revoked_at IS NOT NULL OR expires_at <= ?", now)
	if err != nil {
		return 0, 0, fmt.Errorf("purge renewal credentials: %w", err)
	}
	renewals, _ = res.RowsAffected()

	res, err = r.DB.ExecContext(ctx,
		"DELETE FROM recovery_tokens WHERE used_at IS NOT NULL OR expires_at <= ?", now)
	if err != nil {
		return renewals, 0, fmt.Errorf("purge recovery tokens: %w", err)
	}
	recoveries, _ = res.RowsAffected()
	return renewals, recoveries, nil
}
