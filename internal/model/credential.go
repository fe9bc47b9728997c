package model

import "time"

// RenewalCredential models a row in `renewal_credentials`. The opaque value
// handed to the client is never stored; only its SHA-256 hash. A row is
// usable while revoked_at is null and expires_at is in the future. Every
// successful refresh revokes the presented row and inserts a replacement.
type RenewalCredential struct {
	ID        uint64     // renewal_credentials.id
	UserID    uint64     // renewal_credentials.user_id
	TokenHash string     // renewal_credentials.token_hash (sha256 hex)
	SessionID string     // renewal_credentials.session_id (uuid, stable across rotations)
	ClientIP  string     // renewal_credentials.client_ip
	UserAgent string     // renewal_credentials.user_agent
	ExpiresAt time.Time  // renewal_credentials.expires_at
	RevokedAt *time.Time // renewal_credentials.revoked_at (null while active)
	CreatedAt time.Time  // renewal_credentials.created_at
}

// Active reports whether the row is usable at the given instant.
// Expiry is exclusive: a row is dead at exactly its expires_at.
func (r RenewalCredential) Active(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}

// RecoveryToken models a row in `recovery_tokens`. Same hashing rule as
// renewal credentials. At most one unused, unexpired row may exist per user;
// issuing a new token marks prior unused rows used. used_at flips exactly
// once, in the same transaction as the password update it authorizes.
type RecoveryToken struct {
	ID        uint64     // recovery_tokens.id
	UserID    uint64     // recovery_tokens.user_id
	TokenHash string     // recovery_tokens.token_hash (sha256 hex)
	ExpiresAt time.Time  // recovery_tokens.expires_at
	UsedAt    *time.Time // recovery_tokens.used_at (null while unconsumed)
	CreatedAt time.Time  // recovery_tokens.created_at
}

// Consumable reports whether the token can still authorize a reset.
func (t RecoveryToken) Consumable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// SessionInfo is the caller-visible projection of an active renewal
// credential. It carries no secret material.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
