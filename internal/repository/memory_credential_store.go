package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/auth-token-service/internal/model"
)

// MemoryCredentialStore is a mutex-guarded CredentialStore for tests and
// single-process development runs. Semantics mirror the MySQL implementation,
// including the exactly-one-winner rule on revoke and consume.
type MemoryCredentialStore struct {
	mu         sync.Mutex
	nextID     uint64
	renewals   map[string]*model.RenewalCredential
	recoveries map[string]*model.RecoveryToken

	// ApplyPassword receives the password update that ConsumeRecovery must
	// apply atomically with the used flip. Wiring it is the embedder's job;
	// when nil, consume only flips the token.
	ApplyPassword func(ctx context.Context, userID uint64, newPasswordHash string) error
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		renewals:   make(map[string]*model.RenewalCredential),
		recoveries: make(map[string]*model.RecoveryToken),
	}
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)

func (s *MemoryCredentialStore) CreateRenewal(_ context.Context, rec model.RenewalCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.renewals[rec.TokenHash] = &rec
	return nil
}

func (s *MemoryCredentialStore) FindRenewal(_ context.Context, tokenHash string) (model.RenewalCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.renewals[tokenHash]
	if !ok {
		return model.RenewalCredential{}, ErrNotFound
	}
	return *rec, nil
}

func (s *MemoryCredentialStore) RevokeRenewal(_ context.Context, tokenHash string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.renewals[tokenHash]
	if !ok || !rec.Active(now) {
		return false, nil
	}
	t := now
	rec.RevokedAt = &t
	return true, nil
}

func (s *MemoryCredentialStore) RevokeAllRenewalsForUser(_ context.Context, userID uint64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.renewals {
		if rec.UserID == userID && rec.RevokedAt == nil {
			t := now
			rec.RevokedAt = &t
		}
	}
	return nil
}

func (s *MemoryCredentialStore) ListActiveRenewalsForUser(_ context.Context, userID uint64, now time.Time) ([]model.RenewalCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RenewalCredential
	for _, rec := range s.renewals {
		if rec.UserID == userID && rec.Active(now) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryCredentialStore) CreateRecovery(_ context.Context, rec model.RecoveryToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.recoveries[rec.TokenHash] = &rec
	return nil
}

func (s *MemoryCredentialStore) FindRecovery(_ context.Context, tokenHash string) (model.RecoveryToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recoveries[tokenHash]
	if !ok {
		return model.RecoveryToken{}, ErrNotFound
	}
	return *rec, nil
}

func (s *MemoryCredentialStore) InvalidateRecoveryForUser(_ context.Context, userID uint64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.recoveries {
		if rec.UserID == userID && rec.UsedAt == nil {
			t := now
			rec.UsedAt = &t
		}
	}
	return nil
}

func (s *MemoryCredentialStore) ConsumeRecovery(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recoveries[tokenHash]
	if !ok || !rec.Consumable(now) {
		return 0, ErrNotFound
	}
	if s.ApplyPassword != nil {
		if err := s.ApplyPassword(ctx, rec.UserID, newPasswordHash); err != nil {
			return 0, err
		}
	}
	t := now
	rec.UsedAt = &t
	return rec.UserID, nil
}

func (s *MemoryCredentialStore) PurgeExpired(_ context.Context, now time.Time) (renewals, recoveries int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, rec := range s.renewals {
		if rec.RevokedAt != nil || !now.Before(rec.ExpiresAt) {
			delete(s.renewals, hash)
			renewals++
		}
	}
	for hash, rec := range s.recoveries {
		if rec.UsedAt != nil || !now.Before(rec.ExpiresAt) {
			delete(s.recoveries, hash)
			recoveries++
		}
	}
	return renewals, recoveries, nil
}
