package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/auth-token-service/internal/model"
	"github.com/iliyamo/auth-token-service/internal/repository"
	"github.com/iliyamo/auth-token-service/internal/utils"
)

// Session is what a successful login or refresh hands back: the subject
// snapshot plus a fresh access/renewal pair.
type Session struct {
	User    model.User
	Access  IssuedAccess
	Renewal IssuedRenewal
}

// Service is the orchestration facade over the credential managers. It holds
// no state of its own.
type Service struct {
	users      repository.UserDirectory
	renewals   *RenewalManager
	recovery   *RecoveryManager
	bcryptCost int
}

func NewService(users repository.UserDirectory, renewals *RenewalManager, recovery *RecoveryManager, bcryptCost int) *Service {
	return &Service{users: users, renewals: renewals, recovery: recovery, bcryptCost: bcryptCost}
}

// Login verifies the email/password pair and issues an access/renewal pair.
// Unknown address, wrong password and inactive account all collapse into
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string, meta SessionMeta) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	renewal, err := s.renewals.Issue(ctx, u, meta)
	if err != nil {
		return nil, err
	}
	access, err := s.renewals.MintAccess(u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Access: access, Renewal: renewal}, nil
}

// Refresh rotates the presented renewal value into a fresh pair.
func (s *Service) Refresh(ctx context.Context, presented string, meta SessionMeta) (*Session, error) {
	u, access, renewal, err := s.renewals.Rotate(ctx, presented, meta)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Access: access, Renewal: renewal}, nil
}

// Logout revokes every renewal credential of the user.
func (s *Service) Logout(ctx context.Context, userID uint64) error {
	return s.renewals.RevokeAllForUser(ctx, userID)
}

// LogoutSession revokes the single session behind a presented renewal value.
func (s *Service) LogoutSession(ctx context.Context, presented string) error {
	return s.renewals.Revoke(ctx, presented)
}

// ChangePassword verifies the current password, applies the new one, and
// revokes every session so stolen renewal values die with the old password.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return ErrWrongCurrentPassword
	}
	if next == current {
		return ErrPasswordUnchanged
	}
	if !utils.AcceptablePassword(next) {
		return ErrWeakPassword
	}
	hash, err := utils.HashPassword(next, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}
	if err := s.users.SetPasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("apply new password: %w", err)
	}
	// Forced re-authentication everywhere is the point, not a side effect.
	return s.renewals.RevokeAllForUser(ctx, userID)
}

// RequestRecovery issues a recovery token for the address if it belongs to a
// user. It reports success either way; an unknown address is logged and
// swallowed so callers cannot enumerate accounts.
func (s *Service) RequestRecovery(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("recovery: request for unknown address ignored")
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		log.Printf("recovery: request for inactive user %d ignored", u.ID)
		return nil
	}
	if _, _, err := s.recovery.IssueForUser(ctx, u); err != nil {
		return err
	}
	return nil
}

// ValidateRecovery is the pre-flight check on a recovery value. It returns
// the owning user's email (for UI display) and the token expiry.
func (s *Service) ValidateRecovery(ctx context.Context, presented string) (model.User, time.Time, error) {
	userID, exp, err := s.recovery.Validate(ctx, presented)
	if err != nil {
		return model.User{}, time.Time{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, time.Time{}, fmt.Errorf("load user: %w", err)
	}
	return u, exp, nil
}

// ConsumeRecovery applies the password reset a recovery value authorizes and
// revokes all sessions of the affected user.
func (s *Service) ConsumeRecovery(ctx context.Context, presented, newPassword string) (model.User, error) {
	userID, err := s.recovery.Consume(ctx, presented, newPassword)
	if err != nil {
		return model.User{}, err
	}
	if err := s.renewals.RevokeAllForUser(ctx, userID); err != nil {
		return model.User{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// Sessions lists the user's active sessions.
func (s *Service) Sessions(ctx context.Context, userID uint64) ([]model.SessionInfo, error) {
	return s.renewals.Sessions(ctx, userID)
}
