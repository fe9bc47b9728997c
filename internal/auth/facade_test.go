package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-token-service/internal/token"
	"github.com/iliyamo/auth-token-service/internal/utils"
)

func newTestService(t *testing.T) (*Service, *fakeUserDirectory, *fakeNotifier) {
	t.Helper()
	dir := newFakeUserDirectory(testUser(1, "a@x.com", "s3cret-pass"))
	store := testStore(dir)
	issuer := token.NewIssuer("facade-test-secret")
	renewals := NewRenewalManager(store, dir, issuer, 15*time.Minute, 7*24*time.Hour)
	n := newFakeNotifier()
	recovery := NewRecoveryManager(store, n, time.Hour, 4)
	return NewService(dir, renewals, recovery, 4), dir, n
}

func TestLoginThenRefresh(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	s1, err := svc.Login(ctx, "a@x.com", "s3cret-pass", SessionMeta{})
	require.NoError(t, err)
	require.NotEmpty(t, s1.Access.Token)
	require.NotEmpty(t, s1.Renewal.Value)

	s2, err := svc.Refresh(ctx, s1.Renewal.Value, SessionMeta{})
	require.NoError(t, err)
	require.NotEqual(t, s1.Renewal.Value, s2.Renewal.Value)
	require.Equal(t, s1.User.ID, s2.User.ID)

	// The first renewal value was rotated out and must not work again.
	_, err = svc.Refresh(ctx, s1.Renewal.Value, SessionMeta{})
	require.ErrorIs(t, err, ErrInvalidOrExpiredRenewal)
}

func TestLoginFailures(t *testing.T) {
	svc, dir, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "nobody@x.com", "whatever", SessionMeta{})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "a@x.com", "wrong-pass", SessionMeta{})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Inactive accounts fail with the same undifferentiated error.
	u := dir.users[1]
	u.IsActive = false
	dir.users[1] = u
	_, err = svc.Login(ctx, "a@x.com", "s3cret-pass", SessionMeta{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesAllSessions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	s1, err := svc.Login(ctx, "a@x.com", "s3cret-pass", SessionMeta{})
	require.NoError(t, err)
	s2, err := svc.Login(ctx, "a@x.com", "s3cret-pass", SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, s1.User.ID))

	_, err = svc.Refresh(ctx, s1.Renewal.Value, SessionMeta{})
	require.ErrorIs(t, err, ErrInvalidOrExpiredRenewal)
	_, err = svc.Refresh(ctx, s2.Renewal.Value, SessionMeta{})
	require.ErrorIs(t, err, ErrInvalidOrExpiredRenewal)

	sessions, err := svc.Sessions(ctx, s1.User.ID)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestLogoutSessionRevokesOnlyOne(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	s1, err := svc.Login(ctx, "a@x.com", "s3cret-pass", SessionMeta{})
	require.NoError(t, err)
	s2, err := svc.Login(ctx, "a@x.com", "s3cret-pass", SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.LogoutSession(ctx, s1.Renewal.Value))

	_, err = svc.Refresh(ctx, s1.Renewal.Value, SessionMeta{})
	require.ErrorIs(t, err, ErrInvalidOrExpiredRenewal)
	_, err = svc.Refresh(ctx, s2.Renewal.Value, SessionMeta{})
	require.NoError(t, err)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, dir, _ := newTestService(t)
	ctx := context.Background()

	r1, err := svc.Login(ctx, "a@x.com", "s3cret-pass", SessionMeta{})
	require.NoError(t, err)
	r2, err := svc.Login(ctx, "a@x.com", "s3cret-pass", SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, 1, "s3cret-pass", "a-new-password"))

	changed, _ := dir.GetByID(ctx, 1)
	require.True(t, utils.VerifyPassword(changed.PasswordHash, "a-new-password"))

	_, err = svc.Refresh(ctx, r1.Renewal.Value, SessionMeta{})
	require.ErrorIs(t, err, ErrInvalidOrExpiredRenewal)
	_, err = svc.Refresh(ctx, r2.Renewal.Value, SessionMeta{})
	require.ErrorIs(t, err, ErrInvalidOrExpiredRenewal)

	// The new password logs in.
	_, err = svc.Login(ctx, "a@x.com", "a-new-password", SessionMeta{})
	require.NoError(t, err)
}

func TestChangePasswordRejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		current string
		next    string
		wantErr error
	}{
		{"wrong current", "not-the-password", "a-new-password", ErrWrongCurrentPassword},
		{"unchanged", "s3cret-pass", "s3cret-pass", ErrPasswordUnchanged},
		{"too weak", "s3cret-pass", "short", ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ChangePassword(ctx, 1, tt.current, tt.next)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	err := svc.ChangePassword(ctx, 999, "s3cret-pass", "a-new-password")
	require.ErrorIs(t, err, ErrUserNotFound)

	// Rejections must not have touched the sessions.
	s, err := svc.Login(ctx, "a@x.com", "s3cret-pass", SessionMeta{})
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, s.Renewal.Value, SessionMeta{})
	require.NoError(t, err)
}

func TestRequestRecoveryHidesUnknownAddresses(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestRecovery(ctx, "nobody@x.com"))
	require.False(t, n.waitForSend(100*time.Millisecond))

	require.NoError(t, svc.RequestRecovery(ctx, "a@x.com"))
	require.True(t, n.waitForSend(2*time.Second))
	require.Len(t, n.messages(), 1)
}

func TestRecoveryFlowThroughFacade(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()

	active, err := svc.Login(ctx, "a@x.com", "s3cret-pass", SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.RequestRecovery(ctx, "a@x.com"))
	require.True(t, n.waitForSend(2*time.Second))
	value := n.messages()[0].Token

	u, exp, err := svc.ValidateRecovery(ctx, value)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", u.Email)
	require.True(t, exp.After(time.Now()))

	u, err = svc.ConsumeRecovery(ctx, value, "post-reset-password")
	require.NoError(t, err)
	require.Equal(t, uint64(1), u.ID)

	// Reset revoked the pre-existing session.
	_, err = svc.Refresh(ctx, active.Renewal.Value, SessionMeta{})
	require.ErrorIs(t, err, ErrInvalidOrExpiredRenewal)

	_, err = svc.Login(ctx, "a@x.com", "post-reset-password", SessionMeta{})
	require.NoError(t, err)
}
