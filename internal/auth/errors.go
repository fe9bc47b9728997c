// Package auth implements the credential lifecycle: issuing, rotating and
// revoking renewal credentials, single-use recovery tokens, and the login
// facade that composes them.
package auth

import "errors"

// Domain errors. Handlers translate these to status codes; everything else
// that bubbles up is an infrastructure failure and maps to a 500.
var (
	// ErrInvalidCredentials covers bad email/password pairs and inactive
	// accounts, undifferentiated.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOrExpiredRenewal collapses not-found, revoked and expired so
	// a caller cannot probe which applied.
	ErrInvalidOrExpiredRenewal = errors.New("invalid or expired renewal credential")

	// ErrInvalidOrExpiredRecoveryToken collapses not-found, expired and
	// consumed on the consume path.
	ErrInvalidOrExpiredRecoveryToken = errors.New("invalid or expired recovery token")

	// ErrRecoveryTokenConsumed is surfaced by Validate only: once a caller
	// holds the token value, telling them it was already used leaks nothing.
	ErrRecoveryTokenConsumed = errors.New("recovery token already used")

	ErrWrongCurrentPassword = errors.New("current password is wrong")
	ErrPasswordUnchanged    = errors.New("new password must differ from current")
	ErrWeakPassword         = errors.New("password does not meet policy")

	// ErrUserNotFound stays internal to the recovery-request path; it is
	// never surfaced there so addresses cannot be enumerated.
	ErrUserNotFound = errors.New("user not found")
)
