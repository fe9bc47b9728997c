package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-token-service/internal/model"
)

const testSecret = "unit-test-signing-secret"

func testSubject() model.User {
	return model.User{
		ID:          7,
		Email:       "u@x.com",
		DisplayName: "U",
		Role:        model.RoleModerator,
		IsActive:    true,
	}
}

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer(testSecret)

	signed, exp, err := issuer.Issue(testSubject(), 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 2*time.Second)

	claims, err := issuer.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "u@x.com", claims.Email)
	require.Equal(t, model.RoleModerator, claims.Role)
	require.Equal(t, KindAccess, claims.Kind)

	uid, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, uint64(7), uid)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, _, err := NewIssuer(testSecret).Issue(testSubject(), time.Minute)
	require.NoError(t, err)

	_, err = NewIssuer("a-different-secret").Verify(signed)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewIssuer(testSecret).Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyExpiryBoundary(t *testing.T) {
	// Fixed rule: a credential is valid strictly before its expiry instant
	// and expired at exactly that instant.
	issuedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := issuedAt
	issuer := NewIssuerWithClock(testSecret, func() time.Time { return clock })

	signed, exp, err := issuer.Issue(testSubject(), time.Hour)
	require.NoError(t, err)
	require.Equal(t, issuedAt.Add(time.Hour), exp)

	clock = exp.Add(-time.Second)
	_, err = issuer.Verify(signed)
	require.NoError(t, err)

	clock = exp
	_, err = issuer.Verify(signed)
	require.ErrorIs(t, err, ErrExpired)

	clock = exp.Add(time.Second)
	_, err = issuer.Verify(signed)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	// A token signed with the same secret but a non-access kind must never
	// pass access verification.
	for _, kind := range []Kind{KindRenewal, KindRecovery} {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Email: "u@x.com",
			Role:  model.RoleStandard,
			Kind:  kind,
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = NewIssuer(testSecret).Verify(signed)
		require.ErrorIs(t, err, ErrWrongKind, "kind %s", kind)
	}
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Kind: KindAccess,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewIssuer(testSecret).Verify(signed)
	require.ErrorIs(t, err, ErrInvalidSignature)
}
