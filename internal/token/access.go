package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/auth-token-service/internal/model"
)

// Verification failures. Handlers map all of them to 401; the split exists
// for logging and tests.
var (
	ErrInvalidSignature = errors.New("access credential: invalid signature")
	ErrExpired          = errors.New("access credential: expired")
	ErrWrongKind        = errors.New("access credential: wrong kind")
)

// Claims is the payload embedded in a signed access credential. It snapshots
// the subject at issue time; verification never touches the database.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	Role        string `json:"role"`
	Kind        Kind   `json:"kind"`
}

// Issuer mints and verifies HS256 access credentials. The zero value is not
// usable; construct with NewIssuer. Safe for concurrent use: the secret and
// clock are read-only after construction.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer builds an Issuer from the process-wide signing secret.
func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: func() time.Time { return time.Now().UTC() }}
}

// NewIssuerWithClock is NewIssuer with an injectable clock, for tests that
// pin the expiry boundary.
func NewIssuerWithClock(secret string, now func() time.Time) *Issuer {
	return &Issuer{secret: []byte(secret), now: now}
}

// Issue signs an access credential embedding a snapshot of u, valid for ttl.
// Pure apart from the clock: nothing is persisted.
func (i *Issuer) Issue(u model.User, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconvID(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Kind:        KindAccess,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature, expiry and kind, returning the embedded subject
// snapshot. A credential is valid strictly before its expiry instant; at
// exactly expires_at it is expired.
func (i *Issuer) Verify(signed string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, ErrInvalidSignature
	}
	if !tok.Valid {
		return nil, ErrInvalidSignature
	}
	// Expiry is checked by hand so the boundary rule stays ours, not the
	// library's: exp <= now means expired.
	if claims.ExpiresAt == nil || !i.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	if claims.Kind != KindAccess {
		return nil, ErrWrongKind
	}
	return claims, nil
}

// UserID parses the numeric subject claim.
func (c *Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

func strconvID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
