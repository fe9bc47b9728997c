// Package token generates and verifies the credential material used by the
// auth service: opaque random values for renewal/recovery flows and signed
// JWT access credentials.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// Kind discriminates what a credential may be used for. The verifier rejects
// any credential whose kind does not match the expected one, so a renewal or
// recovery value can never be replayed as an access credential.
type Kind string

const (
	KindAccess   Kind = "access"
	KindRenewal  Kind = "renewal"
	KindRecovery Kind = "recovery"
)

// RandomHex returns a hex-encoded string built from n bytes of
// cryptographically secure random data. Failure of the random source is an
// environment fault and is returned to the caller as-is.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashOpaque returns the SHA-256 hex digest of a raw opaque value. Only the
// digest is ever persisted, so a leaked store cannot be replayed against the
// service.
func HashOpaque(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
