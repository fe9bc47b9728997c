// Package utils holds small helpers shared across layers.
package utils

import "golang.org/x/crypto/bcrypt"

// Password policy bounds. The upper bound is bcrypt's own input limit.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// HashPassword returns a bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// AcceptablePassword reports whether a candidate password meets the policy.
func AcceptablePassword(plain string) bool {
	return len(plain) >= MinPasswordLen && len(plain) <= MaxPasswordLen
}
