// Package repository owns all persisted credential state. Callers hold
// opaque values only; rows are mutated exclusively through these types.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Managers collapse it
// with revoked/expired before anything reaches a client.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user insert collides on the unique
// email index.
var ErrEmailExists = errors.New("email already exists")

// ErrInvalidRole is returned when a user insert names an unknown permission
// tier.
var ErrInvalidRole = errors.New("invalid role")
