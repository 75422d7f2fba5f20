// Package common defines shared constants and sentinel errors used across
// the session subsystem. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Provider-level errors.
	ErrNoSession    = errors.New("no session")
	ErrUnauthorized = errors.New("unauthorized")

	// Storage-level errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNoCachedUser       = errors.New("no cached user")

	// Profile service errors.
	ErrProfileUnreachable = errors.New("profile service unreachable")

	// Token errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
