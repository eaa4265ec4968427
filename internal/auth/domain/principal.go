// Package domain defines authenticated principals and authentication errors.
package domain

import (
	"time"

	"github.com/allisson/pseudonyms/internal/errors"
)

// Principal is the authenticated caller of an API request.
type Principal struct {
	ID        int64
	ExpiresAt time.Time
}

// Authentication errors.
var (
	// ErrInvalidToken indicates a bearer token that is malformed, unsigned or has bad claims.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid token")

	// ErrTokenExpired indicates a bearer token past its expiration.
	ErrTokenExpired = errors.Wrap(errors.ErrUnauthorized, "token has expired")

	// ErrInvalidSigningKey indicates a signing key too short for HS256.
	ErrInvalidSigningKey = errors.Wrap(errors.ErrInvalidInput, "signing key must be at least 32 bytes")
)
