// Package service issues and validates bearer tokens.
package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	authDomain "github.com/allisson/pseudonyms/internal/auth/domain"
)

const (
	issuer = "pseudonyms"

	// MinSigningKeyLength is the shortest accepted HS256 key.
	MinSigningKeyLength = 32
)

// TokenService issues and validates principal tokens.
type TokenService interface {
	Issue(principalID int64, ttl time.Duration) (token string, expiresAt time.Time, err error)
	Validate(token string) (*authDomain.Principal, error)
}

type jwtTokenService struct {
	signingKey []byte
	now        func() time.Time
}

// NewTokenService creates a TokenService signing HS256 JWTs whose subject is the
// decimal principal id.
func NewTokenService(signingKey []byte) (TokenService, error) {
	if len(signingKey) < MinSigningKeyLength {
		return nil, authDomain.ErrInvalidSigningKey
	}
	return &jwtTokenService{signingKey: signingKey, now: time.Now}, nil
}

func (s *jwtTokenService) Issue(principalID int64, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(principalID, 10),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *jwtTokenService) Validate(token string) (*authDomain.Principal, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(*jwt.Token) (interface{}, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, authDomain.ErrTokenExpired
		}
		return nil, authDomain.ErrInvalidToken
	}

	principalID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || principalID <= 0 {
		return nil, authDomain.ErrInvalidToken
	}

	return &authDomain.Principal{ID: principalID, ExpiresAt: claims.ExpiresAt.Time}, nil
}
