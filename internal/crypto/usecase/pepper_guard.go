package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/allisson/go-pwdhash"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// PepperGuard refuses to start with a pepper other than the one already in use.
//
// A changed pepper silently changes every derived key, which would orphan every blob
// written so far. The first start records a password-hash verifier of the pepper and
// later starts must verify against it.
type PepperGuard struct {
	repo   PepperVerifierRepository
	hasher *pwdhash.PasswordHasher
}

// NewPepperGuard creates a PepperGuard using go-pwdhash's moderate policy.
func NewPepperGuard(repo PepperVerifierRepository) (*PepperGuard, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		return nil, err
	}
	return &PepperGuard{repo: repo, hasher: hasher}, nil
}

// Ensure records the verifier on first use and checks it afterwards.
func (g *PepperGuard) Ensure(ctx context.Context, pepper *cryptoDomain.Pepper) error {
	verifier, err := g.repo.Get(ctx)
	if apperrors.Is(err, cryptoDomain.ErrPepperVerifierNotFound) {
		hash, err := g.hasher.Hash(pepper.Bytes())
		if err != nil {
			return fmt.Errorf("failed to hash pepper: %w", err)
		}
		return g.repo.Create(ctx, &cryptoDomain.PepperVerifier{
			ID:        1,
			Hash:      hash,
			CreatedAt: time.Now().UTC(),
		})
	}
	if err != nil {
		return err
	}

	ok, err := g.hasher.Verify(pepper.Bytes(), verifier.Hash)
	if err != nil || !ok {
		return cryptoDomain.ErrPepperMismatch
	}
	return nil
}
