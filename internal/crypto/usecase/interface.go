// Package usecase resolves principal master keys and guards the pepper.
//
// Two key modes are supported. In derived mode a master key is recomputed from the
// principal id and the pepper on every request and never stored. In random mode a
// master key is generated once per principal and persisted wrapped under a key
// derived from the pepper.
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
)

// MasterKeyRepository persists wrapped random master keys.
type MasterKeyRepository interface {
	// Get returns the stored key for principalID or cryptoDomain.ErrMasterKeyNotFound.
	Get(ctx context.Context, principalID int64) (*cryptoDomain.StoredMasterKey, error)

	// Create inserts a stored key. A concurrent insert for the same principal returns
	// cryptoDomain.ErrMasterKeyAlreadyExists.
	Create(ctx context.Context, key *cryptoDomain.StoredMasterKey) error
}

// PepperVerifierRepository persists the pepper fingerprint.
type PepperVerifierRepository interface {
	// Get returns the verifier or cryptoDomain.ErrPepperVerifierNotFound.
	Get(ctx context.Context) (*cryptoDomain.PepperVerifier, error)

	// Create stores the verifier. It fails with a conflict if one already exists.
	Create(ctx context.Context, verifier *cryptoDomain.PepperVerifier) error
}

// KeyProvider returns a principal's master key according to the configured key mode.
//
// Each call returns a fresh copy of the key; callers should Close it when done.
type KeyProvider interface {
	MasterKey(ctx context.Context, principalID int64) (*cryptoDomain.MasterKey, error)
}
