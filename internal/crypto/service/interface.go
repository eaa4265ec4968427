// Package service provides the cryptographic primitives behind identity protection:
// AEAD ciphers in the blob layout, PBKDF2 key derivation, the identity vault and
// KMS access for the pepper.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
)

// AEAD seals and opens CiphertextBlobs.
//
// Seal always draws a fresh random 96-bit nonce. Open reports every failure as
// cryptoDomain.ErrIntegrity without distinguishing the cause.
type AEAD interface {
	Seal(plaintext, aad []byte) (cryptoDomain.CiphertextBlob, error)
	Open(blob cryptoDomain.CiphertextBlob, aad []byte) ([]byte, error)
}

// AEADManager creates AEAD cipher instances for a key and algorithm.
type AEADManager interface {
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyDerivation turns principal ids into master keys.
type KeyDerivation interface {
	// DeriveMasterKey returns the deterministic 32-byte key for principalID.
	DeriveMasterKey(principalID int64) (*cryptoDomain.MasterKey, error)

	// DeriveSubkey expands the pepper into a 32-byte key for a named purpose.
	DeriveSubkey(info string) ([]byte, error)
}

// IdentityVault seals and opens identity records bound to a group.
type IdentityVault interface {
	// Encrypt seals {group_id, mapping, created_at} under key.
	Encrypt(
		groupID int64,
		mapping map[string]string,
		key []byte,
	) (cryptoDomain.CiphertextBlob, error)

	// Decrypt opens blob and verifies it belongs to expectedGroupID. Any failure
	// returns cryptoDomain.ErrIntegrity and no partial record.
	Decrypt(
		blob cryptoDomain.CiphertextBlob,
		key []byte,
		expectedGroupID int64,
	) (*cryptoDomain.IdentityRecord, error)
}

// KMSService opens KMS keepers used to protect the pepper at rest.
type KMSService interface {
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}
