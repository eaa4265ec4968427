package domain

import (
	"github.com/allisson/pseudonyms/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// so the HTTP layer can map them without knowing about cryptography.
var (
	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a key that is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrIntegrity indicates a blob failed authentication, was malformed, or was bound
	// to a different group. The cause is never disclosed.
	ErrIntegrity = errors.Wrap(errors.ErrInvalidInput, "integrity check failed")

	// ErrKeyDerivation indicates a master key could not be produced for a principal.
	ErrKeyDerivation = errors.Wrap(errors.ErrInvalidInput, "key derivation failed")

	// ErrPepperNotConfigured indicates the server-held pepper is missing.
	// It is fatal at startup.
	ErrPepperNotConfigured = errors.Wrap(errors.ErrInvalidInput, "pepper is not configured")

	// ErrPepperMismatch indicates the configured pepper differs from the one that
	// produced the keys already in use.
	ErrPepperMismatch = errors.Wrap(errors.ErrConflict, "pepper does not match stored verifier")

	// ErrMasterKeyNotFound indicates no persisted master key exists for the principal.
	ErrMasterKeyNotFound = errors.Wrap(errors.ErrNotFound, "master key not found")

	// ErrMasterKeyAlreadyExists indicates a concurrent writer persisted the principal's key first.
	ErrMasterKeyAlreadyExists = errors.Wrap(errors.ErrConflict, "master key already exists")

	// ErrPepperVerifierNotFound indicates no pepper verifier has been stored yet.
	ErrPepperVerifierNotFound = errors.Wrap(errors.ErrNotFound, "pepper verifier not found")
)
