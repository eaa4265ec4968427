// Package service provides pseudonym generation and identity hashing.
package service

// PseudonymGenerator maps real identifiers to human-readable pseudonyms.
type PseudonymGenerator interface {
	// Generate returns the candidate pseudonym for realIdentifier in scope at the given
	// attempt. The same inputs always produce the same output.
	Generate(realIdentifier, scope string, attempt int) (string, error)

	// GenerateUnique returns the first candidate, starting at attempt 0, for which
	// isTaken reports false.
	GenerateUnique(
		realIdentifier, scope string,
		isTaken func(candidate string) (bool, error),
	) (string, error)
}

// IdentityHasher computes the keyed lookup hash of a real identifier.
type IdentityHasher interface {
	Hash(key []byte, scope, realIdentifier string) string
}
