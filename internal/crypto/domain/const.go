package domain

import "fmt"

// Algorithm represents the AEAD algorithm used to seal identity blobs and wrapped keys.
//
// Both supported algorithms use a 256-bit key, a 96-bit nonce and a 128-bit tag,
// so blobs produced by either share the same layout.
type Algorithm string

const (
	// AESGCM represents AES-256-GCM. Preferred on CPUs with AES-NI.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents ChaCha20-Poly1305. Preferred on platforms without AES acceleration.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// Sizes shared by every supported algorithm.
const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

// ParseAlgorithm converts a configuration value into an Algorithm.
func ParseAlgorithm(value string) (Algorithm, error) {
	switch alg := Algorithm(value); alg {
	case AESGCM, ChaCha20:
		return alg, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, value)
	}
}
