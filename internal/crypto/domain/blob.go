package domain

import (
	"encoding/base64"
	"fmt"
)

// MinBlobSize is the size of a blob carrying an empty ciphertext.
const MinBlobSize = NonceSize + TagSize

// CiphertextBlob is the authenticated-encrypted form of an identity record or key.
//
// Layout: nonce(12) ‖ tag(16) ‖ ciphertext. The blob is transported base64-encoded.
type CiphertextBlob []byte

// NewCiphertextBlob assembles a blob from its parts.
func NewCiphertextBlob(nonce, tag, ciphertext []byte) (CiphertextBlob, error) {
	if len(nonce) != NonceSize || len(tag) != TagSize {
		return nil, ErrIntegrity
	}
	blob := make([]byte, 0, MinBlobSize+len(ciphertext))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// ParseCiphertextBlob decodes a base64 blob and checks its minimum length.
func ParseCiphertextBlob(encoded string) (CiphertextBlob, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64", ErrIntegrity)
	}
	blob := CiphertextBlob(raw)
	if err := blob.Validate(); err != nil {
		return nil, err
	}
	return blob, nil
}

// Validate reports ErrIntegrity when the blob is too short to hold a nonce and tag.
func (b CiphertextBlob) Validate() error {
	if len(b) < MinBlobSize {
		return fmt.Errorf("%w: blob too short", ErrIntegrity)
	}
	return nil
}

// Nonce returns the nonce section. The blob must be valid.
func (b CiphertextBlob) Nonce() []byte { return b[:NonceSize] }

// Tag returns the authentication tag section. The blob must be valid.
func (b CiphertextBlob) Tag() []byte { return b[NonceSize:MinBlobSize] }

// Ciphertext returns the encrypted payload section. The blob must be valid.
func (b CiphertextBlob) Ciphertext() []byte { return b[MinBlobSize:] }

// String returns the standard base64 transport encoding.
func (b CiphertextBlob) String() string {
	return base64.StdEncoding.EncodeToString(b)
}
