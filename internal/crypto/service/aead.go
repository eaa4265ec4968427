package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
)

// aeadCipher adapts a cipher.AEAD to the nonce ‖ tag ‖ ciphertext blob layout.
//
// cipher.AEAD.Seal appends the tag after the ciphertext; Seal moves it in front so
// every blob starts with fixed-size header fields.
type aeadCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates an AES-256-GCM cipher. The key must be exactly 32 bytes.
func NewAESGCM(key []byte) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &aeadCipher{aead: aead}, nil
}

// NewChaCha20Poly1305 creates a ChaCha20-Poly1305 cipher. The key must be exactly 32 bytes.
func NewChaCha20Poly1305(key []byte) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}

	return &aeadCipher{aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (c *aeadCipher) Seal(plaintext, aad []byte) (cryptoDomain.CiphertextBlob, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, aad)
	split := len(sealed) - c.aead.Overhead()

	return cryptoDomain.NewCiphertextBlob(nonce, sealed[split:], sealed[:split])
}

// Open authenticates and decrypts blob. Any failure is reported as ErrIntegrity.
func (c *aeadCipher) Open(blob cryptoDomain.CiphertextBlob, aad []byte) ([]byte, error) {
	if err := blob.Validate(); err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(blob)-cryptoDomain.NonceSize)
	sealed = append(sealed, blob.Ciphertext()...)
	sealed = append(sealed, blob.Tag()...)

	plaintext, err := c.aead.Open(nil, blob.Nonce(), sealed, aad)
	if err != nil {
		return nil, cryptoDomain.ErrIntegrity
	}
	return plaintext, nil
}
