package domain

import "context"

// KMSKeeper decrypts material protected by an external key management service.
// It is satisfied by *secrets.Keeper from gocloud.dev.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
