package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"

	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

type kmsService struct{}

// NewKMSService creates a KMSService backed by gocloud.dev/secrets.
//
// Supported URI schemes: awskms://, gcpkms://, azurekeyvault://, hashivault://
// and base64key:// for local development.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens the keeper identified by keyURI. The caller must Close it.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// DecryptPepper opens a base64 KMS ciphertext into a Pepper.
func DecryptPepper(
	ctx context.Context,
	keeper cryptoDomain.KMSKeeper,
	ciphertext string,
) (*cryptoDomain.Pepper, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("invalid pepper ciphertext encoding: %w", err)
	}

	plaintext, err := keeper.Decrypt(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt pepper: %w", err)
	}
	defer cryptoDomain.Zero(plaintext)

	return cryptoDomain.NewPepper(plaintext)
}

// EncryptPepper seals a pepper with keeper and returns the base64 ciphertext.
func EncryptPepper(
	ctx context.Context,
	keeper cryptoDomain.KMSKeeper,
	pepper []byte,
) (string, error) {
	ciphertext, err := keeper.Encrypt(ctx, pepper)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt pepper: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// LoadPepper returns the configured pepper. A plaintext value wins; otherwise the
// KMS ciphertext is decrypted with keyURI. Neither configured is ErrPepperNotConfigured.
func LoadPepper(
	ctx context.Context,
	kms KMSService,
	plaintext, ciphertext, keyURI string,
) (*cryptoDomain.Pepper, error) {
	if plaintext != "" {
		return cryptoDomain.NewPepper([]byte(plaintext))
	}
	if ciphertext == "" {
		return nil, cryptoDomain.ErrPepperNotConfigured
	}

	keeper, err := kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = keeper.Close()
	}()

	return DecryptPepper(ctx, keeper, ciphertext)
}
