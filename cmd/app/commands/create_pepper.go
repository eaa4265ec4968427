package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	cryptoService "github.com/allisson/pseudonyms/internal/crypto/service"
)

// PepperSize is the number of random bytes in a generated pepper.
const PepperSize = 32

// RunCreatePepper generates a random pepper for key derivation and prints the
// environment configuration for it.
//
// Without kmsKeyURI the pepper is printed as PEPPER. With kmsKeyURI it is encrypted
// with KMS and printed as PEPPER_CIPHERTEXT together with KMS_KEY_URI; the plaintext
// never leaves memory. For local development use kmsKeyURI="base64key://...".
//
// The pepper cannot be changed once pseudonyms exist: every master key derives from it.
func RunCreatePepper(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsKeyURI string,
) error {
	raw := make([]byte, PepperSize)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate pepper: %w", err)
	}
	defer cryptoDomain.Zero(raw)

	pepper := []byte(base64.StdEncoding.EncodeToString(raw))
	defer cryptoDomain.Zero(pepper)

	if kmsKeyURI == "" {
		logger.Warn("pepper created without KMS, store it in a secrets manager")
		_, _ = fmt.Fprintln(writer, "# Pepper Configuration")
		_, _ = fmt.Fprintln(writer, "# Copy this environment variable to your .env file or secrets manager")
		_, _ = fmt.Fprintln(writer)
		_, _ = fmt.Fprintf(writer, "PEPPER=\"%s\"\n", pepper)
		return nil
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	ciphertext, err := cryptoService.EncryptPepper(ctx, keeper, pepper)
	if err != nil {
		return err
	}

	logger.Info("pepper created with KMS", slog.String("kms_key_uri", kmsKeyURI))

	_, _ = fmt.Fprintln(writer, "# Pepper Configuration (KMS Mode)")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "PEPPER_CIPHERTEXT=\"%s\"\n", ciphertext)

	return nil
}
