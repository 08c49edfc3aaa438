package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"github.com/awnumar/memguard"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
)

// secretSize is the number of random bytes in a generated secret.
const secretSize = 32

// RunCreateKey generates a random secret suitable for the encryption key variable.
//
// Without kmsKeyURI the secret is printed as base64. With kmsKeyURI the secret is
// encrypted by the keeper and the base64 ciphertext is printed together with the URI,
// ready for ENCRYPTION_KEY and ENCRYPTION_KEY_KMS_URI. The raw bytes are wiped
// before returning.
func RunCreateKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	keyEnv string,
	kmsKeyURI string,
) error {
	secret := make([]byte, secretSize)
	defer memguard.WipeBytes(secret)

	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(secret)

	if kmsKeyURI == "" {
		_, _ = fmt.Fprintln(writer, "# Field encryption key")
		_, _ = fmt.Fprintln(writer, "# Store this value in your secrets manager; losing it makes every envelope unreadable")
		_, _ = fmt.Fprintf(writer, "%s=\"%s\"\n", keyEnv, encoded)
		logger.Info("encryption key generated")
		return nil
	}

	wrapped, err := kmsService.WrapSecret(ctx, kmsKeyURI, []byte(encoded))
	if err != nil {
		return fmt.Errorf("failed to encrypt secret with KMS: %w", err)
	}

	_, _ = fmt.Fprintln(writer, "# Field encryption key (KMS mode)")
	_, _ = fmt.Fprintln(writer, "# The secret is unwrapped through the KMS keeper on first use")
	_, _ = fmt.Fprintf(writer, "%s=\"%s\"\n", keyEnv, wrapped)
	_, _ = fmt.Fprintf(writer, "ENCRYPTION_KEY_KMS_URI=\"%s\"\n", kmsKeyURI)

	logger.Info("encryption key generated", slog.Bool("kms", true))
	return nil
}
