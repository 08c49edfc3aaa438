package domain

import (
	stderrors "errors"

	"github.com/allisson/fieldcrypt/internal/errors"
)

// Reason labels attached to swallowed decryption failures in logs and metrics.
const (
	ReasonDecryptionFailed = "decryption_failed"
	ReasonUnknown          = "unknown"
)

// Field encryption error definitions.
//
// The taxonomy is deliberately small: configuration problems are fatal for the
// operation that hit them, decryption problems are a single recoverable class.
var (
	// ErrEncryptionKeyNotSet indicates the secret is missing or empty when the key is
	// first requested. There is no fallback key.
	ErrEncryptionKeyNotSet = errors.Wrap(errors.ErrConfiguration, "encryption key not set")

	// ErrKeyManagerClosed indicates the key manager has released its key material.
	ErrKeyManagerClosed = errors.Wrap(errors.ErrConfiguration, "key manager closed")

	// ErrInvalidKMSCiphertext indicates the configured KMS-wrapped secret is not valid base64.
	ErrInvalidKMSCiphertext = errors.Wrap(errors.ErrConfiguration, "invalid kms ciphertext encoding")

	// ErrKMSUnwrapFailed indicates the KMS keeper could not be opened or refused to
	// decrypt the wrapped secret.
	ErrKMSUnwrapFailed = errors.Wrap(errors.ErrConfiguration, "failed to unwrap encryption key")

	// ErrUnsupportedEnvelopeFormat indicates an unknown envelope format was configured.
	ErrUnsupportedEnvelopeFormat = errors.Wrap(errors.ErrConfiguration, "unsupported envelope format")

	// ErrDecryptionFailed indicates a value could not be decrypted.
	//
	// Causes include a wrong key, tampered or corrupted data, malformed base64, an
	// envelope shorter than nonce plus tag, or a plaintext that is not valid UTF-8.
	// These are operationally indistinguishable and are not reported separately.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrInvalidPlaintext indicates a plaintext that is not valid UTF-8. Such a value
	// could never be decrypted back to the same string, so it is rejected up front.
	ErrInvalidPlaintext = errors.Wrap(errors.ErrInvalidInput, "plaintext is not valid utf-8")

	// ErrInvalidKeySize indicates key material that is not exactly KeySize bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")
)

// FailureReason maps a decryption error to a stable, value-free label.
func FailureReason(err error) string {
	if stderrors.Is(err, ErrDecryptionFailed) {
		return ReasonDecryptionFailed
	}
	return ReasonUnknown
}
