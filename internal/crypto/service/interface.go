// Package service provides the field encryption primitives: the key manager that
// derives and caches the process-wide AES-256 key, the AES-GCM cipher, and the
// field cipher that turns individual string values into storable envelopes.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)
	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// SecretSource supplies the externally configured secret the key is derived from.
type SecretSource interface {
	// Secret returns the raw secret. An empty string means "not configured".
	Secret() (string, error)
}

// KeyManager produces the 32-byte field encryption key.
type KeyManager interface {
	// Key returns the cached key, deriving it on first use. The returned slice is
	// read-only and must not be retained beyond the calling operation.
	Key() ([]byte, error)
}

// FieldCipher encrypts, decrypts and classifies individual field values.
type FieldCipher interface {
	// Encrypt returns the envelope for plaintext. The empty string is returned unchanged.
	Encrypt(plaintext string) (string, error)
	// Decrypt returns the plaintext for an envelope. The empty string is returned unchanged.
	Decrypt(envelope string) (string, error)
	// LooksLikeEnvelope reports whether value is shaped like an envelope.
	LooksLikeEnvelope(value string) bool
	// EncryptIfNeeded encrypts value unless it already looks like an envelope.
	EncryptIfNeeded(value string) (string, error)
	// DecryptIfNeeded decrypts value when it looks like an envelope. Decryption
	// failures are reported to the observer and the value is returned unchanged;
	// configuration errors are returned.
	DecryptIfNeeded(ctx context.Context, value string) (string, error)
}

// DecryptFailureObserver is notified every time DecryptIfNeeded swallows a
// decryption failure and returns the stored value verbatim.
type DecryptFailureObserver interface {
	DecryptFailed(ctx context.Context, err error)
}

// LookupHasher computes deterministic lookup hashes for equality and uniqueness
// queries on encrypted columns.
type LookupHasher interface {
	Hash(value string) string
}

// KMSService protects the field encryption secret with an external KMS.
type KMSService interface {
	// OpenKeeper opens a keeper for the given key URI.
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)

	// WrapSecret encrypts secret and returns the base64 value stored in configuration.
	WrapSecret(ctx context.Context, keyURI string, secret []byte) (string, error)

	// UnwrapSecret decrypts a value produced by WrapSecret.
	UnwrapSecret(ctx context.Context, keyURI, wrapped string) ([]byte, error)
}
