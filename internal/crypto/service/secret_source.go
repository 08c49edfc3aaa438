package service

import (
	"context"
	"os"
	"time"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// EnvSecretSource reads the secret from an environment variable.
type EnvSecretSource struct {
	Name string
}

// NewEnvSecretSource returns a source reading the named variable, or
// ENCRYPTION_KEY when name is empty.
func NewEnvSecretSource(name string) *EnvSecretSource {
	if name == "" {
		name = cryptoDomain.DefaultKeyEnv
	}
	return &EnvSecretSource{Name: name}
}

// Secret returns the variable's value; an unset variable yields "".
func (s *EnvSecretSource) Secret() (string, error) {
	return os.Getenv(s.Name), nil
}

// StaticSecretSource returns a secret injected by the caller.
type StaticSecretSource string

// Secret returns the injected value.
func (s StaticSecretSource) Secret() (string, error) {
	return string(s), nil
}

// KMSSecretSource unwraps a KMS-encrypted secret.
//
// The wrapped value (base64 of the KMS ciphertext) is read from Wrapped and decrypted
// through the keeper at KeyURI. The unwrapped plaintext is the secret the key is
// derived from; there is still exactly one static key per deployment.
type KMSSecretSource struct {
	kmsService KMSService
	keyURI     string
	wrapped    SecretSource
	timeout    time.Duration
}

// NewKMSSecretSource creates a KMSSecretSource.
func NewKMSSecretSource(
	kmsService KMSService,
	keyURI string,
	wrapped SecretSource,
	timeout time.Duration,
) *KMSSecretSource {
	return &KMSSecretSource{
		kmsService: kmsService,
		keyURI:     keyURI,
		wrapped:    wrapped,
		timeout:    timeout,
	}
}

// Secret unwraps the configured value through the KMS service.
func (s *KMSSecretSource) Secret() (string, error) {
	wrapped, err := s.wrapped.Secret()
	if err != nil {
		return "", err
	}
	if wrapped == "" {
		return "", nil
	}

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	plaintext, err := s.kmsService.UnwrapSecret(ctx, s.keyURI, wrapped)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(plaintext)

	return string(plaintext), nil
}
