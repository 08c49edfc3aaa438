package service

import (
	"context"
	"unicode/utf8"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	"github.com/allisson/fieldcrypt/internal/errors"
)

// FieldCipherService implements FieldCipher with AES-256-GCM.
//
// Envelopes are nonce || ciphertext || tag in padded standard base64, optionally
// prefixed with "enc:v1:" (FormatTagged). Reads accept both formats regardless of
// the configured write format, so switching to tagged envelopes keeps old rows
// readable.
//
// Strictness is asymmetric on purpose: Encrypt, Decrypt and EncryptIfNeeded propagate
// every failure, DecryptIfNeeded swallows decryption failures (reporting them to the
// observer) so legacy plaintext and ciphertext can coexist during a migration.
type FieldCipherService struct {
	keyManager KeyManager
	format     cryptoDomain.EnvelopeFormat
	observer   DecryptFailureObserver
}

// FieldCipherOption configures a FieldCipherService.
type FieldCipherOption func(*FieldCipherService)

// WithEnvelopeFormat selects the format of envelopes produced by Encrypt.
func WithEnvelopeFormat(format cryptoDomain.EnvelopeFormat) FieldCipherOption {
	return func(f *FieldCipherService) {
		f.format = format
	}
}

// WithObserver sets the observer notified of swallowed decryption failures.
func WithObserver(observer DecryptFailureObserver) FieldCipherOption {
	return func(f *FieldCipherService) {
		f.observer = observer
	}
}

// NewFieldCipher creates a FieldCipherService writing legacy envelopes by default.
func NewFieldCipher(keyManager KeyManager, opts ...FieldCipherOption) *FieldCipherService {
	f := &FieldCipherService{
		keyManager: keyManager,
		format:     cryptoDomain.FormatLegacy,
		observer:   NoOpObserver{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Encrypt encrypts plaintext into an envelope.
//
// The empty string is returned unchanged without touching the key manager, keeping
// "no value" distinguishable from an encrypted empty value. Encrypting the same
// plaintext twice yields different envelopes.
func (f *FieldCipherService) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}
	if !utf8.ValidString(plaintext) {
		return "", cryptoDomain.ErrInvalidPlaintext
	}

	aead, err := f.cipher()
	if err != nil {
		return "", err
	}

	ciphertext, nonce, err := aead.Encrypt([]byte(plaintext), nil)
	if err != nil {
		return "", err
	}

	envelope := cryptoDomain.Envelope{
		Nonce:      nonce,
		Ciphertext: ciphertext,
		Format:     f.format,
	}
	return envelope.String(), nil
}

// Decrypt decrypts an envelope produced by Encrypt.
//
// The empty string is returned unchanged without touching the key manager. The key
// is obtained before the envelope is parsed, so a missing key always surfaces as a
// configuration error. Any other failure is ErrDecryptionFailed.
func (f *FieldCipherService) Decrypt(envelope string) (string, error) {
	if envelope == "" {
		return envelope, nil
	}

	aead, err := f.cipher()
	if err != nil {
		return "", err
	}

	env, err := cryptoDomain.ParseEnvelope(envelope)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Decrypt(env.Ciphertext, env.Nonce, nil)
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}
	if !utf8.Valid(plaintext) {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// LooksLikeEnvelope reports whether value is shaped like an envelope. It performs
// no cryptographic verification and never fails.
func (f *FieldCipherService) LooksLikeEnvelope(value string) bool {
	return cryptoDomain.LooksLikeEnvelope(value)
}

// EncryptIfNeeded returns value unchanged if it already looks like an envelope,
// otherwise encrypts it. Re-saving an encrypted record therefore never
// double-encrypts.
func (f *FieldCipherService) EncryptIfNeeded(value string) (string, error) {
	if value == "" || f.LooksLikeEnvelope(value) {
		return value, nil
	}
	return f.Encrypt(value)
}

// DecryptIfNeeded returns value unchanged if it does not look like an envelope
// (legacy plaintext), otherwise decrypts it.
//
// When decryption fails the stored value is returned verbatim and the failure is
// reported to the observer. If the key is wrong for the whole deployment every
// encrypted field degrades this way, which is why the observer exists. Only
// ErrDecryptionFailed is swallowed; configuration and key source errors are returned.
func (f *FieldCipherService) DecryptIfNeeded(ctx context.Context, value string) (string, error) {
	if !f.LooksLikeEnvelope(value) {
		return value, nil
	}

	plaintext, err := f.Decrypt(value)
	if err == nil {
		return plaintext, nil
	}
	if !errors.Is(err, cryptoDomain.ErrDecryptionFailed) {
		return "", err
	}

	f.observer.DecryptFailed(ctx, err)
	return value, nil
}

func (f *FieldCipherService) cipher() (*AESGCMCipher, error) {
	key, err := f.keyManager.Key()
	if err != nil {
		return nil, err
	}
	return NewAESGCM(key)
}
