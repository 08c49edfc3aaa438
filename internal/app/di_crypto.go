package app

import (
	"fmt"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	"github.com/allisson/fieldcrypt/internal/fieldcrypt"
)

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// SecretSource returns the source of the field encryption secret. When a KMS key URI
// is configured the environment variable holds a KMS ciphertext that is unwrapped on
// first use.
func (c *Container) SecretSource() cryptoService.SecretSource {
	c.secretSourceInit.Do(func() {
		c.secretSource = c.initSecretSource()
	})
	return c.secretSource
}

// KeyManager returns the key manager. The key is derived lazily on first use.
func (c *Container) KeyManager() *cryptoService.KeyManagerService {
	c.keyManagerInit.Do(func() {
		c.keyManager = cryptoService.NewKeyManager(c.SecretSource())
	})
	return c.keyManager
}

// FieldCipher returns the field cipher.
func (c *Container) FieldCipher() (cryptoService.FieldCipher, error) {
	var err error
	c.fieldCipherInit.Do(func() {
		c.fieldCipher, err = c.initFieldCipher()
		if err != nil {
			c.initErrors["fieldCipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fieldCipher"]; exists {
		return nil, storedErr
	}
	return c.fieldCipher, nil
}

// LookupHasher returns the lookup hasher.
func (c *Container) LookupHasher() cryptoService.LookupHasher {
	c.lookupHasherInit.Do(func() {
		c.lookupHasher = cryptoService.NewSHA256LookupHasher()
	})
	return c.lookupHasher
}

// Interceptor returns the struct interceptor used by repositories.
//
// No command in this binary needs it: it is the hook through which an embedding
// application's data-access layer seals structs before writes and opens them after
// reads, sharing this container's key manager and cipher settings.
func (c *Container) Interceptor() (*fieldcrypt.Interceptor, error) {
	var err error
	c.interceptorInit.Do(func() {
		c.interceptor, err = c.initInterceptor()
		if err != nil {
			c.initErrors["interceptor"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["interceptor"]; exists {
		return nil, storedErr
	}
	return c.interceptor, nil
}

// VerifyEncryptionKey derives the key now so a missing or unusable secret fails
// startup instead of the first request.
func (c *Container) VerifyEncryptionKey() error {
	if _, err := c.KeyManager().Key(); err != nil {
		return fmt.Errorf("failed to load encryption key: %w", err)
	}
	return nil
}

func (c *Container) initSecretSource() cryptoService.SecretSource {
	source := cryptoService.NewEnvSecretSource(c.config.EncryptionKeyEnv)
	if c.config.EncryptionKeyKMSURI == "" {
		return source
	}
	return cryptoService.NewKMSSecretSource(
		c.KMSService(),
		c.config.EncryptionKeyKMSURI,
		source,
		c.config.EncryptionKeyKMSTimeout,
	)
}

func (c *Container) initFieldCipher() (cryptoService.FieldCipher, error) {
	format, err := cryptoDomain.ParseEnvelopeFormat(c.config.EnvelopeFormat)
	if err != nil {
		return nil, err
	}

	fieldMetrics, err := c.FieldMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get field metrics for field cipher: %w", err)
	}

	observer := cryptoService.MultiObserver{
		cryptoService.NewLoggingObserver(c.Logger()),
		cryptoService.NewMetricsObserver(fieldMetrics),
	}

	return cryptoService.NewFieldCipher(
		c.KeyManager(),
		cryptoService.WithEnvelopeFormat(format),
		cryptoService.WithObserver(observer),
	), nil
}

func (c *Container) initInterceptor() (*fieldcrypt.Interceptor, error) {
	fieldCipher, err := c.FieldCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get field cipher for interceptor: %w", err)
	}
	return fieldcrypt.NewInterceptor(fieldCipher, c.LookupHasher()), nil
}
