package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

func newTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestNewAESGCM(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
		wantErr error
	}{
		{name: "Success_32ByteKey", keySize: 32},
		{name: "Error_16ByteKey", keySize: 16, wantErr: cryptoDomain.ErrInvalidKeySize},
		{name: "Error_24ByteKey", keySize: 24, wantErr: cryptoDomain.ErrInvalidKeySize},
		{name: "Error_EmptyKey", keySize: 0, wantErr: cryptoDomain.ErrInvalidKeySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cipher, err := NewAESGCM(make([]byte, tt.keySize))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, cipher)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, cipher)
		})
	}
}

func TestAESGCMCipher_EncryptDecrypt(t *testing.T) {
	cipher, err := NewAESGCM(newTestKey(t))
	require.NoError(t, err)

	t.Run("Success_RoundTrip", func(t *testing.T) {
		plaintext := []byte("Ivanov Ivan Ivanovich")

		ciphertext, nonce, err := cipher.Encrypt(plaintext, nil)
		require.NoError(t, err)
		assert.Len(t, nonce, cryptoDomain.NonceSize)
		assert.Len(t, ciphertext, len(plaintext)+cryptoDomain.TagSize)

		decrypted, err := cipher.Decrypt(ciphertext, nonce, nil)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("Success_FreshNoncePerCall", func(t *testing.T) {
		_, nonce1, err := cipher.Encrypt([]byte("same"), nil)
		require.NoError(t, err)
		_, nonce2, err := cipher.Encrypt([]byte("same"), nil)
		require.NoError(t, err)
		assert.NotEqual(t, nonce1, nonce2)
	})

	t.Run("Error_WrongNonceSize", func(t *testing.T) {
		ciphertext, _, err := cipher.Encrypt([]byte("value"), nil)
		require.NoError(t, err)

		_, err = cipher.Decrypt(ciphertext, make([]byte, 8), nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("Error_TamperedCiphertext", func(t *testing.T) {
		ciphertext, nonce, err := cipher.Encrypt([]byte("value"), nil)
		require.NoError(t, err)
		ciphertext[0] ^= 0x01

		plaintext, err := cipher.Decrypt(ciphertext, nonce, nil)
		assert.Error(t, err)
		assert.Nil(t, plaintext)
	})

	t.Run("Error_WrongKey", func(t *testing.T) {
		other, err := NewAESGCM(newTestKey(t))
		require.NoError(t, err)

		ciphertext, nonce, err := cipher.Encrypt([]byte("value"), nil)
		require.NoError(t, err)

		_, err = other.Decrypt(ciphertext, nonce, nil)
		assert.Error(t, err)
	})

	t.Run("Error_AADMismatch", func(t *testing.T) {
		ciphertext, nonce, err := cipher.Encrypt([]byte("value"), []byte("users.email"))
		require.NoError(t, err)

		_, err = cipher.Decrypt(ciphertext, nonce, nil)
		assert.Error(t, err)
	})
}
