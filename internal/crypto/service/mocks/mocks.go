// Package mocks provides mock implementations of the crypto service interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// MockKeyManager is a mock implementation of KeyManager.
type MockKeyManager struct {
	mock.Mock
}

// Key mocks the Key method.
func (m *MockKeyManager) Key() ([]byte, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockSecretSource is a mock implementation of SecretSource.
type MockSecretSource struct {
	mock.Mock
}

// Secret mocks the Secret method.
func (m *MockSecretSource) Secret() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

// MockKMSService is a mock implementation of KMSService.
type MockKMSService struct {
	mock.Mock
}

// OpenKeeper mocks the OpenKeeper method.
func (m *MockKMSService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	args := m.Called(ctx, keyURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(cryptoDomain.KMSKeeper), args.Error(1)
}

// WrapSecret mocks the WrapSecret method.
func (m *MockKMSService) WrapSecret(ctx context.Context, keyURI string, secret []byte) (string, error) {
	args := m.Called(ctx, keyURI, secret)
	return args.String(0), args.Error(1)
}

// UnwrapSecret mocks the UnwrapSecret method.
func (m *MockKMSService) UnwrapSecret(ctx context.Context, keyURI, wrapped string) ([]byte, error) {
	args := m.Called(ctx, keyURI, wrapped)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockKMSKeeper is a mock implementation of KMSKeeper.
type MockKMSKeeper struct {
	mock.Mock
}

// Encrypt mocks the Encrypt method.
func (m *MockKMSKeeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Decrypt mocks the Decrypt method.
func (m *MockKMSKeeper) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	args := m.Called(ctx, ciphertext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Close mocks the Close method.
func (m *MockKMSKeeper) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockDecryptFailureObserver is a mock implementation of DecryptFailureObserver.
type MockDecryptFailureObserver struct {
	mock.Mock
}

// DecryptFailed mocks the DecryptFailed method.
func (m *MockDecryptFailureObserver) DecryptFailed(ctx context.Context, err error) {
	m.Called(ctx, err)
}

// MockFieldCipher is a mock implementation of FieldCipher.
type MockFieldCipher struct {
	mock.Mock
}

// Encrypt mocks the Encrypt method.
func (m *MockFieldCipher) Encrypt(plaintext string) (string, error) {
	args := m.Called(plaintext)
	return args.String(0), args.Error(1)
}

// Decrypt mocks the Decrypt method.
func (m *MockFieldCipher) Decrypt(envelope string) (string, error) {
	args := m.Called(envelope)
	return args.String(0), args.Error(1)
}

// LooksLikeEnvelope mocks the LooksLikeEnvelope method.
func (m *MockFieldCipher) LooksLikeEnvelope(value string) bool {
	args := m.Called(value)
	return args.Bool(0)
}

// EncryptIfNeeded mocks the EncryptIfNeeded method.
func (m *MockFieldCipher) EncryptIfNeeded(value string) (string, error) {
	args := m.Called(value)
	return args.String(0), args.Error(1)
}

// DecryptIfNeeded mocks the DecryptIfNeeded method.
func (m *MockFieldCipher) DecryptIfNeeded(ctx context.Context, value string) (string, error) {
	args := m.Called(ctx, value)
	return args.String(0), args.Error(1)
}
