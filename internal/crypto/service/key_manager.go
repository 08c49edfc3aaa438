package service

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// KeyManagerService derives the field encryption key from a SecretSource and caches
// it for the lifetime of the process.
//
// The manager has two states, uninitialized and cached. The transition happens on
// the first successful Key call and is one-way: there is no reset, a new key needs a
// new process. A failed derivation (missing secret) leaves the manager uninitialized
// so a later call reads the source again.
//
// The cached key lives in a memguard LockedBuffer: mlocked, guarded and frozen
// read-only. It is never logged.
//
// Thread safety: concurrent first calls are serialized by a mutex, so the secret is
// read and hashed once and no caller observes a partially initialized key.
type KeyManagerService struct {
	source SecretSource

	mu     sync.RWMutex
	key    *memguard.LockedBuffer
	closed bool
}

// NewKeyManager creates a KeyManagerService reading its secret from source.
// The source is not consulted until the first Key call.
func NewKeyManager(source SecretSource) *KeyManagerService {
	return &KeyManagerService{source: source}
}

// Key returns the 32-byte key, deriving it as SHA-256(secret) on first use.
//
// Returns ErrEncryptionKeyNotSet (an ErrConfiguration) if the secret is absent or
// empty, ErrKeyManagerClosed after Destroy, or the source's own error.
func (km *KeyManagerService) Key() ([]byte, error) {
	km.mu.RLock()
	if km.key != nil {
		key := km.key.Bytes()
		km.mu.RUnlock()
		return key, nil
	}
	closed := km.closed
	km.mu.RUnlock()

	if closed {
		return nil, cryptoDomain.ErrKeyManagerClosed
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	// Another caller may have finished initialization while we waited.
	if km.key != nil {
		return km.key.Bytes(), nil
	}
	if km.closed {
		return nil, cryptoDomain.ErrKeyManagerClosed
	}

	secret, err := km.source.Secret()
	if err != nil {
		return nil, fmt.Errorf("failed to read encryption secret: %w", err)
	}
	if secret == "" {
		return nil, cryptoDomain.ErrEncryptionKeyNotSet
	}

	digest := sha256.Sum256([]byte(secret))
	// NewBufferFromBytes copies the digest into locked memory and wipes the source.
	buf := memguard.NewBufferFromBytes(digest[:])
	buf.Freeze()
	km.key = buf

	return km.key.Bytes(), nil
}

// Initialized reports whether the key has been derived and cached.
func (km *KeyManagerService) Initialized() bool {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.key != nil
}

// Destroy wipes the cached key. It is meant for process shutdown only; every later
// Key call fails with ErrKeyManagerClosed.
func (km *KeyManagerService) Destroy() {
	km.mu.Lock()
	defer km.mu.Unlock()

	if km.key != nil {
		km.key.Destroy()
		km.key = nil
	}
	km.closed = true
}
