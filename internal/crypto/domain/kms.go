package domain

import "context"

// KMSKeeper is the subset of gocloud.dev/secrets.Keeper used to unwrap the
// configured secret.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
