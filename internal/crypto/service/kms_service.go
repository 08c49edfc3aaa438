package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	"github.com/allisson/fieldcrypt/internal/errors"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// kmsService wraps and unwraps the field encryption secret with a gocloud.dev keeper.
//
// In KMS mode the encryption key variable holds base64(KMS ciphertext) instead of the
// secret itself. create-key produces that value with WrapSecret and the key manager
// recovers the secret through UnwrapSecret the first time the key is needed.
type kmsService struct {
	openKeeper func(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

// NewKMSService creates a KMS service backed by gocloud.dev/secrets.
func NewKMSService() KMSService {
	return &kmsService{openKeeper: openGoCloudKeeper}
}

func openGoCloudKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, err
	}
	return keeper, nil
}

// OpenKeeper opens a keeper for keyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := k.openKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// WrapSecret encrypts secret with the keeper at keyURI and returns the base64
// ciphertext to store in the encryption key variable.
func (k *kmsService) WrapSecret(ctx context.Context, keyURI string, secret []byte) (string, error) {
	keeper, err := k.OpenKeeper(ctx, keyURI)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = keeper.Close()
	}()

	ciphertext, err := keeper.Encrypt(ctx, secret)
	if err != nil {
		return "", fmt.Errorf("failed to wrap secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// UnwrapSecret reverses WrapSecret. A value that is not base64 returns
// ErrInvalidKMSCiphertext; keeper failures return ErrKMSUnwrapFailed. Both are
// configuration errors. The caller owns the returned bytes and should zero them.
func (k *kmsService) UnwrapSecret(ctx context.Context, keyURI, wrapped string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, cryptoDomain.ErrInvalidKMSCiphertext
	}

	keeper, err := k.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, errors.Wrap(cryptoDomain.ErrKMSUnwrapFailed, err.Error())
	}
	defer func() {
		_ = keeper.Close()
	}()

	secret, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, errors.Wrap(cryptoDomain.ErrKMSUnwrapFailed, err.Error())
	}
	return secret, nil
}
