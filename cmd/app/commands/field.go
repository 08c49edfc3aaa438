package commands

import (
	"context"
	"fmt"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
)

// Classification labels printed by RunClassify.
const (
	classEmpty     = "empty"
	classEnvelope  = "envelope"
	classPlaintext = "plaintext"
)

// RunEncrypt encrypts a value and prints the envelope.
func RunEncrypt(fieldCipher cryptoService.FieldCipher, io IOTuple, value string) error {
	plaintext, err := readValue(io.Reader, value)
	if err != nil {
		return err
	}

	envelope, err := fieldCipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt value: %w", err)
	}

	_, err = fmt.Fprintln(io.Writer, envelope)
	return err
}

// RunDecrypt strictly decrypts an envelope and prints the plaintext. Any failure,
// including an undecryptable value, is returned.
func RunDecrypt(fieldCipher cryptoService.FieldCipher, io IOTuple, value string) error {
	envelope, err := readValue(io.Reader, value)
	if err != nil {
		return err
	}

	plaintext, err := fieldCipher.Decrypt(envelope)
	if err != nil {
		return fmt.Errorf("failed to decrypt value: %w", err)
	}

	_, err = fmt.Fprintln(io.Writer, plaintext)
	return err
}

// RunDecryptIfNeeded prints the plaintext of an envelope, or the value itself when it
// is not an envelope or cannot be decrypted.
func RunDecryptIfNeeded(ctx context.Context, fieldCipher cryptoService.FieldCipher, io IOTuple, value string) error {
	stored, err := readValue(io.Reader, value)
	if err != nil {
		return err
	}

	plaintext, err := fieldCipher.DecryptIfNeeded(ctx, stored)
	if err != nil {
		return fmt.Errorf("failed to decrypt value: %w", err)
	}

	_, err = fmt.Fprintln(io.Writer, plaintext)
	return err
}

// RunClassify prints whether a value is empty, envelope-shaped or plaintext. No key
// is needed.
func RunClassify(fieldCipher cryptoService.FieldCipher, io IOTuple, value string) error {
	stored, err := readValue(io.Reader, value)
	if err != nil {
		return err
	}

	class := classPlaintext
	switch {
	case stored == "":
		class = classEmpty
	case fieldCipher.LooksLikeEnvelope(stored):
		class = classEnvelope
	}

	_, err = fmt.Fprintln(io.Writer, class)
	return err
}

// RunHash prints the lookup hash of a value.
func RunHash(hasher cryptoService.LookupHasher, io IOTuple, value string) error {
	plaintext, err := readValue(io.Reader, value)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(io.Writer, hasher.Hash(plaintext))
	return err
}
