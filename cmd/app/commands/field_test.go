package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
)

func newFieldCipher(secret string) *cryptoService.FieldCipherService {
	return cryptoService.NewFieldCipher(cryptoService.NewKeyManager(cryptoService.StaticSecretSource(secret)))
}

func run(t *testing.T, fn func(io IOTuple) error, stdin string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := fn(IOTuple{Reader: strings.NewReader(stdin), Writer: &out})
	return strings.TrimSuffix(out.String(), "\n"), err
}

func TestRunEncryptDecrypt(t *testing.T) {
	fc := newFieldCipher("test-secret-value")

	envelope, err := run(t, func(io IOTuple) error { return RunEncrypt(fc, io, "771234567890") }, "")
	require.NoError(t, err)
	assert.Len(t, envelope, 56)
	assert.True(t, fc.LooksLikeEnvelope(envelope))

	t.Run("decrypt-from-flag", func(t *testing.T) {
		plaintext, err := run(t, func(io IOTuple) error { return RunDecrypt(fc, io, envelope) }, "")
		require.NoError(t, err)
		assert.Equal(t, "771234567890", plaintext)
	})

	t.Run("decrypt-from-stdin", func(t *testing.T) {
		plaintext, err := run(t, func(io IOTuple) error { return RunDecrypt(fc, io, "") }, envelope+"\n")
		require.NoError(t, err)
		assert.Equal(t, "771234567890", plaintext)
	})

	t.Run("strict-decrypt-fails-on-plaintext", func(t *testing.T) {
		out, err := run(t, func(io IOTuple) error { return RunDecrypt(fc, io, "Ivanov Ivan Ivanovich") }, "")
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		assert.Empty(t, out)
	})

	t.Run("strict-decrypt-fails-on-wrong-key", func(t *testing.T) {
		_, err := run(t, func(io IOTuple) error {
			return RunDecrypt(newFieldCipher("another-secret"), io, envelope)
		}, "")
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("multi-line-stdin", func(t *testing.T) {
		address := "Moscow, Lenina 1\napt 5"

		sealed, err := run(t, func(io IOTuple) error { return RunEncrypt(fc, io, "") }, address+"\n")
		require.NoError(t, err)

		plaintext, err := fc.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, address, plaintext)
	})

	t.Run("encrypt-without-key", func(t *testing.T) {
		_, err := run(t, func(io IOTuple) error { return RunEncrypt(newFieldCipher(""), io, "x") }, "")
		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	})
}

func TestRunDecryptIfNeeded(t *testing.T) {
	ctx := context.Background()
	fc := newFieldCipher("test-secret-value")
	envelope, err := fc.Encrypt("ivan@example.com")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "envelope", value: envelope, want: "ivan@example.com"},
		{name: "legacy-plaintext", value: "Ivanov Ivan Ivanovich", want: "Ivanov Ivan Ivanovich"},
		{name: "undecryptable", value: strings.Repeat("A", 40), want: strings.Repeat("A", 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, func(io IOTuple) error { return RunDecryptIfNeeded(ctx, fc, io, tt.value) }, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRunClassify(t *testing.T) {
	fc := newFieldCipher("")

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "empty", value: "", want: "empty"},
		{name: "plaintext", value: "Ivanov Ivan Ivanovich", want: "plaintext"},
		{name: "too-short", value: strings.Repeat("A", 36), want: "plaintext"},
		{name: "envelope", value: strings.Repeat("A", 40), want: "envelope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, func(io IOTuple) error { return RunClassify(fc, io, "") }, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRunHash(t *testing.T) {
	hasher := cryptoService.NewSHA256LookupHasher()

	upper, err := run(t, func(io IOTuple) error { return RunHash(hasher, io, "ABC") }, "")
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", upper)

	fromStdin, err := run(t, func(io IOTuple) error { return RunHash(hasher, io, "") }, "abc\r\n")
	require.NoError(t, err)
	assert.Equal(t, upper, fromStdin)

	address := "Moscow, Lenina 1\napt 5"
	multiLine, err := run(t, func(io IOTuple) error { return RunHash(hasher, io, "") }, address+"\n")
	require.NoError(t, err)
	assert.Equal(t, hasher.Hash(address), multiLine)
	assert.NotEqual(t, hasher.Hash("Moscow, Lenina 1"), multiLine)
}

func TestReadValue(t *testing.T) {
	value, err := readValue(nil, "")
	require.NoError(t, err)
	assert.Empty(t, value)

	value, err = readValue(strings.NewReader("first\nsecond\n"), "")
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", value)

	value, err = readValue(strings.NewReader("first\r\nsecond\r\n"), "")
	require.NoError(t, err)
	assert.Equal(t, "first\r\nsecond", value)

	value, err = readValue(strings.NewReader("padded\n\n"), "")
	require.NoError(t, err)
	assert.Equal(t, "padded\n", value)

	value, err = readValue(strings.NewReader("no-terminator"), "")
	require.NoError(t, err)
	assert.Equal(t, "no-terminator", value)

	value, err = readValue(strings.NewReader("ignored"), "flag")
	require.NoError(t, err)
	assert.Equal(t, "flag", value)
}
