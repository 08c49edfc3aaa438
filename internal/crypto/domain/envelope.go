package domain

import (
	"encoding/base64"
	"strings"
)

// Envelope is the decoded form of one encrypted field value.
//
// Wire layout (before text encoding): nonce (12 bytes) || ciphertext || tag (16 bytes).
// The whole byte string is encoded with standard, padded base64 and, for FormatTagged,
// prefixed with TaggedPrefix.
type Envelope struct {
	Nonce      []byte
	Ciphertext []byte // includes the authentication tag
	Format     EnvelopeFormat
}

// ParseEnvelope decodes a stored envelope string.
//
// Tagged values are recognised by their prefix; anything else is treated as a legacy
// envelope. Every failure wraps ErrDecryptionFailed.
func ParseEnvelope(value string) (Envelope, error) {
	format := FormatLegacy
	body := value
	if strings.HasPrefix(value, TaggedPrefix) {
		format = FormatTagged
		body = strings.TrimPrefix(value, TaggedPrefix)
	}

	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return Envelope{}, ErrDecryptionFailed
	}
	if len(raw) < MinEnvelopeBytes {
		return Envelope{}, ErrDecryptionFailed
	}

	return Envelope{
		Nonce:      raw[:NonceSize],
		Ciphertext: raw[NonceSize:],
		Format:     format,
	}, nil
}

// String encodes the envelope in its storage representation.
func (e Envelope) String() string {
	raw := make([]byte, 0, len(e.Nonce)+len(e.Ciphertext))
	raw = append(raw, e.Nonce...)
	raw = append(raw, e.Ciphertext...)

	encoded := base64.StdEncoding.EncodeToString(raw)
	if e.Format == FormatTagged {
		return TaggedPrefix + encoded
	}
	return encoded
}

// EncodedLength returns the stored length of an envelope for a plaintext of n bytes.
// Useful for sizing text columns.
func EncodedLength(n int, format EnvelopeFormat) int {
	length := base64.StdEncoding.EncodedLen(MinEnvelopeBytes + n)
	if format == FormatTagged {
		length += len(TaggedPrefix)
	}
	return length
}

// LooksLikeEnvelope classifies value as envelope-shaped or plaintext.
//
// This is a shape check, not a cryptographic one. Tagged values are checked first;
// otherwise a value is an envelope when it is at least MinEnvelopeLength characters,
// decodes as standard base64 and yields at least MinEnvelopeBytes bytes. A long
// base64-only plaintext can therefore be misclassified as an envelope.
func LooksLikeEnvelope(value string) bool {
	if strings.HasPrefix(value, TaggedPrefix) {
		return decodedAtLeast(strings.TrimPrefix(value, TaggedPrefix), MinEnvelopeBytes)
	}
	if len(value) < MinEnvelopeLength {
		return false
	}
	return decodedAtLeast(value, MinEnvelopeBytes)
}

func decodedAtLeast(s string, n int) bool {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	return len(raw) >= n
}

// Zero overwrites a byte slice with zeros to clear sensitive data from memory.
func Zero(b []byte) {
	clear(b)
}
