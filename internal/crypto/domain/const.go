package domain

// EnvelopeFormat identifies how an encrypted field value is laid out in storage.
type EnvelopeFormat string

const (
	// FormatLegacy is the bare base64 encoding of nonce || ciphertext || tag.
	//
	// It carries no marker, so readers tell it apart from plaintext by shape only
	// (see LooksLikeEnvelope). It is the default because existing rows use it.
	FormatLegacy EnvelopeFormat = "legacy"

	// FormatTagged prefixes the legacy body with TaggedPrefix. The prefix contains
	// characters outside the base64 alphabet, so tagged values can never be confused
	// with plaintext that merely happens to look like base64.
	FormatTagged EnvelopeFormat = "tagged"
)

const (
	// KeySize is the size of the AES-256 field encryption key in bytes.
	KeySize = 32

	// NonceSize is the AES-GCM nonce size in bytes.
	NonceSize = 12

	// TagSize is the AES-GCM authentication tag size in bytes.
	TagSize = 16

	// MinEnvelopeBytes is the decoded size of an envelope for an empty plaintext.
	MinEnvelopeBytes = NonceSize + TagSize

	// MinEnvelopeLength is the base64 length of MinEnvelopeBytes. Shorter strings are
	// never classified as legacy envelopes.
	MinEnvelopeLength = 40

	// TaggedPrefix marks envelopes written in FormatTagged.
	TaggedPrefix = "enc:v1:"

	// DefaultKeyEnv is the conventional environment variable holding the secret.
	DefaultKeyEnv = "ENCRYPTION_KEY"
)

// ParseEnvelopeFormat converts a configuration string into an EnvelopeFormat.
func ParseEnvelopeFormat(s string) (EnvelopeFormat, error) {
	switch EnvelopeFormat(s) {
	case FormatLegacy:
		return FormatLegacy, nil
	case FormatTagged:
		return FormatTagged, nil
	default:
		return "", ErrUnsupportedEnvelopeFormat
	}
}
