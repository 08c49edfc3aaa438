package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

type sha256LookupHasher struct{}

// NewSHA256LookupHasher creates the lookup hasher used for hash sidecar columns
// (for example email_hash next to an encrypted email). Uniqueness and equality
// queries go against the sidecar because envelopes are randomized.
func NewSHA256LookupHasher() LookupHasher {
	return &sha256LookupHasher{}
}

// Hash returns the hex SHA-256 of the lowercased value, or "" for an empty value.
func (s *sha256LookupHasher) Hash(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.ToLower(value)))
	return hex.EncodeToString(sum[:])
}
