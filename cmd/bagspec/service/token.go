package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// tokenBytes is the entropy of a form token: 256 bits
const tokenBytes = 32

// TokenIssuer mints form-link tokens
type TokenIssuer interface {
	Issue() (string, error)
}

// RandomTokenIssuer draws tokens from a cryptographic source and encodes
// them as unpadded base64url, so they are safe in a URL path segment.
type RandomTokenIssuer struct {
	source io.Reader
}

// NewTokenIssuer creates an issuer backed by crypto/rand
func NewTokenIssuer() *RandomTokenIssuer {
	return &RandomTokenIssuer{source: rand.Reader}
}

// Issue returns a new 43-character token
func (i *RandomTokenIssuer) Issue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(i.source, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
