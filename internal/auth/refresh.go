package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// refreshTokenBytes is the entropy of an opaque refresh token. 32 bytes
// is far beyond guessability even at the store's full row count.
const refreshTokenBytes = 32

// NewRefreshToken returns a cryptographically random, URL-safe opaque
// token. The plaintext is returned to the client exactly once; only its
// hash (HashToken) is ever persisted.
func NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the SHA-256 hex digest of a refresh token plaintext.
// The digest is what the store indexes; looking up a presented token is
// hash-then-select, never a plaintext comparison. SHA-256 (not bcrypt)
// is fine here: the input already has 256 bits of entropy, so there is
// nothing for an offline attacker to brute-force.
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
