package model

import "time"

// RefreshToken is a long-lived credential grant bound to one user and one
// device. Only the SHA-256 hex digest of the opaque token value is
// stored; the plaintext is handed to the client exactly once at issuance
// and is not recoverable from this row.
//
// TokenHash is unique across the store, so a given plaintext identifies
// at most one live grant. Every use checks both IsActive and ExpiresAt.
// A user legitimately holds several active rows at once, one per device.
type RefreshToken struct {
	Record
	UserID    string `db:"user_id"`
	TokenHash string `db:"token_hash"`
	DeviceID  string `db:"device_id"`

	IsActive  bool       `db:"is_active"`
	ExpiresAt time.Time  `db:"expires_at"`
	LastUsed  *time.Time `db:"last_used"`
}

// Expired reports whether the grant is past its expiry at the given time.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// BiometricChallenge is a one-time nonce issued for a (user, device) pair.
// At most one pending challenge exists per pair; issuing a new one
// replaces the old. Verification consumes the row; answering a consumed
// or expired challenge fails.
type BiometricChallenge struct {
	Record
	UserID    string    `db:"user_id"`
	DeviceID  string    `db:"device_id"`
	Challenge string    `db:"challenge"`
	ExpiresAt time.Time `db:"expires_at"`
}
