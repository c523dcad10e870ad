// Package repository defines the persistence boundary of the credential
// subsystem.
//
// Store is the one shared mutable resource in the system. Services hold
// a Store and never cache user, device, or token state across requests.
// WithTx hands the callback a Store bound to a single transaction, so a
// multi-entity mutation (say, last-login update plus refresh-token
// insert) commits or rolls back as a unit.
package repository

import (
	"context"
	"time"

	"github.com/sakif/meetsync/internal/model"
)

// Store aggregates the per-entity repositories and the transaction
// boundary.
type Store interface {
	Users() UserRepository
	Devices() DeviceRepository
	Tokens() TokenRepository
	Challenges() ChallengeRepository
	Preferences() PreferencesRepository

	// WithTx runs fn with a Store whose repositories share one
	// transaction. fn returning an error rolls everything back.
	// Nested WithTx is not supported.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// UserRepository persists User records. Lookups that find nothing return
// apperror.ErrNotFound wrapped, so callers can distinguish absence from
// store failure.
type UserRepository interface {
	// Create inserts a new user, filling ID and audit fields. Email,
	// username, and provider-id collisions surface apperror.ErrConflict.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByProviderID finds the user a social identity is linked to.
	GetByProviderID(ctx context.Context, p model.Provider, providerUserID string) (*model.User, error)
	// Update writes every mutable field back. Uniqueness collisions
	// surface apperror.ErrConflict.
	Update(ctx context.Context, user *model.User) error
	// UpdateLastLogin stamps the login time without touching the rest
	// of the row.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// DeviceRepository persists Device records, keyed per user by the
// caller-supplied device identifier.
type DeviceRepository interface {
	// Upsert inserts or, when (user_id, device_id) exists, overwrites
	// the mutable fields and reactivates the row.
	Upsert(ctx context.Context, device *model.Device) error
	Get(ctx context.Context, userID, deviceID string) (*model.Device, error)
	// List returns a user's devices ordered by last_active descending.
	List(ctx context.Context, userID string, activeOnly bool) ([]model.Device, error)
	// Deactivate clears the active flag. Returns false if no matching
	// row exists.
	Deactivate(ctx context.Context, userID, deviceID string) (bool, error)
	TouchLastActive(ctx context.Context, userID, deviceID string, at time.Time) error
	// ClearBiometric strips biometric capability from every device the
	// user owns.
	ClearBiometric(ctx context.Context, userID string) error
}

// TokenRepository persists refresh-token grants.
type TokenRepository interface {
	// Create inserts a grant. A duplicate token hash surfaces
	// apperror.ErrConflict; the hash is unique across the store.
	Create(ctx context.Context, token *model.RefreshToken) error
	// GetActive returns the grant matching hash and device that is
	// active and unexpired at `now`, or ErrNotFound.
	GetActive(ctx context.Context, tokenHash, deviceID string, now time.Time) (*model.RefreshToken, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	// Deactivate revokes by hash. Returns false when no active row
	// matched (already revoked or never existed).
	Deactivate(ctx context.Context, tokenHash string) (bool, error)
	// DeactivateAllForUser bulk-revokes a user's grants, optionally
	// sparing one device. Returns the number revoked.
	DeactivateAllForUser(ctx context.Context, userID, excludeDeviceID string) (int64, error)
	// DeactivateAllForDevice revokes the grants bound to one device.
	DeactivateAllForDevice(ctx context.Context, userID, deviceID string) (int64, error)
	// EnforceLimit deactivates the oldest active grants beyond max for
	// the user. Returns the number deactivated.
	EnforceLimit(ctx context.Context, userID string, max int) (int64, error)
	// DeleteExpired physically removes rows past expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ChallengeRepository persists pending biometric challenges, at most one
// per (user, device) pair.
type ChallengeRepository interface {
	// Put stores a challenge, replacing any pending one for the pair.
	Put(ctx context.Context, c *model.BiometricChallenge) error
	// Consume atomically removes the matching unexpired challenge and
	// reports whether one was there. A second Consume of the same value
	// returns false. This is what makes challenges single-use.
	Consume(ctx context.Context, userID, deviceID, challenge string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PreferencesRepository persists per-user preference state.
type PreferencesRepository interface {
	// Create inserts preference state; one row per user.
	Create(ctx context.Context, p *model.Preferences) error
	GetByUser(ctx context.Context, userID string) (*model.Preferences, error)
	Update(ctx context.Context, p *model.Preferences) error
}
