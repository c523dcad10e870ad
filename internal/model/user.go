// Package model defines the data structures used throughout the application.
package model

import "time"

// Record carries the identity and audit fields shared by every persisted
// entity. Entities embed it; the store layer fills ID, CreatedAt and
// UpdatedAt on insert and bumps UpdatedAt on update. No behavior hangs
// off it; it is just data.
type Record struct {
	ID        string    `json:"id"        db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Role is a user's authorization level.
type Role string

const (
	RoleAttendee Role = "attendee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAttendee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Provider identifies a supported social identity provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderApple
}

// User is an identity record. A user may hold a password, one or more
// linked social identities, and a biometric public key. Any combination
// is a valid login configuration, so PasswordHash is nullable. Users are
// never hard-deleted; deactivation clears IsActive instead.
//
// Username, GoogleID and AppleID are pointers because they are optional
// AND unique: NULL rows never collide on a UNIQUE index, empty strings
// would.
type User struct {
	Record
	Email    string  `json:"email"              db:"email"`
	Username *string `json:"username,omitempty" db:"username"`
	FullName string  `json:"fullName"           db:"full_name"`

	PasswordHash *string `json:"-" db:"password_hash"`

	IsActive   bool `json:"isActive"   db:"is_active"`
	IsVerified bool `json:"isVerified" db:"is_verified"`
	Role       Role `json:"role"       db:"role"`

	GoogleID *string `json:"-" db:"google_id"`
	AppleID  *string `json:"-" db:"apple_id"`

	BiometricEnabled   bool    `json:"biometricEnabled" db:"biometric_enabled"`
	BiometricPublicKey *string `json:"-"                db:"biometric_public_key"`

	AvatarURL   string `json:"avatarUrl"   db:"avatar_url"`
	PhoneNumber string `json:"phoneNumber" db:"phone_number"`

	LastLogin *time.Time `json:"lastLogin,omitempty" db:"last_login"`
}

// ProviderID returns the linked identity for the given provider, or nil.
func (u *User) ProviderID(p Provider) *string {
	switch p {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderApple:
		return u.AppleID
	}
	return nil
}

// SetProviderID links a provider identity onto the user in memory. The
// caller persists the change.
func (u *User) SetProviderID(p Provider, id string) {
	switch p {
	case ProviderGoogle:
		u.GoogleID = &id
	case ProviderApple:
		u.AppleID = &id
	}
}
