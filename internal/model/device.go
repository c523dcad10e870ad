package model

import "time"

// Platform is the client platform a device runs on.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return true
	}
	return false
}

// Device is one registered client installation belonging to a user.
//
// DeviceID is supplied by the caller and is unique per user, NOT
// globally: two users may register the same identifier string. The store
// enforces UNIQUE(user_id, device_id), and registration is an upsert on
// that pair. Devices are deactivated, never deleted.
type Device struct {
	Record
	UserID   string   `json:"userId"   db:"user_id"`
	DeviceID string   `json:"deviceId" db:"device_id"`
	Name     string   `json:"name"     db:"device_name"`
	Platform Platform `json:"platform" db:"device_type"`

	PlatformVersion string `json:"platformVersion" db:"platform_version"`
	AppVersion      string `json:"appVersion"      db:"app_version"`

	// Push delivery tokens. Either may be empty; FCM covers Android and
	// web, APNs covers iOS.
	FCMToken  string `json:"-" db:"fcm_token"`
	APNsToken string `json:"-" db:"apns_token"`

	SupportsBiometric bool   `json:"supportsBiometric" db:"supports_biometric"`
	BiometricType     string `json:"biometricType"     db:"biometric_type"` // fingerprint, face_id, ...

	IsActive   bool       `json:"isActive"             db:"is_active"`
	LastActive *time.Time `json:"lastActive,omitempty" db:"last_active"`
}
