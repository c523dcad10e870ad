package model

// Preferences is the per-user application preference state, created with
// defaults on registration and on first social login.
type Preferences struct {
	Record
	UserID string `json:"userId" db:"user_id"`

	ThemeMode string `json:"themeMode" db:"theme_mode"` // light, dark, system
	Language  string `json:"language"  db:"language"`
	Timezone  string `json:"timezone"  db:"timezone"`

	PushNotifications  bool `json:"pushNotifications"  db:"push_notifications"`
	EmailNotifications bool `json:"emailNotifications" db:"email_notifications"`
}

// ValidThemeMode reports whether mode is a recognized theme setting.
func ValidThemeMode(mode string) bool {
	switch mode {
	case "system", "light", "dark":
		return true
	}
	return false
}

// DefaultPreferences returns the preference state a new user starts with.
func DefaultPreferences(userID string) *Preferences {
	return &Preferences{
		UserID:             userID,
		ThemeMode:          "system",
		Language:           "en",
		Timezone:           "UTC",
		PushNotifications:  true,
		EmailNotifications: true,
	}
}
