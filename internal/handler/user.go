package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/meetsync/internal/service"
)

// UserHandler exposes the authenticated user's own account: profile,
// password, preferences, and deactivation. There is no cross-user access
// here; the user ID always comes from the token.
type UserHandler struct {
	users       *service.UserService
	preferences *service.PreferencesService
	logger      *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, preferences *service.PreferencesService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, preferences: preferences, logger: logger}
}

// HandleMe returns the authenticated user's record.
//
// HTTP: GET /api/v1/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	FullName    *string `json:"full_name"    validate:"omitempty,max=200"`
	Username    *string `json:"username"     validate:"omitempty,max=50"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=30"`
	AvatarURL   *string `json:"avatar_url"   validate:"omitempty,url,max=2048"`
}

// HandleUpdateProfile applies partial profile changes.
//
// HTTP: PATCH /api/v1/users/me
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), identity.UserID, service.UpdateProfileParams{
		FullName:    req.FullName,
		Username:    req.Username,
		PhoneNumber: req.PhoneNumber,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72"`
	DeviceID        string `json:"device_id"        validate:"omitempty,max=255"`
}

// HandleChangePassword rotates the password. Sessions on every other
// device are revoked; the device named in the request keeps its tokens.
//
// HTTP: POST /api/v1/users/me/password
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.users.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword, req.DeviceID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// HandleDeactivate disables the account and revokes all credentials.
//
// HTTP: DELETE /api/v1/users/me
func (h *UserHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.users.Deactivate(r.Context(), identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetPreferences returns the user's preferences, creating defaults
// on first access.
//
// HTTP: GET /api/v1/users/me/preferences
func (h *UserHandler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	prefs, err := h.preferences.Get(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

type updatePreferencesRequest struct {
	ThemeMode          *string `json:"theme_mode" validate:"omitempty,oneof=system light dark"`
	Language           *string `json:"language"   validate:"omitempty,max=10"`
	Timezone           *string `json:"timezone"   validate:"omitempty,max=64"`
	PushNotifications  *bool   `json:"push_notifications"`
	EmailNotifications *bool   `json:"email_notifications"`
}

// HandleUpdatePreferences applies partial preference changes.
//
// HTTP: PATCH /api/v1/users/me/preferences
func (h *UserHandler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req updatePreferencesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	prefs, err := h.preferences.Update(r.Context(), identity.UserID, service.UpdatePreferencesParams{
		ThemeMode:          req.ThemeMode,
		Language:           req.Language,
		Timezone:           req.Timezone,
		PushNotifications:  req.PushNotifications,
		EmailNotifications: req.EmailNotifications,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
