package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/service"
)

// AuthHandler exposes registration, the three login flows' shared token
// endpoints, and logout.
type AuthHandler struct {
	users  *service.UserService
	auth   *service.AuthService
	social *service.SocialService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users *service.UserService, auth *service.AuthService, social *service.SocialService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, auth: auth, social: social, logger: logger}
}

// tokenResponse is the credential payload returned by every login and
// refresh endpoint. Field names follow the OAuth2 token response
// convention, which the mobile clients' auth libraries expect.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	DeviceID     string      `json:"device_id"`
	User         *model.User `json:"user,omitempty"`
}

func newTokenResponse(pair *service.TokenPair, user *model.User) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		DeviceID:     pair.DeviceID,
		User:         user,
	}
}

type registerRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Password    string `json:"password"     validate:"required,min=8,max=72"`
	FullName    string `json:"full_name"    validate:"required,max=200"`
	Username    string `json:"username"     validate:"omitempty,min=3,max=50"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=30"`
}

// HandleRegister creates a password account.
//
// HTTP: POST /api/v1/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		Username:    req.Username,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email      string `json:"email"       validate:"required,email"`
	Password   string `json:"password"    validate:"required"`
	DeviceID   string `json:"device_id"   validate:"omitempty,max=255"`
	RememberMe bool   `json:"remember_me"`
}

// HandleLogin authenticates an email/password pair. A request without a
// device_id gets a server-generated one, echoed in the response.
//
// HTTP: POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password, req.DeviceID, req.RememberMe)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(result.Tokens, result.User))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	DeviceID     string `json:"device_id"     validate:"required,max=255"`
}

// HandleRefresh exchanges a refresh token for a new access token.
//
// HTTP: POST /api/v1/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken, req.DeviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(pair, nil))
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// HandleLogout revokes one refresh token. Returns 200 even when the token
// was already revoked, so repeated logouts are harmless.
//
// HTTP: POST /api/v1/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	revoked, err := h.auth.Revoke(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": revoked})
}

type logoutAllRequest struct {
	KeepDeviceID string `json:"keep_device_id" validate:"omitempty,max=255"`
}

// HandleLogoutAll revokes every refresh token the user holds, optionally
// sparing the current device. Requires a valid access token.
//
// HTTP: POST /api/v1/auth/logout-all
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req logoutAllRequest
	if r.ContentLength > 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	n, err := h.auth.RevokeAllForUser(r.Context(), identity.UserID, req.KeepDeviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandlePasswordResetRequest accepts a reset request. The response is the
// same whether or not the email is registered.
//
// HTTP: POST /api/v1/auth/password-reset/request
func (h *AuthHandler) HandlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the email is registered, a reset link has been sent.",
	})
}

type socialLoginRequest struct {
	Token      string `json:"token"     validate:"required"`
	DeviceID   string `json:"device_id" validate:"omitempty,max=255"`
	RememberMe bool   `json:"remember_me"`
}

// HandleSocialLogin signs in with an external identity provider token.
// The provider comes from the URL so each provider can be enabled or
// disabled independently in the router.
//
// HTTP: POST /api/v1/auth/social/{provider}
func (h *AuthHandler) HandleSocialLogin(w http.ResponseWriter, r *http.Request) {
	p := model.Provider(chi.URLParam(r, "provider"))
	if !p.Valid() {
		writeError(w, apperror.ValidationFailed("provider", "must be one of google, apple"))
		return
	}

	var req socialLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.social.Login(r.Context(), p, req.Token, req.DeviceID, req.RememberMe)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(result.Tokens, result.User))
}
