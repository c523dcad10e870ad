package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/meetsync/internal/service"
)

// BiometricHandler exposes biometric enrollment and login. Setup and
// disable require a valid access token; challenge and login do not, since
// the whole point of biometric login is that the user holds no token yet.
type BiometricHandler struct {
	biometric *service.BiometricService
	logger    *slog.Logger
}

// NewBiometricHandler creates a BiometricHandler.
func NewBiometricHandler(biometric *service.BiometricService, logger *slog.Logger) *BiometricHandler {
	return &BiometricHandler{biometric: biometric, logger: logger}
}

type biometricSetupRequest struct {
	DeviceID      string `json:"device_id"      validate:"required,max=255"`
	PublicKey     string `json:"public_key"     validate:"required"`
	BiometricType string `json:"biometric_type" validate:"omitempty,oneof=fingerprint face iris"`
}

// HandleSetup enrolls a public key for the authenticated user.
//
// HTTP: POST /api/v1/auth/biometric/setup
func (h *BiometricHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req biometricSetupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.biometric.Setup(r.Context(), identity.UserID, req.DeviceID, req.PublicKey, req.BiometricType); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"biometric_enabled": true})
}

type biometricChallengeRequest struct {
	UserID   string `json:"user_id"   validate:"required"`
	DeviceID string `json:"device_id" validate:"required,max=255"`
}

type biometricChallengeResponse struct {
	Challenge string    `json:"challenge"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleChallenge issues a login challenge for an enrolled (user, device)
// pair. Unauthenticated: the caller proves identity by signing the
// challenge, not by presenting a token.
//
// HTTP: POST /api/v1/auth/biometric/challenge
func (h *BiometricHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	var req biometricChallengeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	challenge, expiresAt, err := h.biometric.Challenge(r.Context(), req.UserID, req.DeviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, biometricChallengeResponse{
		Challenge: challenge,
		ExpiresAt: expiresAt,
	})
}

type biometricLoginRequest struct {
	UserID    string `json:"user_id"   validate:"required"`
	DeviceID  string `json:"device_id" validate:"required,max=255"`
	Challenge string `json:"challenge" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// HandleLogin completes biometric login with a signed challenge.
//
// HTTP: POST /api/v1/auth/biometric/login
func (h *BiometricHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req biometricLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.biometric.Authenticate(r.Context(), req.UserID, req.DeviceID, req.Challenge, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(result.Tokens, result.User))
}

// HandleDisable turns biometric login off for the authenticated user.
//
// HTTP: DELETE /api/v1/auth/biometric
func (h *BiometricHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.biometric.Disable(r.Context(), identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"biometric_enabled": false})
}
