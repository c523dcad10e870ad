package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/service"
)

// DeviceHandler exposes the device registry. Every route here is behind
// RequireAuth; the device always belongs to the authenticated user.
type DeviceHandler struct {
	devices *service.DeviceService
	logger  *slog.Logger
}

// NewDeviceHandler creates a DeviceHandler.
func NewDeviceHandler(devices *service.DeviceService, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{devices: devices, logger: logger}
}

type registerDeviceRequest struct {
	DeviceID          string `json:"device_id"          validate:"omitempty,max=255"`
	Name              string `json:"name"               validate:"omitempty,max=200"`
	Platform          string `json:"platform"           validate:"required,oneof=android ios web"`
	PlatformVersion   string `json:"platform_version"   validate:"omitempty,max=50"`
	AppVersion        string `json:"app_version"        validate:"omitempty,max=50"`
	FCMToken          string `json:"fcm_token"          validate:"omitempty,max=4096"`
	APNsToken         string `json:"apns_token"         validate:"omitempty,max=4096"`
	SupportsBiometric bool   `json:"supports_biometric"`
	BiometricType     string `json:"biometric_type"     validate:"omitempty,oneof=fingerprint face iris"`
}

// HandleRegister registers or refreshes a device. Clients call it on
// every launch, so it answers 200, not 201.
//
// HTTP: POST /api/v1/devices
func (h *DeviceHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req registerDeviceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	device, err := h.devices.Register(r.Context(), identity.UserID, service.RegisterDeviceParams{
		DeviceID:          req.DeviceID,
		Name:              req.Name,
		Platform:          model.Platform(req.Platform),
		PlatformVersion:   req.PlatformVersion,
		AppVersion:        req.AppVersion,
		FCMToken:          req.FCMToken,
		APNsToken:         req.APNsToken,
		SupportsBiometric: req.SupportsBiometric,
		BiometricType:     req.BiometricType,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// HandleList returns the user's devices, most recently active first.
// ?active=true filters to active devices only.
//
// HTTP: GET /api/v1/devices
func (h *DeviceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	devices, err := h.devices.List(r.Context(), identity.UserID, activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

type updateDeviceRequest struct {
	FCMToken  *string `json:"fcm_token"  validate:"omitempty,max=4096"`
	APNsToken *string `json:"apns_token" validate:"omitempty,max=4096"`
	Name      *string `json:"name"       validate:"omitempty,max=200"`
}

// HandleUpdate refreshes a device's push tokens or label.
//
// HTTP: PATCH /api/v1/devices/{deviceID}
func (h *DeviceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req updateDeviceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	device, err := h.devices.UpdateTokens(r.Context(), identity.UserID, chi.URLParam(r, "deviceID"), service.UpdateTokenParams{
		FCMToken:  req.FCMToken,
		APNsToken: req.APNsToken,
		Name:      req.Name,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// HandleDeactivate removes a device and revokes its refresh tokens.
//
// HTTP: DELETE /api/v1/devices/{deviceID}
func (h *DeviceHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.devices.Deactivate(r.Context(), identity.UserID, chi.URLParam(r, "deviceID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTestNotification sends a test push to one device.
//
// HTTP: POST /api/v1/devices/{deviceID}/test-notification
func (h *DeviceHandler) HandleTestNotification(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	delivered, err := h.devices.SendTestNotification(r.Context(), identity.UserID, chi.URLParam(r, "deviceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"delivered": delivered})
}
