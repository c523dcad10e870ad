package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/push"
	"github.com/sakif/meetsync/internal/repository"
)

// DeviceService manages the per-user device registry and push delivery.
type DeviceService struct {
	store  repository.Store
	sender push.Sender
	logger *slog.Logger
}

// NewDeviceService creates a DeviceService with all required dependencies.
func NewDeviceService(store repository.Store, sender push.Sender, logger *slog.Logger) *DeviceService {
	return &DeviceService{store: store, sender: sender, logger: logger}
}

// RegisterDeviceParams carries a device registration. DeviceID is the
// client-generated stable identifier; re-registering the same one updates
// the existing row instead of creating a duplicate.
type RegisterDeviceParams struct {
	DeviceID          string
	Name              string
	Platform          model.Platform
	PlatformVersion   string
	AppVersion        string
	FCMToken          string
	APNsToken         string
	SupportsBiometric bool
	BiometricType     string
}

// Register upserts a device for the user. Registration is idempotent:
// clients call it on every app launch to keep push tokens and version
// info current.
func (s *DeviceService) Register(ctx context.Context, userID string, p RegisterDeviceParams) (*model.Device, error) {
	if !p.Platform.Valid() {
		return nil, apperror.ValidationFailed("platform", "must be one of android, ios, web")
	}
	if p.DeviceID == "" {
		// Web clients have no stable hardware identifier; mint one and
		// return it so the client can persist it locally.
		p.DeviceID = "web_" + uuid.NewString()
	}

	now := time.Now().UTC()
	device := &model.Device{
		UserID:            userID,
		DeviceID:          p.DeviceID,
		Name:              p.Name,
		Platform:          p.Platform,
		PlatformVersion:   p.PlatformVersion,
		AppVersion:        p.AppVersion,
		FCMToken:          p.FCMToken,
		APNsToken:         p.APNsToken,
		SupportsBiometric: p.SupportsBiometric,
		BiometricType:     p.BiometricType,
		IsActive:          true,
		LastActive:        &now,
	}
	if err := s.store.Devices().Upsert(ctx, device); err != nil {
		return nil, fmt.Errorf("service/device: registering device %s: %w", p.DeviceID, err)
	}

	s.logger.Info("device registered",
		slog.String("userID", userID),
		slog.String("deviceID", device.DeviceID),
		slog.String("platform", string(device.Platform)),
	)
	return device, nil
}

// List returns the user's devices, most recently active first.
func (s *DeviceService) List(ctx context.Context, userID string, activeOnly bool) ([]model.Device, error) {
	return s.store.Devices().List(ctx, userID, activeOnly)
}

// Get returns one device owned by the user.
func (s *DeviceService) Get(ctx context.Context, userID, deviceID string) (*model.Device, error) {
	return s.store.Devices().Get(ctx, userID, deviceID)
}

// UpdateTokenParams carries a push-token refresh from the client.
type UpdateTokenParams struct {
	FCMToken  *string
	APNsToken *string
	Name      *string
}

// UpdateTokens applies refreshed push tokens or a renamed device label.
func (s *DeviceService) UpdateTokens(ctx context.Context, userID, deviceID string, p UpdateTokenParams) (*model.Device, error) {
	device, err := s.store.Devices().Get(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	if p.FCMToken != nil {
		device.FCMToken = *p.FCMToken
	}
	if p.APNsToken != nil {
		device.APNsToken = *p.APNsToken
	}
	if p.Name != nil {
		device.Name = *p.Name
	}
	if err := s.store.Devices().Upsert(ctx, device); err != nil {
		return nil, fmt.Errorf("service/device: updating device %s: %w", deviceID, err)
	}
	return device, nil
}

// Deactivate removes a device from the active registry and revokes the
// refresh tokens bound to it, so a lost phone can be cut off in one call.
func (s *DeviceService) Deactivate(ctx context.Context, userID, deviceID string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		ok, err := tx.Devices().Deactivate(ctx, userID, deviceID)
		if err != nil {
			return fmt.Errorf("service/device: deactivating device %s: %w", deviceID, err)
		}
		if !ok {
			return apperror.NotFound("device", deviceID)
		}
		revoked, err := tx.Tokens().DeactivateAllForDevice(ctx, userID, deviceID)
		if err != nil {
			return fmt.Errorf("service/device: revoking tokens for device %s: %w", deviceID, err)
		}
		s.logger.Info("device deactivated",
			slog.String("userID", userID),
			slog.String("deviceID", deviceID),
			slog.Int64("revokedTokens", revoked),
		)
		return nil
	})
}

// TouchLastActive stamps the device's activity time. Best-effort; callers
// on the hot path ignore the error.
func (s *DeviceService) TouchLastActive(ctx context.Context, userID, deviceID string) error {
	return s.store.Devices().TouchLastActive(ctx, userID, deviceID, time.Now().UTC())
}

// SendTestNotification pushes a test message to one device so users can
// verify their notification setup. Returns whether delivery was accepted
// by the push gateway.
func (s *DeviceService) SendTestNotification(ctx context.Context, userID, deviceID string) (bool, error) {
	device, err := s.store.Devices().Get(ctx, userID, deviceID)
	if err != nil {
		return false, err
	}
	if device.FCMToken == "" {
		return false, apperror.ValidationFailed("device_id", "device has no push token registered")
	}

	ok, err := s.sender.Send(ctx, device.FCMToken,
		"Test notification",
		"Push notifications are working on this device.",
		map[string]string{"type": "test"},
	)
	if err != nil {
		return false, fmt.Errorf("service/device: sending test notification: %w", err)
	}
	if !ok {
		// The gateway rejected the token; it is stale. Drop it so the
		// next registration supplies a fresh one.
		device.FCMToken = ""
		if uerr := s.store.Devices().Upsert(ctx, device); uerr != nil {
			s.logger.Warn("clearing stale push token failed",
				slog.String("deviceID", deviceID),
				slog.String("error", uerr.Error()),
			)
		}
	}
	return ok, nil
}
