package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/repository"
)

type deviceStore struct {
	q querier
}

var _ repository.DeviceRepository = (*deviceStore)(nil)

const deviceColumns = `id, user_id, device_id, device_name, device_type,
	platform_version, app_version, fcm_token, apns_token,
	supports_biometric, biometric_type, is_active, last_active,
	created_at, updated_at`

// Upsert keys on (user_id, device_id). Registration of a known device
// overwrites its mutable fields and reactivates it; the row's internal
// id and created_at stay put.
func (s *deviceStore) Upsert(ctx context.Context, device *model.Device) error {
	existing, err := s.Get(ctx, device.UserID, device.DeviceID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	now := time.Now().UTC()
	device.IsActive = true
	if device.LastActive == nil {
		device.LastActive = &now
	}

	if existing != nil {
		device.ID = existing.ID
		device.CreatedAt = existing.CreatedAt
		device.UpdatedAt = now
		_, err = s.q.ExecContext(ctx,
			`UPDATE devices SET
				device_name = ?, device_type = ?, platform_version = ?,
				app_version = ?, fcm_token = ?, apns_token = ?,
				supports_biometric = ?, biometric_type = ?,
				is_active = 1, last_active = ?, updated_at = ?
			 WHERE id = ?`,
			device.Name,
			string(device.Platform),
			device.PlatformVersion,
			device.AppVersion,
			device.FCMToken,
			device.APNsToken,
			device.SupportsBiometric,
			device.BiometricType,
			nullTime(device.LastActive),
			device.UpdatedAt,
			device.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating device %s: %w", device.ID, err)
		}
		return nil
	}

	device.ID = newID()
	device.CreatedAt = now
	device.UpdatedAt = now

	_, err = s.q.ExecContext(ctx,
		`INSERT INTO devices (`+deviceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID,
		device.UserID,
		device.DeviceID,
		device.Name,
		string(device.Platform),
		device.PlatformVersion,
		device.AppVersion,
		device.FCMToken,
		device.APNsToken,
		device.SupportsBiometric,
		device.BiometricType,
		device.IsActive,
		nullTime(device.LastActive),
		device.CreatedAt,
		device.UpdatedAt,
	)
	if err != nil {
		return conflictOr(err, "device", device.DeviceID, "inserting device")
	}
	return nil
}

func (s *deviceStore) Get(ctx context.Context, userID, deviceID string) (*model.Device, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices
		 WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlite: %w", apperror.NotFound("device", deviceID))
		}
		return nil, fmt.Errorf("sqlite: getting device %s: %w", deviceID, err)
	}
	return device, nil
}

func (s *deviceStore) List(ctx context.Context, userID string, activeOnly bool) ([]model.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY last_active DESC`

	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing devices for user %s: %w", userID, err)
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning device row: %w", err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating device rows: %w", err)
	}
	return devices, nil
}

func (s *deviceStore) Deactivate(ctx context.Context, userID, deviceID string) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE devices SET is_active = 0, updated_at = ?
		 WHERE user_id = ? AND device_id = ?`,
		time.Now().UTC(), userID, deviceID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deactivating device %s: %w", deviceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: deactivating device %s: %w", deviceID, err)
	}
	return n > 0, nil
}

func (s *deviceStore) TouchLastActive(ctx context.Context, userID, deviceID string, at time.Time) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE devices SET last_active = ?, updated_at = ?
		 WHERE user_id = ? AND device_id = ?`,
		at.UTC(), time.Now().UTC(), userID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching device %s: %w", deviceID, err)
	}
	return nil
}

func (s *deviceStore) ClearBiometric(ctx context.Context, userID string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE devices SET supports_biometric = 0, biometric_type = '', updated_at = ?
		 WHERE user_id = ?`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing biometric devices for user %s: %w", userID, err)
	}
	return nil
}

func scanDevice(row scanner) (*model.Device, error) {
	var (
		d          model.Device
		platform   string
		lastActive sql.NullTime
	)

	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.DeviceID,
		&d.Name,
		&platform,
		&d.PlatformVersion,
		&d.AppVersion,
		&d.FCMToken,
		&d.APNsToken,
		&d.SupportsBiometric,
		&d.BiometricType,
		&d.IsActive,
		&lastActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Platform = model.Platform(platform)
	d.LastActive = timePtr(lastActive)
	return &d, nil
}
