package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/meetsync/internal/apperror"
)

func TestDeviceStore_UpsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "dev@example.com")
	first := createTestDevice(t, db, user.ID, "phone-1")

	// Same (user, device) pair again: row is updated, not duplicated.
	again := createTestDevice(t, db, user.ID, "phone-1")
	assert.Equal(t, first.ID, again.ID)

	devices, err := db.Devices().List(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestDeviceStore_UpsertReactivates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "dev@example.com")
	createTestDevice(t, db, user.ID, "phone-1")

	ok, err := db.Devices().Deactivate(ctx, user.ID, "phone-1")
	require.NoError(t, err)
	require.True(t, ok)

	createTestDevice(t, db, user.ID, "phone-1")
	got, err := db.Devices().Get(ctx, user.ID, "phone-1")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestDeviceStore_SameDeviceIDAcrossUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	// device_id is only unique per user.
	createTestDevice(t, db, alice.ID, "shared-id")
	createTestDevice(t, db, bob.ID, "shared-id")

	got, err := db.Devices().Get(ctx, alice.ID, "shared-id")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.UserID)
}

func TestDeviceStore_ListOrdersAndFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "dev@example.com")
	createTestDevice(t, db, user.ID, "old")
	createTestDevice(t, db, user.ID, "new")

	require.NoError(t, db.Devices().TouchLastActive(ctx, user.ID, "old", time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, db.Devices().TouchLastActive(ctx, user.ID, "new", time.Now().UTC()))

	devices, err := db.Devices().List(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "new", devices[0].DeviceID)

	ok, err := db.Devices().Deactivate(ctx, user.ID, "old")
	require.NoError(t, err)
	require.True(t, ok)

	active, err := db.Devices().List(ctx, user.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "new", active[0].DeviceID)
}

func TestDeviceStore_DeactivateMissing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "dev@example.com")
	ok, err := db.Devices().Deactivate(ctx, user.ID, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeviceStore_GetMissing(t *testing.T) {
	db := newTestDB(t)

	user := createTestUser(t, db, "dev@example.com")
	_, err := db.Devices().Get(context.Background(), user.ID, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeviceStore_ClearBiometric(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "dev@example.com")
	device := createTestDevice(t, db, user.ID, "phone-1")
	device.SupportsBiometric = true
	device.BiometricType = "face"
	require.NoError(t, db.Devices().Upsert(ctx, device))

	require.NoError(t, db.Devices().ClearBiometric(ctx, user.ID))

	got, err := db.Devices().Get(ctx, user.ID, "phone-1")
	require.NoError(t, err)
	assert.False(t, got.SupportsBiometric)
	assert.Empty(t, got.BiometricType)
}
