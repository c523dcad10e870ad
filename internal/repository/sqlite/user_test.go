package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/model"
)

func TestUserStore_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "alice@example.com")
	require.NotEmpty(t, user.ID)
	require.False(t, user.CreatedAt.IsZero())

	got, err := db.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, model.RoleAttendee, got.Role)
	assert.True(t, got.IsActive)

	got, err = db.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestUserStore_GetMissing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Users().GetByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = db.Users().GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestUser(t, db, "dup@example.com")

	hash := "hash"
	err := db.Users().Create(ctx, &model.User{
		Email:        "dup@example.com",
		PasswordHash: &hash,
		IsActive:     true,
		Role:         model.RoleAttendee,
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestUserStore_ProviderID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "social@example.com")
	user.SetProviderID(model.ProviderGoogle, "google-sub-123")
	require.NoError(t, db.Users().Update(ctx, user))

	got, err := db.Users().GetByProviderID(ctx, model.ProviderGoogle, "google-sub-123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = db.Users().GetByProviderID(ctx, model.ProviderApple, "google-sub-123")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserStore_DuplicateProviderID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := createTestUser(t, db, "a@example.com")
	a.SetProviderID(model.ProviderGoogle, "sub-1")
	require.NoError(t, db.Users().Update(ctx, a))

	b := createTestUser(t, db, "b@example.com")
	b.SetProviderID(model.ProviderGoogle, "sub-1")
	assert.ErrorIs(t, db.Users().Update(ctx, b), apperror.ErrConflict)
}

func TestUserStore_NullableUsername(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Two users without usernames must not collide on the unique index.
	createTestUser(t, db, "u1@example.com")
	createTestUser(t, db, "u2@example.com")

	name := "taken"
	u3 := createTestUser(t, db, "u3@example.com")
	u3.Username = &name
	require.NoError(t, db.Users().Update(ctx, u3))

	got, err := db.Users().GetByUsername(ctx, "taken")
	require.NoError(t, err)
	assert.Equal(t, u3.ID, got.ID)
}

func TestUserStore_UpdateLastLogin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "login@example.com")
	require.Nil(t, user.LastLogin)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, db.Users().UpdateLastLogin(ctx, user.ID, at))

	got, err := db.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.WithinDuration(t, at, *got.LastLogin, time.Second)
}

func TestPreferencesStore_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "prefs@example.com")

	prefs := model.DefaultPreferences(user.ID)
	require.NoError(t, db.Preferences().Create(ctx, prefs))

	got, err := db.Preferences().GetByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "system", got.ThemeMode)
	assert.True(t, got.PushNotifications)

	got.ThemeMode = "dark"
	got.PushNotifications = false
	require.NoError(t, db.Preferences().Update(ctx, got))

	got, err = db.Preferences().GetByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "dark", got.ThemeMode)
	assert.False(t, got.PushNotifications)

	// One row per user.
	assert.ErrorIs(t, db.Preferences().Create(ctx, model.DefaultPreferences(user.ID)), apperror.ErrConflict)
}
