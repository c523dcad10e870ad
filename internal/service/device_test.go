package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/push"
	"github.com/sakif/meetsync/internal/repository/sqlite"
)

// recordingSender captures the last push and returns a configured result.
type recordingSender struct {
	accepted  bool
	err       error
	lastToken string
	lastTitle string
}

func (r *recordingSender) Send(_ context.Context, token, title, _ string, _ map[string]string) (bool, error) {
	r.lastToken = token
	r.lastTitle = title
	return r.accepted, r.err
}

func newDeviceFixture(t *testing.T, sender push.Sender) (*DeviceService, *model.User, *sqlite.DB) {
	t.Helper()
	_, userSvc, db := newTestServices(t)
	if sender == nil {
		sender = push.Noop{}
	}
	deviceSvc := NewDeviceService(db, sender, testLogger())
	user := registerTestUser(t, userSvc, "dev@example.com")
	return deviceSvc, user, db
}

func TestDeviceService_RegisterIsRepeatable(t *testing.T) {
	deviceSvc, user, _ := newDeviceFixture(t, nil)
	ctx := context.Background()

	first, err := deviceSvc.Register(ctx, user.ID, RegisterDeviceParams{
		DeviceID: "phone-1",
		Platform: model.PlatformAndroid,
		FCMToken: "fcm-old",
	})
	require.NoError(t, err)

	second, err := deviceSvc.Register(ctx, user.ID, RegisterDeviceParams{
		DeviceID: "phone-1",
		Platform: model.PlatformAndroid,
		FCMToken: "fcm-new",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "fcm-new", second.FCMToken)

	devices, err := deviceSvc.List(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestDeviceService_RegisterMintsWebDeviceID(t *testing.T) {
	deviceSvc, user, _ := newDeviceFixture(t, nil)

	device, err := deviceSvc.Register(context.Background(), user.ID, RegisterDeviceParams{
		Platform: model.PlatformWeb,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(device.DeviceID, "web_"))
}

func TestDeviceService_RegisterRejectsBadPlatform(t *testing.T) {
	deviceSvc, user, _ := newDeviceFixture(t, nil)

	_, err := deviceSvc.Register(context.Background(), user.ID, RegisterDeviceParams{
		DeviceID: "x",
		Platform: "blackberry",
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestDeviceService_DeactivateRevokesDeviceTokens(t *testing.T) {
	authSvc, userSvc, db := newTestServices(t)
	deviceSvc := NewDeviceService(db, push.Noop{}, testLogger())
	ctx := context.Background()

	registerTestUser(t, userSvc, "d@example.com")
	session, err := authSvc.Login(ctx, "d@example.com", "hunter2hunter2", "phone-1", false)
	require.NoError(t, err)

	_, err = deviceSvc.Register(ctx, session.User.ID, RegisterDeviceParams{
		DeviceID: "phone-1",
		Platform: model.PlatformIOS,
	})
	require.NoError(t, err)

	require.NoError(t, deviceSvc.Deactivate(ctx, session.User.ID, "phone-1"))

	_, err = authSvc.Refresh(ctx, session.Tokens.RefreshToken, "phone-1")
	assert.ErrorIs(t, err, apperror.ErrAuthentication)
}

func TestDeviceService_DeactivateMissing(t *testing.T) {
	deviceSvc, user, _ := newDeviceFixture(t, nil)

	err := deviceSvc.Deactivate(context.Background(), user.ID, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeviceService_SendTestNotification(t *testing.T) {
	sender := &recordingSender{accepted: true}
	deviceSvc, user, _ := newDeviceFixture(t, sender)
	ctx := context.Background()

	_, err := deviceSvc.Register(ctx, user.ID, RegisterDeviceParams{
		DeviceID: "phone-1",
		Platform: model.PlatformAndroid,
		FCMToken: "fcm-token-1",
	})
	require.NoError(t, err)

	delivered, err := deviceSvc.SendTestNotification(ctx, user.ID, "phone-1")
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, "fcm-token-1", sender.lastToken)
	assert.NotEmpty(t, sender.lastTitle)
}

func TestDeviceService_SendTestNotification_StaleTokenCleared(t *testing.T) {
	sender := &recordingSender{accepted: false}
	deviceSvc, user, _ := newDeviceFixture(t, sender)
	ctx := context.Background()

	_, err := deviceSvc.Register(ctx, user.ID, RegisterDeviceParams{
		DeviceID: "phone-1",
		Platform: model.PlatformAndroid,
		FCMToken: "stale-token",
	})
	require.NoError(t, err)

	delivered, err := deviceSvc.SendTestNotification(ctx, user.ID, "phone-1")
	require.NoError(t, err)
	assert.False(t, delivered)

	// The rejected token was dropped from the registry.
	device, err := deviceSvc.Get(ctx, user.ID, "phone-1")
	require.NoError(t, err)
	assert.Empty(t, device.FCMToken)
}

func TestDeviceService_SendTestNotification_NoToken(t *testing.T) {
	deviceSvc, user, _ := newDeviceFixture(t, nil)
	ctx := context.Background()

	_, err := deviceSvc.Register(ctx, user.ID, RegisterDeviceParams{
		DeviceID: "phone-1",
		Platform: model.PlatformWeb,
	})
	require.NoError(t, err)

	_, err = deviceSvc.SendTestNotification(ctx, user.ID, "phone-1")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
