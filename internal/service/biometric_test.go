package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/push"
)

type biometricFixture struct {
	auth      *AuthService
	users     *UserService
	devices   *DeviceService
	biometric *BiometricService

	user      *model.User
	publicKey string
	sign      func(challenge string) string
}

func newBiometricFixture(t *testing.T) *biometricFixture {
	t.Helper()
	authSvc, userSvc, db := newTestServices(t)
	deviceSvc := NewDeviceService(db, push.Noop{}, testLogger())
	biometricSvc := NewBiometricService(db, authSvc, 5*time.Minute, testLogger())

	user := registerTestUser(t, userSvc, "bio@example.com")

	_, err := deviceSvc.Register(context.Background(), user.ID, RegisterDeviceParams{
		DeviceID:          "phone-1",
		Platform:          model.PlatformAndroid,
		SupportsBiometric: true,
		BiometricType:     "fingerprint",
	})
	require.NoError(t, err)

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	return &biometricFixture{
		auth:      authSvc,
		users:     userSvc,
		devices:   deviceSvc,
		biometric: biometricSvc,
		user:      user,
		publicKey: base64.StdEncoding.EncodeToString(der),
		sign: func(challenge string) string {
			digest := sha256.Sum256([]byte(challenge))
			sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
			require.NoError(t, err)
			return base64.StdEncoding.EncodeToString(sig)
		},
	}
}

func TestBiometricService_FullLoginFlow(t *testing.T) {
	f := newBiometricFixture(t)
	ctx := context.Background()

	require.NoError(t, f.biometric.Setup(ctx, f.user.ID, "phone-1", f.publicKey, "fingerprint"))

	challenge, expiresAt, err := f.biometric.Challenge(ctx, f.user.ID, "phone-1")
	require.NoError(t, err)
	require.NotEmpty(t, challenge)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, time.Minute)

	result, err := f.biometric.Authenticate(ctx, f.user.ID, "phone-1", challenge, f.sign(challenge))
	require.NoError(t, err)
	require.NotEmpty(t, result.Tokens.AccessToken)
	require.NotEmpty(t, result.Tokens.RefreshToken)

	// Biometric login issues working refresh tokens like any other flow.
	_, err = f.auth.Refresh(ctx, result.Tokens.RefreshToken, "phone-1")
	assert.NoError(t, err)
}

func TestBiometricService_ChallengeIsSingleUse(t *testing.T) {
	f := newBiometricFixture(t)
	ctx := context.Background()

	require.NoError(t, f.biometric.Setup(ctx, f.user.ID, "phone-1", f.publicKey, ""))

	challenge, _, err := f.biometric.Challenge(ctx, f.user.ID, "phone-1")
	require.NoError(t, err)
	signature := f.sign(challenge)

	_, err = f.biometric.Authenticate(ctx, f.user.ID, "phone-1", challenge, signature)
	require.NoError(t, err)

	// Replaying the consumed challenge with a valid signature fails.
	_, err = f.biometric.Authenticate(ctx, f.user.ID, "phone-1", challenge, signature)
	assert.ErrorIs(t, err, apperror.ErrAuthentication)
}

func TestBiometricService_WrongSignatureBurnsChallenge(t *testing.T) {
	f := newBiometricFixture(t)
	ctx := context.Background()

	require.NoError(t, f.biometric.Setup(ctx, f.user.ID, "phone-1", f.publicKey, ""))

	challenge, _, err := f.biometric.Challenge(ctx, f.user.ID, "phone-1")
	require.NoError(t, err)

	_, err = f.biometric.Authenticate(ctx, f.user.ID, "phone-1", challenge, f.sign("something else"))
	assert.ErrorIs(t, err, apperror.ErrAuthentication)

	// The failed attempt consumed the challenge: a correct signature over
	// the same value is now too late.
	_, err = f.biometric.Authenticate(ctx, f.user.ID, "phone-1", challenge, f.sign(challenge))
	assert.ErrorIs(t, err, apperror.ErrAuthentication)
}

func TestBiometricService_DeactivatedDeviceIsLockedOut(t *testing.T) {
	f := newBiometricFixture(t)
	ctx := context.Background()

	require.NoError(t, f.biometric.Setup(ctx, f.user.ID, "phone-1", f.publicKey, "fingerprint"))
	challenge, _, err := f.biometric.Challenge(ctx, f.user.ID, "phone-1")
	require.NoError(t, err)

	// Deactivating the device (a lost phone) cuts off biometric login
	// even though a challenge was already pending.
	require.NoError(t, f.devices.Deactivate(ctx, f.user.ID, "phone-1"))

	_, err = f.biometric.Authenticate(ctx, f.user.ID, "phone-1", challenge, f.sign(challenge))
	assert.ErrorIs(t, err, apperror.ErrAuthentication)

	_, _, err = f.biometric.Challenge(ctx, f.user.ID, "phone-1")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestBiometricService_ChallengeRequiresCapableDevice(t *testing.T) {
	f := newBiometricFixture(t)
	ctx := context.Background()

	require.NoError(t, f.biometric.Setup(ctx, f.user.ID, "phone-1", f.publicKey, "fingerprint"))

	_, err := f.devices.Register(ctx, f.user.ID, RegisterDeviceParams{
		DeviceID: "tablet-1",
		Platform: model.PlatformAndroid,
	})
	require.NoError(t, err)

	_, _, err = f.biometric.Challenge(ctx, f.user.ID, "tablet-1")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestBiometricService_ChallengeRequiresEnrollment(t *testing.T) {
	f := newBiometricFixture(t)

	_, _, err := f.biometric.Challenge(context.Background(), f.user.ID, "phone-1")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestBiometricService_SetupRejectsBadKey(t *testing.T) {
	f := newBiometricFixture(t)

	err := f.biometric.Setup(context.Background(), f.user.ID, "phone-1", "definitely not a key", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestBiometricService_SetupRequiresRegisteredDevice(t *testing.T) {
	f := newBiometricFixture(t)

	err := f.biometric.Setup(context.Background(), f.user.ID, "unknown-device", f.publicKey, "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestBiometricService_Disable(t *testing.T) {
	f := newBiometricFixture(t)
	ctx := context.Background()

	require.NoError(t, f.biometric.Setup(ctx, f.user.ID, "phone-1", f.publicKey, "fingerprint"))
	require.NoError(t, f.biometric.Disable(ctx, f.user.ID))

	_, _, err := f.biometric.Challenge(ctx, f.user.ID, "phone-1")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	got, err := f.users.Get(ctx, f.user.ID)
	require.NoError(t, err)
	assert.False(t, got.BiometricEnabled)
	assert.Nil(t, got.BiometricPublicKey)
}

func TestBiometricService_CleanupExpired(t *testing.T) {
	f := newBiometricFixture(t)
	ctx := context.Background()

	require.NoError(t, f.biometric.Setup(ctx, f.user.ID, "phone-1", f.publicKey, ""))
	_, _, err := f.biometric.Challenge(ctx, f.user.ID, "phone-1")
	require.NoError(t, err)

	// Nothing has expired yet.
	n, err := f.biometric.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
