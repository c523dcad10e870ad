package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/auth"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/repository"
)

const challengeBytes = 32

// BiometricService implements challenge-response login backed by a
// device-held keypair. The private key never leaves the device; the
// server stores only the public key and verifies signatures over
// short-lived challenges.
type BiometricService struct {
	store        repository.Store
	auth         *AuthService
	challengeTTL time.Duration
	logger       *slog.Logger
}

// NewBiometricService creates a BiometricService with all required
// dependencies. Token issuance on successful authentication is delegated
// to the AuthService so every login flow shares one policy.
func NewBiometricService(store repository.Store, authSvc *AuthService, challengeTTL time.Duration, logger *slog.Logger) *BiometricService {
	return &BiometricService{
		store:        store,
		auth:         authSvc,
		challengeTTL: challengeTTL,
		logger:       logger,
	}
}

// Setup enrolls a public key for the user. The device must already be
// registered and active; enrolling flips the user's biometric flag and
// marks the device as biometric-capable.
func (s *BiometricService) Setup(ctx context.Context, userID, deviceID, publicKey, biometricType string) error {
	if err := auth.ValidatePublicKey(publicKey); err != nil {
		return apperror.ValidationFailed("public_key", "not a valid base64-encoded public key")
	}

	device, err := s.store.Devices().Get(ctx, userID, deviceID)
	if err != nil {
		return err
	}
	if !device.IsActive {
		return apperror.ValidationFailed("device_id", "device is not active")
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.BiometricEnabled = true
	user.BiometricPublicKey = &publicKey

	device.SupportsBiometric = true
	if biometricType != "" {
		device.BiometricType = biometricType
	}

	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		if err := tx.Devices().Upsert(ctx, device); err != nil {
			return err
		}
		s.logger.Info("biometric enrolled",
			slog.String("userID", userID),
			slog.String("deviceID", deviceID),
		)
		return nil
	})
}

// Challenge issues a fresh random challenge for the (user, device) pair.
// Only one challenge is pending per pair; requesting another replaces it.
// The challenge expires after the configured TTL and is consumed on first
// use, successful or not.
func (s *BiometricService) Challenge(ctx context.Context, userID, deviceID string) (challenge string, expiresAt time.Time, err error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !user.IsActive || !user.BiometricEnabled || user.BiometricPublicKey == nil {
		return "", time.Time{}, apperror.ValidationFailed("user", "biometric login is not set up")
	}
	device, err := s.store.Devices().Get(ctx, userID, deviceID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !device.IsActive || !device.SupportsBiometric {
		return "", time.Time{}, apperror.ValidationFailed("device_id", "device cannot use biometric login")
	}

	buf := make([]byte, challengeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("service/biometric: generating challenge: %w", err)
	}
	challenge = base64.RawURLEncoding.EncodeToString(buf)
	expiresAt = time.Now().UTC().Add(s.challengeTTL)

	err = s.store.Challenges().Put(ctx, &model.BiometricChallenge{
		UserID:    userID,
		DeviceID:  deviceID,
		Challenge: challenge,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("service/biometric: storing challenge: %w", err)
	}
	return challenge, expiresAt, nil
}

// Authenticate completes biometric login: it consumes the pending
// challenge, verifies the signature against the enrolled public key, and
// issues a token pair. Consuming before verifying means a wrong signature
// still burns the challenge; the client must request a new one.
func (s *BiometricService) Authenticate(ctx context.Context, userID, deviceID, challenge, signature string) (*LoginResult, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.AuthenticationFailed()
	}
	if !user.IsActive || !user.BiometricEnabled || user.BiometricPublicKey == nil {
		return nil, apperror.AuthenticationFailed()
	}

	// A deactivated device is locked out of biometric login even while
	// it still holds a pending challenge.
	device, err := s.store.Devices().Get(ctx, userID, deviceID)
	if err != nil {
		return nil, apperror.AuthenticationFailed()
	}
	if !device.IsActive || !device.SupportsBiometric {
		return nil, apperror.AuthenticationFailed()
	}

	ok, err := s.store.Challenges().Consume(ctx, userID, deviceID, challenge, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("service/biometric: consuming challenge: %w", err)
	}
	if !ok {
		return nil, apperror.AuthenticationFailed()
	}

	if err := auth.VerifySignature(*user.BiometricPublicKey, signature, challenge); err != nil {
		s.logger.Warn("biometric signature rejected",
			slog.String("userID", userID),
			slog.String("deviceID", deviceID),
		)
		return nil, apperror.AuthenticationFailed()
	}

	var pair *TokenPair
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		now := time.Now().UTC()
		if err := tx.Users().UpdateLastLogin(ctx, userID, now); err != nil {
			return err
		}
		if err := tx.Devices().TouchLastActive(ctx, userID, deviceID, now); err != nil {
			return err
		}
		pair, err = s.auth.Issue(ctx, tx, user, deviceID, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service/biometric: issuing tokens for user %s: %w", userID, err)
	}

	s.logger.Info("user logged in via biometric",
		slog.String("userID", userID),
		slog.String("deviceID", deviceID),
	)
	return &LoginResult{User: user, Tokens: pair}, nil
}

// Disable removes biometric login: the stored public key is cleared and
// every device loses its biometric flag. Already-issued tokens stay
// valid; only future biometric logins are cut off.
func (s *BiometricService) Disable(ctx context.Context, userID string) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.BiometricEnabled = false
	user.BiometricPublicKey = nil

	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		if err := tx.Devices().ClearBiometric(ctx, userID); err != nil {
			return err
		}
		s.logger.Info("biometric disabled", slog.String("userID", userID))
		return nil
	})
}

// CleanupExpired deletes challenges past their expiry.
func (s *BiometricService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.store.Challenges().DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("service/biometric: deleting expired challenges: %w", err)
	}
	return n, nil
}
