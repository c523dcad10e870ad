// Package service contains the business logic layer. Services sit between
// the HTTP handlers and the repositories:
//
//	handler (HTTP) → service (business rules) → repository (DB)
//	              ↘ auth helpers (JWT, bcrypt, signatures)
//
// Handlers never touch repositories directly, and services never read HTTP
// requests. Everything here is testable with fake repositories.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/auth"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/repository"
)

// TokenPair is the credential set returned by every login flow
// (password, biometric, social) and by token refresh. DeviceID echoes
// the device the refresh token is bound to, which the client may not
// have chosen itself.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	DeviceID     string
}

// LoginResult bundles the authenticated user with the issued tokens so the
// handler can build the response in one step.
type LoginResult struct {
	User   *model.User
	Tokens *TokenPair
}

// AuthConfig holds the token lifetime policy.
type AuthConfig struct {
	RefreshTTL       time.Duration
	RememberMeTTL    time.Duration
	MaxTokensPerUser int
}

// AuthService handles password login and the refresh token lifecycle.
type AuthService struct {
	store     repository.Store
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	cfg       AuthConfig
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	store repository.Store,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		cfg:       cfg,
		logger:    logger,
	}
}

// Login authenticates an email/password pair for the given device.
//
// All failure modes (unknown email, deactivated account, social-only account
// with no password, wrong password) collapse into the same authentication
// error so a caller cannot probe which emails are registered.
//
// A client with no device identifier of its own gets a generated one; it
// is returned inside the token response's device binding and must be
// presented on refresh.
func (s *AuthService) Login(ctx context.Context, email, password, deviceID string, rememberMe bool) (*LoginResult, error) {
	if deviceID == "" {
		deviceID = "web_" + uuid.NewString()
	}
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.AuthenticationFailed()
	}
	if !user.IsActive || user.PasswordHash == nil {
		return nil, apperror.AuthenticationFailed()
	}
	if err := s.passwords.Verify(*user.PasswordHash, password); err != nil {
		return nil, apperror.AuthenticationFailed()
	}

	var pair *TokenPair
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
			return err
		}
		pair, err = s.Issue(ctx, tx, user, deviceID, rememberMe)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing tokens for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("deviceID", deviceID),
	)
	return &LoginResult{User: user, Tokens: pair}, nil
}

// Issue generates a fresh access/refresh pair for the user on the given
// device and persists the refresh token hash through st, which may be a
// transaction-bound store. Grants beyond the per-user cap are
// deactivated, least recently used first.
func (s *AuthService) Issue(ctx context.Context, st repository.Store, user *model.User, deviceID string, rememberMe bool) (*TokenPair, error) {
	access, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	ttl := s.cfg.RefreshTTL
	if rememberMe {
		ttl = s.cfg.RememberMeTTL
	}
	row := &model.RefreshToken{
		UserID:    user.ID,
		TokenHash: auth.HashToken(refresh),
		DeviceID:  deviceID,
		IsActive:  true,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	if err := st.Tokens().Create(ctx, row); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	if s.cfg.MaxTokensPerUser > 0 {
		evicted, err := st.Tokens().EnforceLimit(ctx, user.ID, s.cfg.MaxTokensPerUser)
		if err != nil {
			return nil, fmt.Errorf("enforcing token limit: %w", err)
		}
		if evicted > 0 {
			s.logger.Debug("evicted refresh tokens over limit",
				slog.String("userID", user.ID),
				slog.Int64("count", evicted),
			)
		}
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		DeviceID:     deviceID,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated: the caller keeps presenting the same
// one until it expires or is revoked, and the pair echoes it back.
//
// The token must belong to the presenting device. A stolen refresh token
// replayed from another device is rejected without revealing whether the
// token exists.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, deviceID string) (*TokenPair, error) {
	row, err := s.store.Tokens().GetActive(ctx, auth.HashToken(refreshToken), deviceID, time.Now().UTC())
	if err != nil {
		return nil, apperror.AuthenticationFailed()
	}

	user, err := s.store.Users().GetByID(ctx, row.UserID)
	if err != nil || !user.IsActive {
		return nil, apperror.AuthenticationFailed()
	}

	access, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating access token: %w", err)
	}
	if err := s.store.Tokens().TouchLastUsed(ctx, row.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("updating refresh token last_used failed",
			slog.String("tokenID", row.ID),
			slog.String("error", err.Error()),
		)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		DeviceID:     deviceID,
	}, nil
}

// Revoke deactivates a single refresh token. Revoking a token that is
// already inactive or unknown reports false without error, so logout is
// idempotent.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) (bool, error) {
	ok, err := s.store.Tokens().Deactivate(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return false, fmt.Errorf("service/auth: revoking token: %w", err)
	}
	return ok, nil
}

// RevokeAllForUser deactivates every refresh token the user holds, except
// those bound to excludeDeviceID when it is non-empty. Used on password
// change and logout-everywhere.
func (s *AuthService) RevokeAllForUser(ctx context.Context, userID, excludeDeviceID string) (int64, error) {
	n, err := s.store.Tokens().DeactivateAllForUser(ctx, userID, excludeDeviceID)
	if err != nil {
		return 0, fmt.Errorf("service/auth: revoking tokens for user %s: %w", userID, err)
	}
	return n, nil
}

// CleanupExpired deletes refresh token rows past their expiry. Inactive but
// unexpired rows are kept so a revoked token stays visibly revoked until
// its natural expiry.
func (s *AuthService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.store.Tokens().DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("service/auth: deleting expired tokens: %w", err)
	}
	return n, nil
}
