package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/auth"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/repository"
)

// UserService handles account registration and profile management.
type UserService struct {
	store     repository.Store
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewUserService creates a UserService with all required dependencies.
func NewUserService(store repository.Store, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{store: store, passwords: passwords, logger: logger}
}

// RegisterParams carries the self-registration input. Email and Password
// are required; the rest is optional profile data.
type RegisterParams struct {
	Email       string
	Password    string
	FullName    string
	Username    string
	PhoneNumber string
}

// Register creates a password-authenticated account with default
// preferences. New accounts always start as attendees; role elevation is
// a separate administrative action.
func (s *UserService) Register(ctx context.Context, p RegisterParams) (*model.User, error) {
	hash, err := s.passwords.Hash(p.Password)
	if err != nil {
		return nil, fmt.Errorf("service/user: hashing password: %w", err)
	}

	user := &model.User{
		Email:        p.Email,
		FullName:     p.FullName,
		PhoneNumber:  p.PhoneNumber,
		PasswordHash: &hash,
		IsActive:     true,
		Role:         model.RoleAttendee,
	}
	if p.Username != "" {
		user.Username = &p.Username
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Preferences().Create(ctx, model.DefaultPreferences(user.ID))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Get returns the user for the given ID.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

// UpdateProfileParams carries optional profile changes. Nil fields are
// left untouched.
type UpdateProfileParams struct {
	FullName    *string
	Username    *string
	PhoneNumber *string
	AvatarURL   *string
}

// UpdateProfile applies the non-nil fields and returns the updated user.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, p UpdateProfileParams) (*model.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if p.FullName != nil {
		user.FullName = *p.FullName
	}
	if p.Username != nil {
		if *p.Username == "" {
			user.Username = nil
		} else {
			user.Username = p.Username
		}
	}
	if p.PhoneNumber != nil {
		user.PhoneNumber = *p.PhoneNumber
	}
	if p.AvatarURL != nil {
		user.AvatarURL = *p.AvatarURL
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password, stores the new hash, and
// revokes every refresh token except the one on the device making the
// change. Other devices must log in again with the new password.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next, keepDeviceID string) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == nil {
		return apperror.ValidationFailed("current_password", "account has no password set")
	}
	if err := s.passwords.Verify(*user.PasswordHash, current); err != nil {
		return apperror.AuthenticationFailed()
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return fmt.Errorf("service/user: hashing password: %w", err)
	}
	user.PasswordHash = &hash

	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		n, err := tx.Tokens().DeactivateAllForUser(ctx, userID, keepDeviceID)
		if err != nil {
			return err
		}
		s.logger.Info("password changed",
			slog.String("userID", userID),
			slog.Int64("revokedTokens", n),
		)
		return nil
	})
}

// RequestPasswordReset looks up the account behind an email address.
// It returns nil whether or not the account exists; the HTTP layer sends
// the same generic response either way so the endpoint cannot be used to
// enumerate registered emails.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		s.logger.Debug("password reset requested for unknown email")
		return nil
	}
	// Delivery of the reset email is handled out of band. The request is
	// logged so operators can trace abuse.
	s.logger.Info("password reset requested", slog.String("userID", user.ID))
	return nil
}

// Deactivate disables the account and revokes every credential attached
// to it: refresh tokens, device registrations, and biometric keys.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.IsActive = false
	user.BiometricEnabled = false
	user.BiometricPublicKey = nil

	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		if _, err := tx.Tokens().DeactivateAllForUser(ctx, userID, ""); err != nil {
			return err
		}
		devices, err := tx.Devices().List(ctx, userID, true)
		if err != nil {
			return err
		}
		for _, d := range devices {
			if _, err := tx.Devices().Deactivate(ctx, userID, d.DeviceID); err != nil {
				return err
			}
		}
		s.logger.Info("account deactivated", slog.String("userID", userID))
		return nil
	})
}
