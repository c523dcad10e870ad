package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/repository"
)

// PreferencesService manages per-user notification and display settings.
type PreferencesService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewPreferencesService creates a PreferencesService.
func NewPreferencesService(store repository.Store, logger *slog.Logger) *PreferencesService {
	return &PreferencesService{store: store, logger: logger}
}

// Get returns the user's preferences, creating the default row on first
// access. Accounts created before preferences existed get defaults lazily.
func (s *PreferencesService) Get(ctx context.Context, userID string) (*model.Preferences, error) {
	prefs, err := s.store.Preferences().GetByUser(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	prefs = model.DefaultPreferences(userID)
	if err := s.store.Preferences().Create(ctx, prefs); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return s.store.Preferences().GetByUser(ctx, userID)
		}
		return nil, err
	}
	return prefs, nil
}

// UpdatePreferencesParams carries optional settings changes. Nil fields
// are left untouched.
type UpdatePreferencesParams struct {
	ThemeMode          *string
	Language           *string
	Timezone           *string
	PushNotifications  *bool
	EmailNotifications *bool
}

// Update applies the non-nil fields and returns the updated preferences.
func (s *PreferencesService) Update(ctx context.Context, userID string, p UpdatePreferencesParams) (*model.Preferences, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if p.ThemeMode != nil {
		if !model.ValidThemeMode(*p.ThemeMode) {
			return nil, apperror.ValidationFailed("theme_mode", "must be one of system, light, dark")
		}
		prefs.ThemeMode = *p.ThemeMode
	}
	if p.Language != nil {
		prefs.Language = *p.Language
	}
	if p.Timezone != nil {
		prefs.Timezone = *p.Timezone
	}
	if p.PushNotifications != nil {
		prefs.PushNotifications = *p.PushNotifications
	}
	if p.EmailNotifications != nil {
		prefs.EmailNotifications = *p.EmailNotifications
	}

	if err := s.store.Preferences().Update(ctx, prefs); err != nil {
		return nil, err
	}
	s.logger.Debug("preferences updated", slog.String("userID", userID))
	return prefs, nil
}
