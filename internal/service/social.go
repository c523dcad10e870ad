package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/model"
	"github.com/sakif/meetsync/internal/provider"
	"github.com/sakif/meetsync/internal/repository"
)

// fallbackDeviceID is used when a social login arrives without a device
// identifier, typically from a web client.
const fallbackDeviceID = "social_web"

// SocialService handles sign-in with external identity providers. The
// flow is find-or-create: an incoming identity is matched first by
// provider ID, then by email (linking the identity onto the existing
// account), and only then does a new account get created.
type SocialService struct {
	store     repository.Store
	auth      *AuthService
	verifiers map[model.Provider]provider.Verifier
	logger    *slog.Logger
}

// NewSocialService creates a SocialService. verifiers maps each enabled
// provider to its token verifier; providers missing from the map are
// rejected at login.
func NewSocialService(store repository.Store, authSvc *AuthService, verifiers map[model.Provider]provider.Verifier, logger *slog.Logger) *SocialService {
	return &SocialService{
		store:     store,
		auth:      authSvc,
		verifiers: verifiers,
		logger:    logger,
	}
}

// Login verifies the provider token, resolves it to a local account, and
// issues a token pair. deviceID may be empty for web clients.
func (s *SocialService) Login(ctx context.Context, p model.Provider, providerToken, deviceID string, rememberMe bool) (*LoginResult, error) {
	verifier, ok := s.verifiers[p]
	if !ok {
		return nil, apperror.ValidationFailed("provider", fmt.Sprintf("provider %q is not enabled", p))
	}

	identity, err := verifier.Verify(ctx, providerToken)
	if err != nil {
		return nil, apperror.ProviderFailed(string(p), err)
	}

	user, err := s.resolve(ctx, p, identity)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.AuthenticationFailed()
	}

	if deviceID == "" {
		deviceID = fallbackDeviceID
	}

	var pair *TokenPair
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
			return err
		}
		pair, err = s.auth.Issue(ctx, tx, user, deviceID, rememberMe)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service/social: issuing tokens for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in via social provider",
		slog.String("userID", user.ID),
		slog.String("provider", string(p)),
	)
	return &LoginResult{User: user, Tokens: pair}, nil
}

// resolve maps a verified provider identity onto exactly one local user.
//
// Two concurrent first logins with the same identity can both miss the
// lookups and race to create the account. The loser hits the unique
// index, surfaces ErrConflict, and retries as a lookup, so the race
// converges on a single account.
func (s *SocialService) resolve(ctx context.Context, p model.Provider, identity *provider.Identity) (*model.User, error) {
	user, err := s.store.Users().GetByProviderID(ctx, p, identity.ProviderUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	// No account holds this identity yet. Link onto an existing account
	// with the same email; whether the provider vouched for the address
	// only decides the verified flag.
	user, err = s.store.Users().GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		return s.link(ctx, user, p, identity)
	case errors.Is(err, apperror.ErrNotFound):
		created, cerr := s.create(ctx, p, identity)
		if cerr == nil {
			return created, nil
		}
		if errors.Is(cerr, apperror.ErrConflict) {
			return s.resolveAfterConflict(ctx, p, identity)
		}
		return nil, cerr
	default:
		return nil, err
	}
}

// resolveAfterConflict handles a lost creation race. The winner may have
// claimed the provider id, or only the email (a concurrent password
// registration of the same address); either way the account exists now,
// so look it up and link if needed.
func (s *SocialService) resolveAfterConflict(ctx context.Context, p model.Provider, identity *provider.Identity) (*model.User, error) {
	user, err := s.store.Users().GetByProviderID(ctx, p, identity.ProviderUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	user, err = s.store.Users().GetByEmail(ctx, identity.Email)
	if err != nil {
		return nil, err
	}
	return s.link(ctx, user, p, identity)
}

// link attaches the provider identity to an existing account. Seeing the
// identity provider vouch for the email also upgrades an unverified
// account to verified.
func (s *SocialService) link(ctx context.Context, user *model.User, p model.Provider, identity *provider.Identity) (*model.User, error) {
	user.SetProviderID(p, identity.ProviderUserID)
	if identity.EmailVerified {
		user.IsVerified = true
	}
	if user.AvatarURL == "" {
		user.AvatarURL = identity.AvatarURL
	}
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/social: linking %s identity to user %s: %w", p, user.ID, err)
	}
	s.logger.Info("social identity linked",
		slog.String("userID", user.ID),
		slog.String("provider", string(p)),
	)
	return user, nil
}

// create registers a password-less account from the provider identity,
// with default preferences.
func (s *SocialService) create(ctx context.Context, p model.Provider, identity *provider.Identity) (*model.User, error) {
	user := &model.User{
		Email:      identity.Email,
		FullName:   identity.Name,
		AvatarURL:  identity.AvatarURL,
		IsActive:   true,
		IsVerified: identity.EmailVerified,
		Role:       model.RoleAttendee,
	}
	user.SetProviderID(p, identity.ProviderUserID)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Preferences().Create(ctx, model.DefaultPreferences(user.ID))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered via social provider",
		slog.String("userID", user.ID),
		slog.String("provider", string(p)),
	)
	return user, nil
}
