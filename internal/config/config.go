// Package config loads the server configuration from environment variables.
//
// The whole configuration is one explicit struct, built once in main and
// passed into each component's constructor. Nothing reads ambient state
// after startup; tests construct a Config literal directly.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the server needs.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/meetsync.db"`

	// JWTSecret signs access tokens. Must be at least 16 characters;
	// generate with: openssl rand -hex 32
	JWTSecret string `env:"JWT_SECRET"`

	// Token lifetimes. Refresh tokens live longer when the client asks
	// to be remembered.
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"30m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"` // 7 days
	RememberMeTokenTTL time.Duration `env:"REMEMBER_ME_TOKEN_TTL" envDefault:"720h"` // 30 days

	// MaxRefreshTokensPerUser caps live grants per user. Issuing past
	// the cap deactivates the least recently issued tokens.
	MaxRefreshTokensPerUser int `env:"MAX_REFRESH_TOKENS_PER_USER" envDefault:"5"`

	// BiometricChallengeTTL bounds how long an issued challenge can be
	// answered. Each challenge is also single-use.
	BiometricChallengeTTL time.Duration `env:"BIOMETRIC_CHALLENGE_TTL" envDefault:"5m"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	// Social providers. A provider with an empty client ID is disabled.
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`
	AppleClientID  string `env:"APPLE_CLIENT_ID"`

	// Push notifications (FCM HTTP v1). Optional; when unset, push
	// sends are skipped.
	FCMProjectID          string `env:"FCM_PROJECT_ID"`
	FCMServiceAccountPath string `env:"FCM_SERVICE_ACCOUNT_PATH"`

	// CleanupInterval is how often expired refresh tokens and biometric
	// challenges are physically deleted.
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants that env parsing cannot express.
func (c Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.RememberMeTokenTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if c.MaxRefreshTokensPerUser < 1 {
		return errors.New("config: MAX_REFRESH_TOKENS_PER_USER must be at least 1")
	}
	return nil
}
