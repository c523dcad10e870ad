package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RememberMeTokenTTL)
	assert.Equal(t, 5, cfg.MaxRefreshTokensPerUser)
	assert.Equal(t, 5*time.Minute, cfg.BiometricChallengeTTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars")
	t.Setenv("PORT", "9000")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("MAX_REFRESH_TOKENS_PER_USER", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 3, cfg.MaxRefreshTokensPerUser)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "too-short")
	_, err = Load()
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	base := Config{
		JWTSecret:               "test-secret-at-least-16-chars",
		AccessTokenTTL:          time.Minute,
		RefreshTokenTTL:         time.Hour,
		RememberMeTokenTTL:      time.Hour,
		MaxRefreshTokensPerUser: 5,
	}
	require.NoError(t, base.Validate())

	c := base
	c.AccessTokenTTL = 0
	assert.Error(t, c.Validate())

	c = base
	c.MaxRefreshTokensPerUser = 0
	assert.Error(t, c.Validate())
}
