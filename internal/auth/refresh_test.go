package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewRefreshToken()
		require.NoError(t, err)
		require.NotEmpty(t, token)
		require.False(t, seen[token], "duplicate refresh token generated")
		seen[token] = true
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	token, err := NewRefreshToken()
	require.NoError(t, err)

	assert.Equal(t, HashToken(token), HashToken(token))
	assert.NotEqual(t, HashToken(token), HashToken(token+"x"))
	// sha256 hex digest.
	assert.Len(t, HashToken(token), 64)
}
