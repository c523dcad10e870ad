package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogle_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"sub": "google-sub-123",
			"email": "alice@example.com",
			"email_verified": true,
			"name": "Alice",
			"picture": "https://example.com/a.png"
		}`))
	}))
	defer srv.Close()

	g := NewGoogleForTest(srv.URL)

	identity, err := g.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "google-sub-123", identity.ProviderUserID)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Equal(t, "Alice", identity.Name)
	assert.True(t, identity.EmailVerified)

	_, err = g.Verify(context.Background(), "revoked-token")
	assert.Error(t, err)
}

func TestGoogle_VerifyIncompleteIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"email": "no-sub@example.com"}`))
	}))
	defer srv.Close()

	_, err := NewGoogleForTest(srv.URL).Verify(context.Background(), "token")
	assert.Error(t, err)
}

func TestGoogle_VerifyBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewGoogleForTest(srv.URL).Verify(context.Background(), "token")
	assert.Error(t, err)
}
