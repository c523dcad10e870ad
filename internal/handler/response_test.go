package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/meetsync/internal/apperror"
)

func TestWriteError_MapsDomainErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("email", "bad email"), http.StatusBadRequest, "validation_error"},
		{"authentication", apperror.AuthenticationFailed(), http.StatusUnauthorized, "authentication_failed"},
		{"not found", apperror.NotFound("device", "d1"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("user", "email"), http.StatusConflict, "conflict"},
		{"provider collapses to authentication", apperror.ProviderFailed("google", errors.New("timeout")), http.StatusUnauthorized, "authentication_failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantType, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestWriteError_HidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("pq: connection refused on 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Error)
	// Internals never leak into the response.
	assert.NotContains(t, body.Message, "10.0.0.3")
}

func TestWriteError_ProviderCauseStaysOutOfBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apperror.ProviderFailed("google", errors.New("userinfo endpoint: 503")))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body.Message, "google")
	assert.NotContains(t, body.Message, "503")
}

func TestDecodeAndValidate(t *testing.T) {
	type payload struct {
		Email string `json:"email" validate:"required,email"`
	}

	t.Run("valid body passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com"}`))
		rec := httptest.NewRecorder()
		var p payload
		assert.True(t, decodeAndValidate(rec, req, &p))
		assert.Equal(t, "a@b.com", p.Email)
	})

	t.Run("malformed JSON is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		var p payload
		assert.False(t, decodeAndValidate(rec, req, &p))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("failed rule names the field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"not-an-email"}`))
		rec := httptest.NewRecorder()
		var p payload
		assert.False(t, decodeAndValidate(rec, req, &p))

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "email", body.Field)
	})
}
