// Package handler implements the HTTP API. Handlers decode and validate
// requests, call the service layer, and encode responses. All domain
// decisions live in the services; the only logic here is translation
// between HTTP and the domain.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/meetsync/internal/apperror"
	"github.com/sakif/meetsync/internal/auth"
)

// validate checks the `validate` struct tags on request bodies. A single
// instance caches struct metadata, so it is shared package-wide.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorResponse is the error shape every endpoint returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON sends data with the given status. Headers must be set before
// the first body write, so the order here is fixed.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding JSON response failed", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error onto an HTTP status. The service layer
// never sees status codes; this is the one place the translation happens.
// Unrecognized errors become an opaque 500 so internals never leak to
// clients.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrAuthentication):
			status = http.StatusUnauthorized
			errorType = "authentication_failed"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrProvider):
			// A provider failure is indistinguishable from a bad
			// credential to the caller. The cause is only logged.
			slog.Warn("provider verification failed", slog.String("error", appErr.Err.Error()))
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:   "authentication_failed",
				Message: "invalid credentials",
			})
			return
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	slog.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// requireIdentity pulls the authenticated identity from the request
// context. The auth middleware guarantees it is there on protected
// routes; the miss branch guards against a route wired up without the
// middleware.
func requireIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "not authenticated",
		})
	}
	return identity, ok
}

// decodeAndValidate reads the JSON body into dst and runs its validate
// tags. On failure it writes the error response itself and reports false,
// so handlers can bail with a bare return.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body is not valid JSON",
		})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "field failed validation rule: " + first.Tag(),
				Field:   strings.ToLower(first.Field()),
			})
			return false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body failed validation",
		})
		return false
	}
	return true
}
