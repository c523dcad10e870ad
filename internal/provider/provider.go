// Package provider verifies access tokens obtained from external
// identity providers.
//
// The OAuth dance itself (redirects, consent, code exchange) happens on
// the mobile client; the backend only receives the resulting token and
// must confirm, out-of-process with the provider, who it belongs to.
// Each Verifier makes that one bounded call and reports the asserted
// identity or fails.
package provider

import (
	"context"
	"time"
)

// Identity is what a provider asserts about the token's owner.
type Identity struct {
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
	EmailVerified  bool
}

// Verifier checks a provider-issued token and returns the identity it
// vouches for. Implementations must bound their network calls; a timeout
// is a verification failure, never a success.
type Verifier interface {
	// Name returns the provider's identifier ("google", "apple").
	Name() string
	// Verify checks the token with the provider.
	Verify(ctx context.Context, accessToken string) (*Identity, error)
}

// verifyTimeout bounds every provider round-trip.
const verifyTimeout = 10 * time.Second
