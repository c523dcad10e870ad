package provider

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Apple's "access token" for Sign in with Apple is an identity token: an
// RS256 JWT signed by Apple. Verification is local: parse the token,
// fetch Apple's published JWKS, check the signature against the key the
// header names, and validate issuer, audience, and expiry.
const (
	appleIssuer  = "https://appleid.apple.com"
	appleJWKSURL = "https://appleid.apple.com/auth/keys"

	// appleKeyCacheTTL bounds how long fetched JWKS keys are reused.
	// Apple rotates keys rarely; an hour keeps the common path free of
	// network calls without holding a retired key for long.
	appleKeyCacheTTL = time.Hour
)

// Apple verifies Sign in with Apple identity tokens.
type Apple struct {
	clientID string // expected audience: the app's bundle/services ID
	jwksURL  string

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey // keyed by kid
	fetchedAt time.Time
}

// NewApple creates an Apple verifier expecting tokens issued to clientID.
func NewApple(clientID string) *Apple {
	return &Apple{clientID: clientID, jwksURL: appleJWKSURL}
}

// NewAppleForTest creates an Apple verifier against a test JWKS server.
func NewAppleForTest(clientID, jwksURL string) *Apple {
	return &Apple{clientID: clientID, jwksURL: jwksURL}
}

func (a *Apple) Name() string { return "apple" }

// appleClaims is the identity-token payload we consume.
type appleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"` // Apple sends bool or "true"
}

// Verify validates the identity token and extracts the asserted identity.
func (a *Apple) Verify(ctx context.Context, identityToken string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	claims := &appleClaims{}
	token, err := jwt.ParseWithClaims(
		identityToken,
		claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("provider: Apple token has no key id")
			}
			return a.publicKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(appleIssuer),
		jwt.WithAudience(a.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("provider: verifying Apple token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("provider: Apple token has no subject")
	}

	return &Identity{
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  appleBool(claims.EmailVerified),
	}, nil
}

// appleBool normalizes Apple's email_verified claim, which arrives as
// either a JSON bool or the string "true".
func appleBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	}
	return false
}

// appleJWKS mirrors the JSON shape of Apple's key endpoint.
type appleJWKS struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// publicKey returns the RSA key with the given kid, fetching the JWKS if
// the cache is cold, stale, or missing that kid (key rotation).
func (a *Apple) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if key, ok := a.keys[kid]; ok && time.Since(a.fetchedAt) < appleKeyCacheTTL {
		return key, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: building JWKS request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: fetching Apple JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider: Apple JWKS returned status %d", resp.StatusCode)
	}

	var jwks appleJWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("provider: decoding Apple JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		key, err := rsaKeyFromJWK(k.N, k.E)
		if err != nil {
			return nil, err
		}
		keys[k.Kid] = key
	}
	a.keys = keys
	a.fetchedAt = time.Now()

	key, ok := a.keys[kid]
	if !ok {
		return nil, fmt.Errorf("provider: Apple JWKS has no key %q", kid)
	}
	return key, nil
}

// rsaKeyFromJWK builds an rsa.PublicKey from base64url modulus and
// exponent components.
func rsaKeyFromJWK(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("provider: decoding JWK modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("provider: decoding JWK exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}
