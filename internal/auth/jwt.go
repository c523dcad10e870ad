// Package auth provides the cryptographic building blocks of the
// credential subsystem: signed access tokens, opaque refresh tokens,
// password hashing, and biometric signature verification.
//
// TOKEN MODEL:
// An access token is a signed, self-contained JWT: the server verifies
// it with the secret alone, no store lookup. A refresh token is the
// opposite: pure random bytes with no structure, meaningful only through
// its hashed row in the store. The two are distinguished by the "type"
// claim so a refresh credential can never pass an access check.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/meetsync/internal/model"
)

const issuer = "meetsync"

// TokenService mints and validates JWT access tokens.
//
// It holds the HMAC secret used for both signing and verification. The
// secret must be at least 16 characters; 32 random bytes in production.
type TokenService struct {
	secret    []byte
	accessTTL time.Duration
}

// NewTokenService creates a TokenService signing tokens with the given
// secret and access-token lifetime.
func NewTokenService(secret string, accessTTL time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if accessTTL <= 0 {
		return nil, errors.New("auth: access token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), accessTTL: accessTTL}, nil
}

// Claims is the access-token payload. Subject carries the user ID; the
// email and role ride along so the request layer can authorize without a
// store round-trip. TokenType is always "access"; it exists so no other
// credential shape can be replayed here.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"type"`
}

// Generate mints a signed access token for the user.
func (s *TokenService) Generate(user *model.User) (string, error) {
	now := time.Now()

	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		Email:     user.Email,
		Role:      string(user.Role),
		TokenType: "access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// AccessTTL returns the configured access-token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// Validate parses and verifies an access token, returning its claims.
//
// Besides the signature and expiry, it pins the algorithm to HS256
// (jwt.WithValidMethods rejects alg-confusion tokens), the issuer, and
// the "access" type discriminator.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if c.TokenType != "access" {
		return nil, errors.New("auth: not an access token")
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}

	return c, nil
}
