// Package auth provides JWT token issuance and validation for the bug tracker API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User registers at POST /auth/register (username, email, password)
// 2. User exchanges credentials at POST /auth/token → access + refresh tokens
// 3. Client sends "Authorization: Bearer <access>" on every API call
// 4. Middleware validates the JWT and sets the userID in the request context
// 5. When the access token expires (15 min), the client posts the refresh
//    token to /auth/token/refresh for a new access token
//
// WHY JWT?
// JWT (JSON Web Token) is stateless — the server doesn't need to store session
// data. All the information needed (userID, expiry, token type) is inside the
// signed token. The signature ensures nobody can tamper with it without the
// secret key.
//
// WHY TWO TOKEN TYPES?
// The access token is short-lived so a leaked one is only useful briefly.
// The refresh token lives longer (7 days) but is only ever sent to one
// endpoint. Each token carries a "token_type" claim so a refresh token can
// never be replayed as an access token or vice versa.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes. Access is deliberately short; refresh covers a week of
// inactivity before the user must log in again.
const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Token type claim values.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations — keep it safe, rotate it
// periodically in production.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// standard fields like Issuer, Subject, ExpiresAt, IssuedAt.
//
// We use "sub" (Subject) to store the internal user ID and a custom
// "token_type" claim to distinguish access from refresh tokens.
type claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// GenerateAccess creates and signs a short-lived access token for the given
// userID.
//
// Signing algorithm: HS256 (HMAC-SHA256)
// - Symmetric: same key for signing and verifying
// - Fast and simple — good for single-server deployments
func (s *TokenService) GenerateAccess(userID string) (string, error) {
	return s.generate(userID, TokenTypeAccess, AccessTokenTTL)
}

// GenerateRefresh creates and signs a long-lived refresh token for the given
// userID. Refresh tokens are only accepted by the token-refresh endpoint.
func (s *TokenService) GenerateRefresh(userID string) (string, error) {
	return s.generate(userID, TokenTypeRefresh, RefreshTokenTTL)
}

// GenerateWithDuration creates an access token with a custom expiry duration.
// Used in tests to produce already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	return s.generate(userID, TokenTypeAccess, d)
}

func (s *TokenService) generate(userID, tokenType string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    "bugtracker",
		},
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// ValidateAccess parses and verifies an access token, returning the userID
// it encodes. A refresh token is rejected here even if otherwise valid.
func (s *TokenService) ValidateAccess(tokenStr string) (string, error) {
	return s.validate(tokenStr, TokenTypeAccess)
}

// ValidateRefresh parses and verifies a refresh token, returning the userID
// it encodes. An access token is rejected here even if otherwise valid.
func (s *TokenService) ValidateRefresh(tokenStr string) (string, error) {
	return s.validate(tokenStr, TokenTypeRefresh)
}

// validate parses and verifies a JWT string and checks its token_type claim.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "bugtracker" (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. Passing jwt.WithValidMethods prevents this.
func (s *TokenService) validate(tokenStr, wantType string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			// Reject tokens that aren't signed with HS256
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("bugtracker"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// Translate jwt library errors into cleaner messages
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.TokenType != wantType {
		return "", fmt.Errorf("auth: token is not an %s token", wantType)
	}

	userID := c.Subject
	if userID == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return userID, nil
}
