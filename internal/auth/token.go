// Package auth provides session tokens, password hashing, and the Naver
// OAuth provider.
//
// SESSION MODEL:
// The browser holds one HttpOnly cookie containing a signed token. The
// token is a JWT whose "jti" claim is the ID of a sessions row in the
// database. Validating a request is therefore two steps:
//
//  1. Verify the token signature and expiry (no DB hit — forged or
//     expired cookies are rejected here)
//  2. Look up the session row by jti (logout deletes the row, so a
//     stolen-but-revoked token dies here)
//
// This is the middle ground between pure-stateless JWT (can't revoke)
// and opaque session IDs (every request costs a DB lookup even for junk
// tokens).
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is how long a login lasts before the user must sign in
// again. The session row and the token expire together.
const SessionTTL = 7 * 24 * time.Hour

const tokenIssuer = "storymap"

// TokenService signs and verifies session tokens with an HMAC secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService. The secret should be at least
// 32 bytes of random data in production (e.g. openssl rand -hex 32).
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a session token for userID. sessionID becomes the "jti"
// claim and must match the sessions row created alongside this token.
func (s *TokenService) Generate(userID, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string, returning the userID and
// sessionID it carries.
//
// jwt.WithValidMethods pins the algorithm to HS256 so an attacker can't
// downgrade to "none" or swap in an asymmetric scheme.
func (s *TokenService) Validate(tokenStr string) (userID, sessionID string, err error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", fmt.Errorf("auth: token expired")
		}
		return "", "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", "", fmt.Errorf("auth: token has no subject")
	}
	if c.ID == "" {
		return "", "", fmt.Errorf("auth: token has no session id")
	}

	return c.Subject, c.ID, nil
}
