// Package auth inspects the bearer tokens the remote API issues. The client never holds
// the signing key, so tokens are read without signature verification and only used to
// skip requests that are certain to be rejected.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned for opaque tokens that carry no readable claims.
var ErrNotJWT = errors.New("token is not a jwt")

// AccessTokenClaims is the subset of claims the client reads from an access token.
type AccessTokenClaims struct {
	UserID    any    `json:"user_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// ParseUnverified decodes the claims of tokenString without checking its signature
// or expiry.
func ParseUnverified(tokenString string) (*AccessTokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if strings.Count(tokenString, ".") != 2 {
		return nil, ErrNotJWT
	}
	claims := &AccessTokenClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim. ok is false when the token is opaque or has no exp.
func ExpiresAt(tokenString string) (time.Time, bool) {
	claims, err := ParseUnverified(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the token's exp lies before now minus leeway. Tokens whose
// expiry cannot be read are never reported as expired; the server decides for them.
func Expired(tokenString string, now time.Time, leeway time.Duration) bool {
	exp, ok := ExpiresAt(tokenString)
	if !ok {
		return false
	}
	return exp.Add(leeway).Before(now)
}
