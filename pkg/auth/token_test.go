package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := AccessTokenClaims{
		UserID:    7,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-only-secret"))
	require.NoError(t, err)
	return signed
}

func TestParseUnverifiedReadsClaims(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	claims, err := ParseUnverified(signedToken(t, exp))
	require.NoError(t, err)
	assert.Equal(t, "access", claims.TokenType)
	assert.EqualValues(t, 7, claims.UserID)

	got, ok := ExpiresAt(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))
}

func TestParseUnverifiedRejectsOpaqueTokens(t *testing.T) {
	_, err := ParseUnverified("opaque-token")
	require.ErrorIs(t, err, ErrNotJWT)

	_, err = ParseUnverified("a.b.c")
	require.ErrorIs(t, err, ErrNotJWT)
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, Expired(signedToken(t, now.Add(-time.Hour)), now, time.Minute))
	assert.False(t, Expired(signedToken(t, now.Add(-30*time.Second)), now, time.Minute))
	assert.False(t, Expired(signedToken(t, now.Add(time.Hour)), now, 0))
	assert.False(t, Expired("opaque-token", now, 0))
}
