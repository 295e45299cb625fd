package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-only-secret"))
	require.NoError(t, err)
	return tok
}

func TestBearerHeader(t *testing.T) {
	assert.Equal(t, "Bearer abc", BearerHeader("abc"))
	assert.Equal(t, "", BearerHeader(""))
}

func TestTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", TokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", TokenFromHeader("bearer  abc "))
	assert.Equal(t, "abc", TokenFromHeader("abc"))
	assert.Equal(t, "", TokenFromHeader(""))
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signed(t, jwt.MapClaims{
		"accountType": "recruiter",
		"userId":      "u-1",
		"exp":         exp.Unix(),
	})

	info, err := Inspect(tok)
	require.NoError(t, err)
	assert.Equal(t, "recruiter", info.AccountType)
	assert.Equal(t, "u-1", info.UserID)
	assert.True(t, info.ExpiresAt.Equal(exp))
	assert.False(t, info.Expired(time.Now()))
	assert.True(t, info.Expired(exp))
}

func TestInspectFallsBackToSubject(t *testing.T) {
	info, err := Inspect(signed(t, jwt.MapClaims{"sub": "u-9"}))
	require.NoError(t, err)
	assert.Equal(t, "u-9", info.UserID)
	assert.True(t, info.ExpiresAt.IsZero())
	assert.False(t, info.Expired(time.Now()))
}

func TestInspectRejectsOpaqueTokens(t *testing.T) {
	_, err := Inspect(NoAuthToken)
	assert.ErrorIs(t, err, ErrNotJWT)

	_, err = Inspect("a.b.c")
	assert.ErrorIs(t, err, ErrNotJWT)
}
