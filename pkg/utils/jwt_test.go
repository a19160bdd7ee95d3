package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_TokenPairRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	access, refresh, expiresIn, err := svc.GenerateTokenPair("user-1", "fran@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.Positive(t, expiresIn)

	claims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "fran@example.com", claims.Email)
	assert.Equal(t, "access", claims.Type)

	refreshClaims, err := svc.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.Type)
}

func TestJWTService_AccessTokenIsNotARefreshToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	access, _, _, err := svc.GenerateTokenPair("user-1", "fran@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(access)
	assert.Error(t, err)
}

func TestJWTService_WrongSecretRejected(t *testing.T) {
	access, _, _, err := NewJWTService("secret-a").GenerateTokenPair("user-1", "fran@example.com")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b").ValidateToken(access)
	assert.Error(t, err)
}

func TestJWTService_RefreshAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	_, refresh, _, err := svc.GenerateTokenPair("user-1", "fran@example.com")
	require.NoError(t, err)

	newAccess, expiresAt, err := svc.RefreshAccessToken(refresh)
	require.NoError(t, err)
	assert.Positive(t, expiresAt)

	claims, err := svc.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestGenerateURLToken(t *testing.T) {
	tok, err := GenerateURLToken(16)
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.NotContains(t, tok, "/")
	assert.NotContains(t, tok, "+")
	assert.NotContains(t, tok, "=")

	other, err := GenerateURLToken(16)
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)

	// non-positive sizes fall back to a sane default
	fallback, err := GenerateURLToken(0)
	require.NoError(t, err)
	assert.NotEmpty(t, fallback)
}
