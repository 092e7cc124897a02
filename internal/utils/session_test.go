package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret-that-is-long-enough"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerify_ValidToken(t *testing.T) {
	verifier := NewSessionVerifier(testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{
		"tenant_id": "tenant-1",
		"user_id":   "user-1",
		"role":      "admin",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	tc, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", tc.TenantID)
	assert.Equal(t, "user-1", tc.UserID)
	assert.Equal(t, "admin", tc.Role)
	assert.True(t, tc.CanManageConnections())
}

func TestVerify_WrongSecret(t *testing.T) {
	verifier := NewSessionVerifier(testSecret)

	token := signToken(t, "a-completely-different-secret-value-here", jwt.MapClaims{
		"tenant_id": "tenant-1",
		"user_id":   "user-1",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	_, err := verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerify_ExpiredToken(t *testing.T) {
	verifier := NewSessionVerifier(testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{
		"tenant_id": "tenant-1",
		"user_id":   "user-1",
		"exp":       time.Now().Add(-time.Hour).Unix(),
	})

	_, err := verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerify_MissingTenantClaims(t *testing.T) {
	verifier := NewSessionVerifier(testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	_, err := verifier.Verify(token)
	assert.Error(t, err)

	token = signToken(t, testSecret, jwt.MapClaims{
		"tenant_id": "tenant-1",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerify_ViewerCannotManage(t *testing.T) {
	verifier := NewSessionVerifier(testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{
		"tenant_id": "tenant-1",
		"user_id":   "user-1",
		"role":      "viewer",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	tc, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.False(t, tc.CanManageConnections())
}
