package utils

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/parishkit/livestream-service/internal/domain"
)

// SessionVerifier validates session tokens issued by the surrounding
// application and extracts the explicit tenant context from them. This
// service never issues tokens itself.
type SessionVerifier struct {
	secret []byte
}

// NewSessionVerifier creates a verifier sharing the application's secret
func NewSessionVerifier(secret string) *SessionVerifier {
	return &SessionVerifier{secret: []byte(secret)}
}

// Verify parses and validates a session token and returns the tenant context
func (v *SessionVerifier) Verify(tokenString string) (domain.TenantContext, error) {
	var tc domain.TenantContext

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return tc, fmt.Errorf("failed to parse session token: %w", err)
	}
	if !token.Valid {
		return tc, fmt.Errorf("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return tc, fmt.Errorf("invalid session token claims")
	}

	tenantID, ok := claims["tenant_id"].(string)
	if !ok || tenantID == "" {
		return tc, fmt.Errorf("invalid tenant_id in session token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return tc, fmt.Errorf("invalid user_id in session token")
	}

	role, _ := claims["role"].(string)

	tc.TenantID = tenantID
	tc.UserID = userID
	tc.Role = role
	return tc, nil
}
