package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/parishkit/livestream-service/internal/domain"
	"github.com/parishkit/livestream-service/internal/dto"
	"github.com/parishkit/livestream-service/internal/utils"
)

const tenantContextKey = "tenant_context"

// TenantMiddleware validates the surrounding application's session token and
// places an explicit TenantContext into the request context
func TenantMiddleware(verifier *utils.SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authorization header is required",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		tc, err := verifier.Verify(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid or expired session token",
			})
			c.Abort()
			return
		}

		c.Set(tenantContextKey, tc)
		c.Next()
	}
}

// RequireManagerRole rejects users who may not manage platform connections
// and livestreams for their tenant
func RequireManagerRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, ok := TenantFromContext(c)
		if !ok || !tc.CanManageConnections() {
			c.JSON(http.StatusForbidden, dto.ErrorResponse{
				Error:   "Forbidden",
				Message: "Insufficient role to manage platform connections",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// TenantFromContext extracts the tenant context placed by TenantMiddleware
func TenantFromContext(c *gin.Context) (domain.TenantContext, bool) {
	value, exists := c.Get(tenantContextKey)
	if !exists {
		return domain.TenantContext{}, false
	}
	tc, ok := value.(domain.TenantContext)
	return tc, ok
}
