package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parishkit/livestream-service/internal/domain"
	"github.com/parishkit/livestream-service/internal/dto"
	"github.com/parishkit/livestream-service/internal/repository"
	"github.com/parishkit/livestream-service/internal/service"
)

// ConnectionHandler exposes platform connection management over HTTP
type ConnectionHandler struct {
	oauth       *service.OAuthService
	connections *service.ConnectionService
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(oauth *service.OAuthService, connections *service.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{
		oauth:       oauth,
		connections: connections,
	}
}

// Authorize starts the OAuth flow for a platform and returns the vendor
// authorization URL the admin should be redirected to
func (h *ConnectionHandler) Authorize(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	platform := domain.Platform(c.Param("platform"))
	if !platform.IsValid() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "Unknown platform: " + c.Param("platform"),
		})
		return
	}

	req, err := h.oauth.BuildAuthorizationURL(c.Request.Context(), tc.TenantID, platform)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Callback completes the OAuth flow after the vendor redirects back
func (h *ConnectionHandler) Callback(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	platform := domain.Platform(c.Param("platform"))
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "code and state query parameters are required",
		})
		return
	}

	result, err := h.oauth.HandleOAuthCallback(c.Request.Context(), tc.TenantID, platform, code, state)
	if err != nil {
		if errors.Is(err, service.ErrInvalidState) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Invalid state",
				Message: "Authorization state is invalid or expired; restart the connect flow",
			})
			return
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// List returns the tenant's platform connections
func (h *ConnectionHandler) List(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	conns, err := h.connections.GetConnections(c.Request.Context(), tc.TenantID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	responses := make([]dto.ConnectionResponse, 0, len(conns))
	for _, conn := range conns {
		responses = append(responses, toConnectionResponse(conn))
	}

	c.JSON(http.StatusOK, responses)
}

// Disconnect deletes the tenant's connection to a platform
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	platform := domain.Platform(c.Param("platform"))

	if err := h.connections.DisconnectPlatform(c.Request.Context(), tc.TenantID, platform); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Platform disconnected",
	})
}

func toConnectionResponse(conn *domain.PlatformConnection) dto.ConnectionResponse {
	resp := dto.ConnectionResponse{
		Platform:  string(conn.Platform),
		Status:    string(conn.Status),
		LastError: conn.LastError,
		CreatedAt: conn.CreatedAt.Format(time.RFC3339),
		UpdatedAt: conn.UpdatedAt.Format(time.RFC3339),
	}
	if conn.ExpiresAt != nil {
		expires := conn.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &expires
	}
	if conn.LastErrorAt != nil {
		errorAt := conn.LastErrorAt.Format(time.RFC3339)
		resp.LastErrorAt = &errorAt
	}
	return resp
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error:   "Unauthorized",
		Message: "Tenant context not found",
	})
}

// respondServiceError maps service errors to HTTP statuses
func respondServiceError(c *gin.Context, err error) {
	var missing *service.MissingConnectionError

	switch {
	case errors.As(err, &missing):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "Missing connection",
			Message: err.Error(),
			Details: gin.H{"platform": string(missing.Platform)},
		})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not found",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnsupportedPlatform):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrRefresh):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Refresh failed",
			Message: "Token refresh was rejected; reconnect this platform",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
	}
}
