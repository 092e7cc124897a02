package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parishkit/livestream-service/internal/domain"
	"github.com/parishkit/livestream-service/internal/repository"
	"github.com/parishkit/livestream-service/internal/vault"
)

// ConnectionService owns the lifecycle of per-tenant platform authorizations:
// credential validation, encryption at rest via the vault, status transitions
// and hard disconnect.
type ConnectionService struct {
	repo  repository.ConnectionRepository
	vault *vault.Vault
}

// NewConnectionService creates a connection service
func NewConnectionService(repo repository.ConnectionRepository, v *vault.Vault) *ConnectionService {
	return &ConnectionService{repo: repo, vault: v}
}

// CreateConnection validates and encrypts the credentials and upserts the
// (tenant, platform) record with status connected. A second call for the same
// pair replaces the prior credentials and expiry.
func (s *ConnectionService) CreateConnection(ctx context.Context, tenantID string, platform domain.Platform, creds domain.Credentials, expiresAt *time.Time) (*domain.PlatformConnection, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id must not be empty: %w", ErrInvalidArgument)
	}
	if !platform.IsValid() {
		return nil, fmt.Errorf("platform %q: %w", platform, ErrUnsupportedPlatform)
	}
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return nil, fmt.Errorf("access and refresh tokens are required: %w", ErrInvalidCredentials)
	}

	blob, err := s.vault.Encrypt(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	conn := &domain.PlatformConnection{
		TenantID:    tenantID,
		Platform:    platform,
		Status:      domain.ConnectionConnected,
		Credentials: blob,
		ExpiresAt:   expiresAt,
	}

	if err := s.repo.Upsert(ctx, conn); err != nil {
		return nil, err
	}

	return conn, nil
}

// GetConnection returns the connection for (tenant, platform), or nil when
// none exists
func (s *ConnectionService) GetConnection(ctx context.Context, tenantID string, platform domain.Platform) (*domain.PlatformConnection, error) {
	conn, err := s.repo.GetByTenantAndPlatform(ctx, tenantID, platform)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return conn, nil
}

// GetConnections returns all connections for a tenant
func (s *ConnectionService) GetConnections(ctx context.Context, tenantID string) ([]*domain.PlatformConnection, error) {
	return s.repo.GetByTenant(ctx, tenantID)
}

// GetCredentials decrypts the stored credential blob for a connection
func (s *ConnectionService) GetCredentials(conn *domain.PlatformConnection) (domain.Credentials, error) {
	return s.vault.Decrypt(conn.Credentials)
}

// UpdateConnectionStatus transitions the connection status. Transitions into
// error must carry a message, which is recorded with a timestamp.
func (s *ConnectionService) UpdateConnectionStatus(ctx context.Context, tenantID string, platform domain.Platform, status domain.ConnectionStatus, errorMessage string) (*domain.PlatformConnection, error) {
	var lastError *string
	if status == domain.ConnectionError {
		if errorMessage == "" {
			errorMessage = "unknown error"
		}
		lastError = &errorMessage
	}

	return s.repo.UpdateStatus(ctx, tenantID, platform, status, lastError)
}

// DisconnectPlatform deletes the connection record entirely; a subsequent
// GetConnection returns nil until a new authorization recreates it
func (s *ConnectionService) DisconnectPlatform(ctx context.Context, tenantID string, platform domain.Platform) error {
	return s.repo.Delete(ctx, tenantID, platform)
}

// IsConnectionExpired reports whether the connection's expiry is in the past.
// Connections without an expiry are never expired by this check.
func (s *ConnectionService) IsConnectionExpired(ctx context.Context, tenantID string, platform domain.Platform) (bool, error) {
	conn, err := s.repo.GetByTenantAndPlatform(ctx, tenantID, platform)
	if err != nil {
		return false, err
	}
	return conn.IsExpired(time.Now()), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
