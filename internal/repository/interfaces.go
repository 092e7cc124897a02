package repository

import (
	"context"

	"github.com/parishkit/livestream-service/internal/domain"
)

// ConnectionRepository defines storage operations for platform connections.
// Upsert must replace the whole record atomically so the encrypted blob,
// status and expiry written together are never observed split.
type ConnectionRepository interface {
	Upsert(ctx context.Context, conn *domain.PlatformConnection) error
	GetByTenantAndPlatform(ctx context.Context, tenantID string, platform domain.Platform) (*domain.PlatformConnection, error)
	GetByTenant(ctx context.Context, tenantID string) ([]*domain.PlatformConnection, error)
	UpdateStatus(ctx context.Context, tenantID string, platform domain.Platform, status domain.ConnectionStatus, lastError *string) (*domain.PlatformConnection, error)
	Delete(ctx context.Context, tenantID string, platform domain.Platform) error
}

// LivestreamRepository defines storage operations for livestream records
type LivestreamRepository interface {
	Create(ctx context.Context, stream *domain.Livestream) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Livestream, error)
	GetByTenant(ctx context.Context, tenantID string) ([]*domain.Livestream, error)
	Update(ctx context.Context, stream *domain.Livestream) error
	Delete(ctx context.Context, tenantID, id string) error
}
