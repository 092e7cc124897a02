package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parishkit/livestream-service/internal/domain"
	"github.com/parishkit/livestream-service/pkg/database"
)

// connectionRepository implements ConnectionRepository against PostgreSQL
type connectionRepository struct {
	db *database.Postgres
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *database.Postgres) ConnectionRepository {
	return &connectionRepository{db: db}
}

// Upsert inserts or fully replaces the connection for (tenant, platform).
// The encrypted blob, status and expiry are written in a single statement.
func (r *connectionRepository) Upsert(ctx context.Context, conn *domain.PlatformConnection) error {
	query := `
		INSERT INTO platform_connections
			(id, tenant_id, platform, status, credentials, expires_at, last_error, last_error_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, NULL, $7, $8)
		ON CONFLICT (tenant_id, platform) DO UPDATE SET
			status        = EXCLUDED.status,
			credentials   = EXCLUDED.credentials,
			expires_at    = EXCLUDED.expires_at,
			last_error    = NULL,
			last_error_at = NULL,
			updated_at    = EXCLUDED.updated_at
	`

	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}

	now := time.Now()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	_, err := r.db.DB.ExecContext(ctx, query,
		conn.ID,
		conn.TenantID,
		conn.Platform,
		conn.Status,
		conn.Credentials,
		conn.ExpiresAt,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}

	return nil
}

// GetByTenantAndPlatform retrieves the connection for a (tenant, platform) pair
func (r *connectionRepository) GetByTenantAndPlatform(ctx context.Context, tenantID string, platform domain.Platform) (*domain.PlatformConnection, error) {
	query := `
		SELECT id, tenant_id, platform, status, credentials, expires_at, last_error, last_error_at, created_at, updated_at
		FROM platform_connections
		WHERE tenant_id = $1 AND platform = $2
	`

	conn, err := scanConnection(r.db.DB.QueryRowContext(ctx, query, tenantID, platform))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("connection for platform %s not found: %w", platform, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return conn, nil
}

// GetByTenant retrieves all connections for a tenant
func (r *connectionRepository) GetByTenant(ctx context.Context, tenantID string) ([]*domain.PlatformConnection, error) {
	query := `
		SELECT id, tenant_id, platform, status, credentials, expires_at, last_error, last_error_at, created_at, updated_at
		FROM platform_connections
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get connections by tenant: %w", err)
	}
	defer rows.Close()

	var conns []*domain.PlatformConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}

	return conns, nil
}

// UpdateStatus transitions the connection status. When lastError is non-nil
// it is recorded together with a timestamp; otherwise both are cleared.
func (r *connectionRepository) UpdateStatus(ctx context.Context, tenantID string, platform domain.Platform, status domain.ConnectionStatus, lastError *string) (*domain.PlatformConnection, error) {
	query := `
		UPDATE platform_connections
		SET status = $3, last_error = $4, last_error_at = $5, updated_at = $6
		WHERE tenant_id = $1 AND platform = $2
		RETURNING id, tenant_id, platform, status, credentials, expires_at, last_error, last_error_at, created_at, updated_at
	`

	var errorAt *time.Time
	if lastError != nil {
		now := time.Now()
		errorAt = &now
	}

	conn, err := scanConnection(r.db.DB.QueryRowContext(ctx, query, tenantID, platform, status, lastError, errorAt, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("connection for platform %s not found: %w", platform, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update connection status: %w", err)
	}

	return conn, nil
}

// Delete removes the connection record entirely
func (r *connectionRepository) Delete(ctx context.Context, tenantID string, platform domain.Platform) error {
	query := `DELETE FROM platform_connections WHERE tenant_id = $1 AND platform = $2`

	result, err := r.db.DB.ExecContext(ctx, query, tenantID, platform)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("connection for platform %s not found: %w", platform, ErrNotFound)
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*domain.PlatformConnection, error) {
	conn := &domain.PlatformConnection{}
	var expiresAt, lastErrorAt sql.NullTime
	var lastError sql.NullString

	err := row.Scan(
		&conn.ID,
		&conn.TenantID,
		&conn.Platform,
		&conn.Status,
		&conn.Credentials,
		&expiresAt,
		&lastError,
		&lastErrorAt,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		conn.ExpiresAt = &expiresAt.Time
	}
	if lastError.Valid {
		conn.LastError = &lastError.String
	}
	if lastErrorAt.Valid {
		conn.LastErrorAt = &lastErrorAt.Time
	}

	return conn, nil
}
