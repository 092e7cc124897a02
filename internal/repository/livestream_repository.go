package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/parishkit/livestream-service/internal/domain"
	"github.com/parishkit/livestream-service/pkg/database"
)

// livestreamRepository implements LivestreamRepository against PostgreSQL.
// Destinations are stored as a JSONB column so a livestream row is always
// written and read as one consistent document.
type livestreamRepository struct {
	db *database.Postgres
}

// NewLivestreamRepository creates a new livestream repository
func NewLivestreamRepository(db *database.Postgres) LivestreamRepository {
	return &livestreamRepository{db: db}
}

// Create inserts a new livestream record
func (r *livestreamRepository) Create(ctx context.Context, stream *domain.Livestream) error {
	query := `
		INSERT INTO livestreams
			(id, tenant_id, title, description, thumbnail_url, start_at, destinations, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if stream.ID == "" {
		stream.ID = uuid.New().String()
	}

	now := time.Now()
	if stream.CreatedAt.IsZero() {
		stream.CreatedAt = now
	}
	stream.UpdatedAt = now

	destinations, err := json.Marshal(stream.Destinations)
	if err != nil {
		return fmt.Errorf("failed to encode destinations: %w", err)
	}

	_, err = r.db.DB.ExecContext(ctx, query,
		stream.ID,
		stream.TenantID,
		stream.Title,
		stream.Description,
		stream.ThumbnailURL,
		stream.StartAt,
		destinations,
		stream.Status,
		stream.CreatedBy,
		stream.CreatedAt,
		stream.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("livestream %s already exists: %w", stream.ID, ErrDuplicateLivestream)
			}
		}
		return fmt.Errorf("failed to create livestream: %w", err)
	}

	return nil
}

// GetByID retrieves a livestream scoped by tenant
func (r *livestreamRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Livestream, error) {
	query := `
		SELECT id, tenant_id, title, description, thumbnail_url, start_at, destinations, status, created_by, created_at, updated_at
		FROM livestreams
		WHERE tenant_id = $1 AND id = $2
	`

	stream, err := scanLivestream(r.db.DB.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("livestream %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get livestream: %w", err)
	}

	return stream, nil
}

// GetByTenant retrieves all livestreams for a tenant
func (r *livestreamRepository) GetByTenant(ctx context.Context, tenantID string) ([]*domain.Livestream, error) {
	query := `
		SELECT id, tenant_id, title, description, thumbnail_url, start_at, destinations, status, created_by, created_at, updated_at
		FROM livestreams
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get livestreams by tenant: %w", err)
	}
	defer rows.Close()

	var streams []*domain.Livestream
	for rows.Next() {
		stream, err := scanLivestream(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan livestream: %w", err)
		}
		streams = append(streams, stream)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate livestreams: %w", err)
	}

	return streams, nil
}

// Update replaces the mutable fields of a livestream in one statement
func (r *livestreamRepository) Update(ctx context.Context, stream *domain.Livestream) error {
	query := `
		UPDATE livestreams
		SET title = $3, description = $4, thumbnail_url = $5, start_at = $6, destinations = $7, status = $8, updated_at = $9
		WHERE tenant_id = $1 AND id = $2
	`

	destinations, err := json.Marshal(stream.Destinations)
	if err != nil {
		return fmt.Errorf("failed to encode destinations: %w", err)
	}

	stream.UpdatedAt = time.Now()

	result, err := r.db.DB.ExecContext(ctx, query,
		stream.TenantID,
		stream.ID,
		stream.Title,
		stream.Description,
		stream.ThumbnailURL,
		stream.StartAt,
		destinations,
		stream.Status,
		stream.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update livestream: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("livestream %s not found: %w", stream.ID, ErrNotFound)
	}

	return nil
}

// Delete removes a livestream record
func (r *livestreamRepository) Delete(ctx context.Context, tenantID, id string) error {
	query := `DELETE FROM livestreams WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.DB.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete livestream: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("livestream %s not found: %w", id, ErrNotFound)
	}

	return nil
}

func scanLivestream(row rowScanner) (*domain.Livestream, error) {
	stream := &domain.Livestream{}
	var startAt sql.NullTime
	var destinations []byte

	err := row.Scan(
		&stream.ID,
		&stream.TenantID,
		&stream.Title,
		&stream.Description,
		&stream.ThumbnailURL,
		&startAt,
		&destinations,
		&stream.Status,
		&stream.CreatedBy,
		&stream.CreatedAt,
		&stream.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if startAt.Valid {
		stream.StartAt = &startAt.Time
	}
	if len(destinations) > 0 {
		if err := json.Unmarshal(destinations, &stream.Destinations); err != nil {
			return nil, fmt.Errorf("failed to decode destinations: %w", err)
		}
	}

	return stream, nil
}
