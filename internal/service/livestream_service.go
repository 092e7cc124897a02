package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/parishkit/livestream-service/internal/domain"
	"github.com/parishkit/livestream-service/internal/platform"
	"github.com/parishkit/livestream-service/internal/repository"
	"go.uber.org/zap"
)

// LivestreamService is the top-level orchestrator: it resolves live
// connections for each requested destination, drives the matching adapters
// and aggregates per-destination outcomes into one livestream record.
type LivestreamService struct {
	streams     repository.LivestreamRepository
	connections *ConnectionService
	oauth       *OAuthService
	adapters    platform.Factory
	logger      *zap.Logger
}

// NewLivestreamService creates the orchestrator
func NewLivestreamService(
	streams repository.LivestreamRepository,
	connections *ConnectionService,
	oauth *OAuthService,
	adapters platform.Factory,
	logger *zap.Logger,
) *LivestreamService {
	return &LivestreamService{
		streams:     streams,
		connections: connections,
		oauth:       oauth,
		adapters:    adapters,
		logger:      logger,
	}
}

// CreateLivestreamInput is the tenant's broadcast intent
type CreateLivestreamInput struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	ThumbnailURL string            `json:"thumbnail_url"`
	StartAt      *time.Time        `json:"start_at"`
	Platforms    []domain.Platform `json:"platforms"`
}

// UpdateLivestreamInput is a merge-patch; nil fields are preserved unchanged
type UpdateLivestreamInput struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	ThumbnailURL *string    `json:"thumbnail_url"`
	StartAt      *time.Time `json:"start_at"`
}

// CreateLivestream fans a broadcast out to every requested platform. Every
// platform must have a connection before anything is created or persisted;
// a missing connection fails the whole call so a half-published broadcast
// never exists. Adapter failures after that point degrade the livestream
// rather than aborting it.
func (s *LivestreamService) CreateLivestream(ctx context.Context, tc domain.TenantContext, input CreateLivestreamInput) (*domain.Livestream, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("title must not be empty: %w", ErrInvalidArgument)
	}
	if len(input.Platforms) == 0 {
		return nil, fmt.Errorf("at least one platform is required: %w", ErrInvalidArgument)
	}
	for _, p := range input.Platforms {
		if !p.IsValid() {
			return nil, fmt.Errorf("platform %q: %w", p, ErrUnsupportedPlatform)
		}
	}

	// All-or-nothing connection resolution before any vendor call.
	tokens := make(map[domain.Platform]string, len(input.Platforms))
	for _, p := range input.Platforms {
		conn, err := s.connections.GetConnection(ctx, tc.TenantID, p)
		if err != nil {
			return nil, err
		}
		if conn == nil || conn.Status == domain.ConnectionDisconnected {
			return nil, &MissingConnectionError{Platform: p}
		}

		token, err := s.resolveAccessToken(ctx, tc.TenantID, conn)
		if err != nil {
			s.logger.Warn("failed to resolve access token",
				zap.String("tenant_id", tc.TenantID),
				zap.String("platform", string(p)),
				zap.Error(err),
			)
			tokens[p] = "" // destination will be recorded as errored
			continue
		}
		tokens[p] = token
	}

	destinations := make([]domain.Destination, 0, len(input.Platforms))
	for _, p := range input.Platforms {
		destinations = append(destinations, s.createDestination(ctx, p, tokens[p], input))
	}

	stream := &domain.Livestream{
		TenantID:     tc.TenantID,
		Title:        input.Title,
		Description:  input.Description,
		ThumbnailURL: input.ThumbnailURL,
		StartAt:      input.StartAt,
		Destinations: destinations,
		Status:       domain.AggregateStatus(destinations, domain.DestinationCreated, domain.LivestreamReady, domain.LivestreamDegraded),
		CreatedBy:    tc.UserID,
	}

	if err := s.streams.Create(ctx, stream); err != nil {
		return nil, err
	}

	return stream, nil
}

// createDestination drives one adapter create and normalizes the outcome
func (s *LivestreamService) createDestination(ctx context.Context, p domain.Platform, token string, input CreateLivestreamInput) domain.Destination {
	dest := domain.Destination{Platform: p, Status: domain.DestinationError}

	if token == "" {
		dest.Error = "connection is not usable; reconnect the platform"
		return dest
	}

	adapter, err := s.adapters.NewAdapter(p, token)
	if err != nil {
		dest.Error = err.Error()
		return dest
	}

	created, err := adapter.CreateLivestream(ctx, platform.CreateInput{
		Title:       input.Title,
		Description: input.Description,
		Platforms:   []string{string(p)},
	})
	if err != nil {
		s.logger.Warn("destination create failed",
			zap.String("platform", string(p)),
			zap.Error(err),
		)
		dest.Error = err.Error()
		return dest
	}

	dest.DestinationID = created.ID
	dest.Status = domain.DestinationCreated
	dest.Error = ""
	return dest
}

// StartLivestream starts every created destination of the broadcast
func (s *LivestreamService) StartLivestream(ctx context.Context, tc domain.TenantContext, id string) (*domain.Livestream, error) {
	return s.transition(ctx, tc, id, domain.DestinationActive, domain.LivestreamActive,
		func(ctx context.Context, adapter platform.Adapter, destID string) error {
			_, err := adapter.StartLivestream(ctx, destID)
			return err
		})
}

// StopLivestream stops every destination of the broadcast
func (s *LivestreamService) StopLivestream(ctx context.Context, tc domain.TenantContext, id string) (*domain.Livestream, error) {
	return s.transition(ctx, tc, id, domain.DestinationStopped, domain.LivestreamStopped,
		func(ctx context.Context, adapter platform.Adapter, destID string) error {
			_, err := adapter.StopLivestream(ctx, destID)
			return err
		})
}

// transition drives one adapter operation across all destinations and
// recomputes the aggregate status
func (s *LivestreamService) transition(
	ctx context.Context,
	tc domain.TenantContext,
	id string,
	healthy domain.DestinationStatus,
	all domain.LivestreamStatus,
	op func(ctx context.Context, adapter platform.Adapter, destID string) error,
) (*domain.Livestream, error) {
	stream, err := s.streams.GetByID(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}

	for i := range stream.Destinations {
		dest := &stream.Destinations[i]
		if dest.DestinationID == "" {
			dest.Status = domain.DestinationError
			if dest.Error == "" {
				dest.Error = "destination was never created"
			}
			continue
		}

		adapter, err := s.adapterFor(ctx, tc.TenantID, dest.Platform)
		if err != nil {
			dest.Status = domain.DestinationError
			dest.Error = err.Error()
			continue
		}

		if err := op(ctx, adapter, dest.DestinationID); err != nil {
			s.logger.Warn("destination transition failed",
				zap.String("livestream_id", id),
				zap.String("platform", string(dest.Platform)),
				zap.Error(err),
			)
			dest.Status = domain.DestinationError
			dest.Error = err.Error()
			continue
		}

		dest.Status = healthy
		dest.Error = ""
	}

	stream.Status = domain.AggregateStatus(stream.Destinations, healthy, all, domain.LivestreamDegraded)

	if err := s.streams.Update(ctx, stream); err != nil {
		return nil, err
	}

	return stream, nil
}

// UpdateLivestream merge-patches the record and pushes title/description
// changes to every created destination. Unsupplied fields are preserved.
func (s *LivestreamService) UpdateLivestream(ctx context.Context, tc domain.TenantContext, id string, input UpdateLivestreamInput) (*domain.Livestream, error) {
	stream, err := s.streams.GetByID(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, fmt.Errorf("title must not be empty: %w", ErrInvalidArgument)
		}
		stream.Title = *input.Title
	}
	if input.Description != nil {
		stream.Description = *input.Description
	}
	if input.ThumbnailURL != nil {
		stream.ThumbnailURL = *input.ThumbnailURL
	}
	if input.StartAt != nil {
		stream.StartAt = input.StartAt
	}

	if input.Title != nil || input.Description != nil {
		for i := range stream.Destinations {
			dest := &stream.Destinations[i]
			if dest.DestinationID == "" {
				continue
			}

			adapter, err := s.adapterFor(ctx, tc.TenantID, dest.Platform)
			if err != nil {
				dest.Error = err.Error()
				continue
			}

			_, err = adapter.UpdateLivestream(ctx, dest.DestinationID, platform.UpdateInput{
				Title:       input.Title,
				Description: input.Description,
			})
			if err != nil {
				s.logger.Warn("destination update failed",
					zap.String("livestream_id", id),
					zap.String("platform", string(dest.Platform)),
					zap.Error(err),
				)
				dest.Error = err.Error()
			}
		}
	}

	if err := s.streams.Update(ctx, stream); err != nil {
		return nil, err
	}

	return stream, nil
}

// DeleteLivestream removes the broadcast. Vendor-side events are deleted on a
// best-effort basis; the local record is removed regardless so the tenant is
// never stuck with an undeletable livestream.
func (s *LivestreamService) DeleteLivestream(ctx context.Context, tc domain.TenantContext, id string) error {
	stream, err := s.streams.GetByID(ctx, tc.TenantID, id)
	if err != nil {
		return err
	}

	for _, dest := range stream.Destinations {
		if dest.DestinationID == "" {
			continue
		}

		adapter, err := s.adapterFor(ctx, tc.TenantID, dest.Platform)
		if err != nil {
			s.logger.Warn("skipping vendor-side delete",
				zap.String("livestream_id", id),
				zap.String("platform", string(dest.Platform)),
				zap.Error(err),
			)
			continue
		}

		if err := adapter.DeleteLivestream(ctx, dest.DestinationID); err != nil {
			s.logger.Warn("destination delete failed",
				zap.String("livestream_id", id),
				zap.String("platform", string(dest.Platform)),
				zap.Error(err),
			)
		}
	}

	return s.streams.Delete(ctx, tc.TenantID, id)
}

// GetLivestream returns one livestream scoped to the tenant
func (s *LivestreamService) GetLivestream(ctx context.Context, tc domain.TenantContext, id string) (*domain.Livestream, error) {
	return s.streams.GetByID(ctx, tc.TenantID, id)
}

// ListLivestreams returns all of the tenant's livestreams
func (s *LivestreamService) ListLivestreams(ctx context.Context, tc domain.TenantContext) ([]*domain.Livestream, error) {
	return s.streams.GetByTenant(ctx, tc.TenantID)
}

// SetThumbnail records an uploaded thumbnail URL on the livestream
func (s *LivestreamService) SetThumbnail(ctx context.Context, tc domain.TenantContext, id, thumbnailURL string) (*domain.Livestream, error) {
	stream, err := s.streams.GetByID(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}

	stream.ThumbnailURL = thumbnailURL
	if err := s.streams.Update(ctx, stream); err != nil {
		return nil, err
	}

	return stream, nil
}

// adapterFor builds an adapter with the tenant's current access token
func (s *LivestreamService) adapterFor(ctx context.Context, tenantID string, p domain.Platform) (platform.Adapter, error) {
	conn, err := s.connections.GetConnection(ctx, tenantID, p)
	if err != nil {
		return nil, err
	}
	if conn == nil || conn.Status == domain.ConnectionDisconnected {
		return nil, &MissingConnectionError{Platform: p}
	}

	token, err := s.resolveAccessToken(ctx, tenantID, conn)
	if err != nil {
		return nil, err
	}

	return s.adapters.NewAdapter(p, token)
}

// resolveAccessToken decrypts the connection's access token, refreshing it
// first when expired
func (s *LivestreamService) resolveAccessToken(ctx context.Context, tenantID string, conn *domain.PlatformConnection) (string, error) {
	if conn.IsExpired(time.Now()) {
		token, err := s.oauth.RefreshAccessToken(ctx, tenantID, conn.Platform)
		if err != nil {
			return "", err
		}
		return token, nil
	}

	creds, err := s.connections.GetCredentials(conn)
	if err != nil {
		return "", err
	}
	return creds.AccessToken, nil
}
