package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/parishkit/livestream-service/internal/domain"
)

// Adapter is the single contract every streaming destination implements.
// It normalizes heterogeneous vendor REST APIs into one surface; adding a
// vendor means writing one adapter, never touching the orchestrator.
type Adapter interface {
	CreateLivestream(ctx context.Context, input CreateInput) (*Livestream, error)
	StartLivestream(ctx context.Context, id string) (*Livestream, error)
	StopLivestream(ctx context.Context, id string) (*Livestream, error)
	UpdateLivestream(ctx context.Context, id string, input UpdateInput) (*Livestream, error)
	DeleteLivestream(ctx context.Context, id string) error
	GetLivestream(ctx context.Context, id string) (*Livestream, error)
	ListDestinations(ctx context.Context) ([]Destination, error)
	GetDestinationDetails(ctx context.Context, id string) (*Destination, error)
}

// CreateInput are the fields needed to create a vendor-side livestream
type CreateInput struct {
	Title       string
	Description string
	Platforms   []string
}

// UpdateInput is a merge-patch: nil fields are left unchanged
type UpdateInput struct {
	Title       *string
	Description *string
}

// Livestream is the normalized vendor-side broadcast record
type Livestream struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Platforms   []string `json:"platforms,omitempty"`
}

// Destination is a vendor-side streaming target
type Destination struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform,omitempty"`
	URL      string `json:"url,omitempty"`
	Enabled  bool   `json:"enabled"`
}

var (
	// ErrValidation is returned for adapter-level input rejection
	ErrValidation = errors.New("invalid livestream input")

	// ErrNotFound is returned when the vendor does not know the resource
	ErrNotFound = errors.New("vendor resource not found")

	// ErrMissingToken is returned when an adapter is constructed without credentials
	ErrMissingToken = errors.New("access token is required")
)

// APIError carries a vendor failure with an always-populated message
type APIError struct {
	Platform   domain.Platform
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Platform, e.StatusCode, e.Message)
}

// Options tune adapter construction. BaseURL overrides the vendor endpoint,
// which tests use to point adapters at a local server.
type Options struct {
	BaseURL string
}

// Factory builds adapters for platforms using a tenant's access token
type Factory interface {
	NewAdapter(platform domain.Platform, accessToken string) (Adapter, error)
}

type factory struct {
	opts map[domain.Platform]Options
}

// NewFactory creates the default adapter factory. Per-platform options are
// optional; unset platforms use vendor defaults.
func NewFactory(opts map[domain.Platform]Options) Factory {
	if opts == nil {
		opts = map[domain.Platform]Options{}
	}
	return &factory{opts: opts}
}

// NewAdapter builds the adapter for a platform. Fails fast on an empty
// access token rather than on first call.
func (f *factory) NewAdapter(platform domain.Platform, accessToken string) (Adapter, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("adapter for %s: %w", platform, ErrMissingToken)
	}

	switch platform {
	case domain.PlatformRestream:
		return NewRestreamAdapter(accessToken, f.opts[platform])
	case domain.PlatformZoom:
		return NewZoomAdapter(accessToken, f.opts[platform])
	default:
		return nil, fmt.Errorf("no adapter registered for platform %s", platform)
	}
}
