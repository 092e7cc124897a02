package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/parishkit/livestream-service/internal/domain"
)

const (
	zoomBaseURL = "https://api.zoom.us/v2"
	zoomTimeout = 10 * time.Second
)

// ZoomAdapter maps the adapter contract onto Zoom meetings with livestream
// enabled. Zoom is a single-destination platform, so the destination list is
// the authenticated account itself.
type ZoomAdapter struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

// NewZoomAdapter creates a Zoom adapter for a tenant's access token
func NewZoomAdapter(accessToken string, opts Options) (*ZoomAdapter, error) {
	if accessToken == "" {
		return nil, ErrMissingToken
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = zoomBaseURL
	}

	return &ZoomAdapter{
		accessToken: accessToken,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		client:      &http.Client{Timeout: zoomTimeout},
	}, nil
}

type zoomMeeting struct {
	ID     string `json:"id"`
	Topic  string `json:"topic"`
	Agenda string `json:"agenda"`
	Status string `json:"status"`
}

func (m zoomMeeting) toLivestream() *Livestream {
	return &Livestream{
		ID:          m.ID,
		Title:       m.Topic,
		Description: m.Agenda,
		Status:      m.Status,
	}
}

// CreateLivestream schedules a Zoom meeting for the broadcast
func (a *ZoomAdapter) CreateLivestream(ctx context.Context, input CreateInput) (*Livestream, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("title must not be empty: %w", ErrValidation)
	}

	payload := map[string]any{
		"topic":  input.Title,
		"agenda": input.Description,
		"type":   2, // scheduled meeting
	}

	var meeting zoomMeeting
	if err := a.do(ctx, http.MethodPost, "/users/me/meetings", payload, &meeting); err != nil {
		return nil, err
	}

	return meeting.toLivestream(), nil
}

// StartLivestream starts the meeting's livestream
func (a *ZoomAdapter) StartLivestream(ctx context.Context, id string) (*Livestream, error) {
	if id == "" {
		return nil, fmt.Errorf("livestream id must not be empty: %w", ErrNotFound)
	}

	payload := map[string]any{"action": "start"}
	if err := a.do(ctx, http.MethodPatch, "/meetings/"+id+"/livestream/status", payload, nil); err != nil {
		return nil, err
	}

	return &Livestream{ID: id, Status: "active"}, nil
}

// StopLivestream stops the meeting's livestream
func (a *ZoomAdapter) StopLivestream(ctx context.Context, id string) (*Livestream, error) {
	if id == "" {
		return nil, fmt.Errorf("livestream id must not be empty: %w", ErrNotFound)
	}

	payload := map[string]any{"action": "stop"}
	if err := a.do(ctx, http.MethodPatch, "/meetings/"+id+"/livestream/status", payload, nil); err != nil {
		return nil, err
	}

	return &Livestream{ID: id, Status: "stopped"}, nil
}

// UpdateLivestream merge-patches the meeting topic/agenda
func (a *ZoomAdapter) UpdateLivestream(ctx context.Context, id string, input UpdateInput) (*Livestream, error) {
	if id == "" {
		return nil, fmt.Errorf("livestream id must not be empty: %w", ErrNotFound)
	}

	payload := map[string]any{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, fmt.Errorf("title must not be empty: %w", ErrValidation)
		}
		payload["topic"] = *input.Title
	}
	if input.Description != nil {
		payload["agenda"] = *input.Description
	}

	if err := a.do(ctx, http.MethodPatch, "/meetings/"+id, payload, nil); err != nil {
		return nil, err
	}

	return a.GetLivestream(ctx, id)
}

// DeleteLivestream removes the meeting
func (a *ZoomAdapter) DeleteLivestream(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("livestream id must not be empty: %w", ErrNotFound)
	}
	return a.do(ctx, http.MethodDelete, "/meetings/"+id, nil, nil)
}

// GetLivestream fetches the meeting record
func (a *ZoomAdapter) GetLivestream(ctx context.Context, id string) (*Livestream, error) {
	if id == "" {
		return nil, fmt.Errorf("livestream id must not be empty: %w", ErrNotFound)
	}

	var meeting zoomMeeting
	if err := a.do(ctx, http.MethodGet, "/meetings/"+id, nil, &meeting); err != nil {
		return nil, err
	}

	return meeting.toLivestream(), nil
}

// ListDestinations returns the authenticated Zoom account as the only target
func (a *ZoomAdapter) ListDestinations(ctx context.Context) ([]Destination, error) {
	var user struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}
	if err := a.do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}

	return []Destination{{
		ID:       user.ID,
		Name:     user.DisplayName,
		Platform: string(domain.PlatformZoom),
		Enabled:  true,
	}}, nil
}

// GetDestinationDetails describes one Zoom user target
func (a *ZoomAdapter) GetDestinationDetails(ctx context.Context, id string) (*Destination, error) {
	if id == "" {
		return nil, fmt.Errorf("destination id must not be empty: %w", ErrNotFound)
	}

	var user struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}
	if err := a.do(ctx, http.MethodGet, "/users/"+id, nil, &user); err != nil {
		return nil, err
	}

	return &Destination{
		ID:       user.ID,
		Name:     user.DisplayName,
		Platform: string(domain.PlatformZoom),
		Enabled:  true,
	}, nil
}

func (a *ZoomAdapter) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode zoom request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build zoom request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return &APIError{Platform: domain.PlatformZoom, StatusCode: 0, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := readVendorError(resp.Body)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("zoom: %s: %w", message, ErrNotFound)
		}
		return &APIError{Platform: domain.PlatformZoom, StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Platform: domain.PlatformZoom, StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	return nil
}
