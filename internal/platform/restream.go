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
	restreamBaseURL = "https://api.restream.io/v2"
	restreamTimeout = 10 * time.Second
)

// RestreamAdapter drives the Restream aggregator API. Restream fans a single
// ingest out to multiple platforms itself, so one event carries the full
// platform list.
type RestreamAdapter struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

// NewRestreamAdapter creates a Restream adapter for a tenant's access token
func NewRestreamAdapter(accessToken string, opts Options) (*RestreamAdapter, error) {
	if accessToken == "" {
		return nil, ErrMissingToken
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = restreamBaseURL
	}

	return &RestreamAdapter{
		accessToken: accessToken,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		client:      &http.Client{Timeout: restreamTimeout},
	}, nil
}

// restreamEvent is the vendor wire shape for a scheduled broadcast
type restreamEvent struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Platforms   []string `json:"platforms"`
}

// restreamChannel is the vendor wire shape for a configured destination
type restreamChannel struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Platform    string `json:"platform"`
	URL         string `json:"url"`
	Enabled     bool   `json:"enabled"`
}

func (e restreamEvent) toLivestream() *Livestream {
	return &Livestream{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Status:      e.Status,
		Platforms:   e.Platforms,
	}
}

func (c restreamChannel) toDestination() Destination {
	return Destination{
		ID:       c.ID,
		Name:     c.DisplayName,
		Platform: c.Platform,
		URL:      c.URL,
		Enabled:  c.Enabled,
	}
}

// CreateLivestream creates a Restream event targeting the named platforms
func (a *RestreamAdapter) CreateLivestream(ctx context.Context, input CreateInput) (*Livestream, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("title must not be empty: %w", ErrValidation)
	}

	payload := map[string]any{
		"title":       input.Title,
		"description": input.Description,
		"platforms":   input.Platforms,
	}

	var event restreamEvent
	if err := a.do(ctx, http.MethodPost, "/user/events", payload, &event); err != nil {
		return nil, err
	}

	return event.toLivestream(), nil
}

// StartLivestream transitions the event to active
func (a *RestreamAdapter) StartLivestream(ctx context.Context, id string) (*Livestream, error) {
	if id == "" {
		return nil, fmt.Errorf("livestream id must not be empty: %w", ErrNotFound)
	}

	var event restreamEvent
	if err := a.do(ctx, http.MethodPost, "/user/events/"+id+"/start", nil, &event); err != nil {
		return nil, err
	}

	return event.toLivestream(), nil
}

// StopLivestream transitions the event to stopped
func (a *RestreamAdapter) StopLivestream(ctx context.Context, id string) (*Livestream, error) {
	if id == "" {
		return nil, fmt.Errorf("livestream id must not be empty: %w", ErrNotFound)
	}

	var event restreamEvent
	if err := a.do(ctx, http.MethodPost, "/user/events/"+id+"/stop", nil, &event); err != nil {
		return nil, err
	}

	return event.toLivestream(), nil
}

// UpdateLivestream merge-patches the event: only supplied fields are sent,
// the vendor preserves the rest.
func (a *RestreamAdapter) UpdateLivestream(ctx context.Context, id string, input UpdateInput) (*Livestream, error) {
	if id == "" {
		return nil, fmt.Errorf("livestream id must not be empty: %w", ErrNotFound)
	}

	payload := map[string]any{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, fmt.Errorf("title must not be empty: %w", ErrValidation)
		}
		payload["title"] = *input.Title
	}
	if input.Description != nil {
		payload["description"] = *input.Description
	}

	var event restreamEvent
	if err := a.do(ctx, http.MethodPatch, "/user/events/"+id, payload, &event); err != nil {
		return nil, err
	}

	return event.toLivestream(), nil
}

// DeleteLivestream removes the event
func (a *RestreamAdapter) DeleteLivestream(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("livestream id must not be empty: %w", ErrNotFound)
	}
	return a.do(ctx, http.MethodDelete, "/user/events/"+id, nil, nil)
}

// GetLivestream fetches the full event record
func (a *RestreamAdapter) GetLivestream(ctx context.Context, id string) (*Livestream, error) {
	if id == "" {
		return nil, fmt.Errorf("livestream id must not be empty: %w", ErrNotFound)
	}

	var event restreamEvent
	if err := a.do(ctx, http.MethodGet, "/user/events/"+id, nil, &event); err != nil {
		return nil, err
	}

	return event.toLivestream(), nil
}

// ListDestinations lists the tenant's configured Restream channels
func (a *RestreamAdapter) ListDestinations(ctx context.Context) ([]Destination, error) {
	var channels []restreamChannel
	if err := a.do(ctx, http.MethodGet, "/user/channel/all", nil, &channels); err != nil {
		return nil, err
	}

	destinations := make([]Destination, 0, len(channels))
	for _, c := range channels {
		destinations = append(destinations, c.toDestination())
	}

	return destinations, nil
}

// GetDestinationDetails describes one channel
func (a *RestreamAdapter) GetDestinationDetails(ctx context.Context, id string) (*Destination, error) {
	if id == "" {
		return nil, fmt.Errorf("destination id must not be empty: %w", ErrNotFound)
	}

	var channel restreamChannel
	if err := a.do(ctx, http.MethodGet, "/user/channel/"+id, nil, &channel); err != nil {
		return nil, err
	}

	dest := channel.toDestination()
	return &dest, nil
}

// do performs an authenticated JSON round trip against the Restream API.
// Network failures and malformed responses surface as typed errors with a
// populated message.
func (a *RestreamAdapter) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode restream request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build restream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return &APIError{Platform: domain.PlatformRestream, StatusCode: 0, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := readVendorError(resp.Body)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("restream: %s: %w", message, ErrNotFound)
		}
		return &APIError{Platform: domain.PlatformRestream, StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Platform: domain.PlatformRestream, StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	return nil
}

// readVendorError pulls a human-readable message out of a vendor error body
func readVendorError(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}

	return strings.TrimSpace(string(raw))
}
