package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parishkit/livestream-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRestreamTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *RestreamAdapter) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewRestreamAdapter("test-token", Options{BaseURL: server.URL})
	require.NoError(t, err)

	return server, adapter
}

func TestNewRestreamAdapter_RequiresToken(t *testing.T) {
	_, err := NewRestreamAdapter("", Options{})
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestFactory_FailsFastOnEmptyToken(t *testing.T) {
	factory := NewFactory(nil)

	_, err := factory.NewAdapter(domain.PlatformRestream, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = factory.NewAdapter(domain.PlatformZoom, "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestFactory_UnregisteredPlatform(t *testing.T) {
	factory := NewFactory(nil)

	_, err := factory.NewAdapter(domain.PlatformJitsi, "token")
	assert.Error(t, err)
}

func TestRestreamCreateLivestream(t *testing.T) {
	_, adapter := newRestreamTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/user/events", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Sunday Service", payload["title"])

		json.NewEncoder(w).Encode(restreamEvent{
			ID:        "evt-1",
			Title:     "Sunday Service",
			Status:    "upcoming",
			Platforms: []string{"youtube", "facebook"},
		})
	})

	stream, err := adapter.CreateLivestream(context.Background(), CreateInput{
		Title:       "Sunday Service",
		Description: "Weekly broadcast",
		Platforms:   []string{"youtube", "facebook"},
	})
	require.NoError(t, err)

	assert.Equal(t, "evt-1", stream.ID)
	assert.Equal(t, []string{"youtube", "facebook"}, stream.Platforms)
}

func TestRestreamCreateLivestream_EmptyTitle(t *testing.T) {
	adapter, err := NewRestreamAdapter("test-token", Options{})
	require.NoError(t, err)

	_, err = adapter.CreateLivestream(context.Background(), CreateInput{Title: "   "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRestreamStartStop(t *testing.T) {
	var paths []string
	_, adapter := newRestreamTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(restreamEvent{ID: "evt-1", Status: "live"})
	})

	_, err := adapter.StartLivestream(context.Background(), "evt-1")
	require.NoError(t, err)

	_, err = adapter.StopLivestream(context.Background(), "evt-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"/user/events/evt-1/start", "/user/events/evt-1/stop"}, paths)
}

func TestRestreamUpdateLivestream_MergePatch(t *testing.T) {
	var payload map[string]any
	_, adapter := newRestreamTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(restreamEvent{ID: "evt-1", Title: "New Title"})
	})

	title := "New Title"
	_, err := adapter.UpdateLivestream(context.Background(), "evt-1", UpdateInput{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "New Title", payload["title"])
	_, hasDescription := payload["description"]
	assert.False(t, hasDescription, "unsupplied fields must not be sent")
}

func TestRestreamNotFound(t *testing.T) {
	_, adapter := newRestreamTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "event not found"})
	})

	_, err := adapter.GetLivestream(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestreamAPIError(t *testing.T) {
	_, adapter := newRestreamTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "insufficient scope"})
	})

	_, err := adapter.CreateLivestream(context.Background(), CreateInput{Title: "Sunday Service"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.PlatformRestream, apiErr.Platform)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "insufficient scope", apiErr.Message)
	assert.NotEmpty(t, apiErr.Error())
}

func TestRestreamAPIError_EmptyBodyStillHasMessage(t *testing.T) {
	_, adapter := newRestreamTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := adapter.CreateLivestream(context.Background(), CreateInput{Title: "Sunday Service"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.NotEmpty(t, apiErr.Message)
}

func TestRestreamListDestinations(t *testing.T) {
	_, adapter := newRestreamTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/channel/all", r.URL.Path)
		json.NewEncoder(w).Encode([]restreamChannel{
			{ID: "ch-1", DisplayName: "Main YouTube", Platform: "youtube", Enabled: true},
			{ID: "ch-2", DisplayName: "Facebook Page", Platform: "facebook", Enabled: false},
		})
	})

	destinations, err := adapter.ListDestinations(context.Background())
	require.NoError(t, err)

	require.Len(t, destinations, 2)
	assert.Equal(t, "Main YouTube", destinations[0].Name)
	assert.True(t, destinations[0].Enabled)
	assert.False(t, destinations[1].Enabled)
}
