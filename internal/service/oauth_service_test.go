package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/parishkit/livestream-service/internal/config"
	"github.com/parishkit/livestream-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOAuthTestService(t *testing.T, tokenURL string) (*OAuthService, *ConnectionService, *OAuthStateService) {
	t.Helper()

	states := NewOAuthStateService(newMemoryStateStore(), 10*time.Minute)
	connections := NewConnectionService(newMemoryConnectionRepository(), newTestVault(t))

	cfg := config.OAuthConfig{
		RedirectBaseURL: "http://localhost:8080",
		StateTTL:        config.Duration{Duration: 10 * time.Minute},
		RequestTimeout:  config.Duration{Duration: 5 * time.Second},
		Restream: config.ProviderConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			AuthorizeURL: "https://api.restream.io/login",
			TokenURL:     tokenURL,
			Scopes:       []string{"stream.write"},
		},
	}

	return NewOAuthService(states, connections, cfg), connections, states
}

func TestBuildAuthorizationURL(t *testing.T) {
	ctx := context.Background()
	svc, _, states := newOAuthTestService(t, "http://unused")

	req, err := svc.BuildAuthorizationURL(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)

	parsed, err := url.Parse(req.AuthorizationURL)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, req.State, query.Get("state"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.NotEmpty(t, query.Get("code_challenge"))
	assert.Equal(t, "http://localhost:8080/api/v1/connections/restream/callback", query.Get("redirect_uri"))
	assert.Equal(t, "stream.write", query.Get("scope"))

	valid, err := states.Validate(ctx, "tenant-1", domain.PlatformRestream, req.State)
	require.NoError(t, err)
	assert.True(t, valid, "state must be stored when the URL is built")
}

func TestBuildAuthorizationURL_UnsupportedPlatform(t *testing.T) {
	svc, _, _ := newOAuthTestService(t, "http://unused")

	_, err := svc.BuildAuthorizationURL(context.Background(), "tenant-1", domain.PlatformJitsi)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestHandleOAuthCallback_Success(t *testing.T) {
	ctx := context.Background()

	var gotGrant, gotVerifier, gotCode string
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.PostForm.Get("grant_type")
		gotVerifier = r.PostForm.Get("code_verifier")
		gotCode = r.PostForm.Get("code")

		json.NewEncoder(w).Encode(domain.TokenResponse{
			AccessToken:  "vendor-access",
			RefreshToken: "vendor-refresh",
			ExpiresIn:    3600,
			Scope:        "stream.write stream.read",
		})
	}))
	defer tokenServer.Close()

	svc, connections, _ := newOAuthTestService(t, tokenServer.URL)

	req, err := svc.BuildAuthorizationURL(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)

	result, err := svc.HandleOAuthCallback(ctx, "tenant-1", domain.PlatformRestream, "auth-code", req.State)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, domain.PlatformRestream, result.Platform)

	assert.Equal(t, "authorization_code", gotGrant)
	assert.NotEmpty(t, gotVerifier)
	assert.Equal(t, "auth-code", gotCode)

	conn, err := connections.GetConnection(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, domain.ConnectionConnected, conn.Status)
	require.NotNil(t, conn.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *conn.ExpiresAt, time.Minute)

	creds, err := connections.GetCredentials(conn)
	require.NoError(t, err)
	assert.Equal(t, "vendor-access", creds.AccessToken)
	assert.Equal(t, "vendor-refresh", creds.RefreshToken)
	assert.Equal(t, []string{"stream.write", "stream.read"}, creds.Scopes)
}

func TestHandleOAuthCallback_StateIsSingleUse(t *testing.T) {
	ctx := context.Background()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.TokenResponse{
			AccessToken:  "vendor-access",
			RefreshToken: "vendor-refresh",
		})
	}))
	defer tokenServer.Close()

	svc, _, _ := newOAuthTestService(t, tokenServer.URL)

	req, err := svc.BuildAuthorizationURL(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)

	_, err = svc.HandleOAuthCallback(ctx, "tenant-1", domain.PlatformRestream, "auth-code", req.State)
	require.NoError(t, err)

	_, err = svc.HandleOAuthCallback(ctx, "tenant-1", domain.PlatformRestream, "auth-code", req.State)
	assert.ErrorIs(t, err, ErrInvalidState, "replayed callback must be rejected")
}

func TestHandleOAuthCallback_ForgedStateNeverHitsVendor(t *testing.T) {
	ctx := context.Background()

	vendorCalled := false
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vendorCalled = true
		w.WriteHeader(http.StatusOK)
	}))
	defer tokenServer.Close()

	svc, connections, _ := newOAuthTestService(t, tokenServer.URL)

	_, err := svc.HandleOAuthCallback(ctx, "tenant-1", domain.PlatformRestream, "auth-code", "forged-state")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.False(t, vendorCalled, "forged state must never leak the code to the vendor")

	conn, err := connections.GetConnection(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)
	assert.Nil(t, conn)
}

func TestHandleOAuthCallback_VendorRejection(t *testing.T) {
	ctx := context.Background()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "authorization code expired",
		})
	}))
	defer tokenServer.Close()

	svc, connections, _ := newOAuthTestService(t, tokenServer.URL)

	req, err := svc.BuildAuthorizationURL(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)

	_, err = svc.HandleOAuthCallback(ctx, "tenant-1", domain.PlatformRestream, "stale-code", req.State)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authorization code expired")

	conn, err := connections.GetConnection(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)
	assert.Nil(t, conn, "no connection must be created on vendor rejection")
}

func TestRefreshAccessToken_Success(t *testing.T) {
	ctx := context.Background()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

		json.NewEncoder(w).Encode(domain.TokenResponse{
			AccessToken: "new-access",
			ExpiresIn:   3600,
		})
	}))
	defer tokenServer.Close()

	svc, connections, _ := newOAuthTestService(t, tokenServer.URL)

	_, err := connections.CreateConnection(ctx, "tenant-1", domain.PlatformRestream,
		domain.Credentials{AccessToken: "old-access", RefreshToken: "old-refresh"}, nil)
	require.NoError(t, err)

	token, err := svc.RefreshAccessToken(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)
	assert.Equal(t, "new-access", token)

	conn, err := connections.GetConnection(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, domain.ConnectionConnected, conn.Status)

	creds, err := connections.GetCredentials(conn)
	require.NoError(t, err)
	assert.Equal(t, "new-access", creds.AccessToken)
	assert.Equal(t, "old-refresh", creds.RefreshToken, "refresh token is kept when the vendor does not rotate it")
}

func TestRefreshAccessToken_VendorRejectionRecordsError(t *testing.T) {
	ctx := context.Background()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer tokenServer.Close()

	svc, connections, _ := newOAuthTestService(t, tokenServer.URL)

	_, err := connections.CreateConnection(ctx, "tenant-1", domain.PlatformRestream,
		domain.Credentials{AccessToken: "old-access", RefreshToken: "revoked"}, nil)
	require.NoError(t, err)

	_, err = svc.RefreshAccessToken(ctx, "tenant-1", domain.PlatformRestream)
	assert.ErrorIs(t, err, ErrRefresh)

	conn, err := connections.GetConnection(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, domain.ConnectionError, conn.Status)
	require.NotNil(t, conn.LastError)
	assert.NotEmpty(t, *conn.LastError)
}

func TestRefreshAccessToken_NoConnection(t *testing.T) {
	svc, connections, _ := newOAuthTestService(t, "http://unused")

	_, err := svc.RefreshAccessToken(context.Background(), "tenant-1", domain.PlatformRestream)
	assert.ErrorIs(t, err, ErrRefresh)

	conn, err := connections.GetConnection(context.Background(), "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)
	assert.Nil(t, conn, "refresh without a connection must not create one")
}
