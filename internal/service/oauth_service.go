package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parishkit/livestream-service/internal/config"
	"github.com/parishkit/livestream-service/internal/domain"
)

// OAuthService orchestrates the PKCE authorization flow against vendor token
// endpoints: authorization URL construction, callback code exchange and token
// refresh. State handling is delegated to the state service and credential
// custody to the connection service.
type OAuthService struct {
	states      *OAuthStateService
	connections *ConnectionService
	cfg         config.OAuthConfig
	client      *http.Client
}

// NewOAuthService creates the OAuth orchestration service. Every outbound
// vendor call carries the configured timeout.
func NewOAuthService(states *OAuthStateService, connections *ConnectionService, cfg config.OAuthConfig) *OAuthService {
	return &OAuthService{
		states:      states,
		connections: connections,
		cfg:         cfg,
		client:      &http.Client{Timeout: cfg.RequestTimeout.Duration},
	}
}

// AuthorizationRequest is the result of starting an authorization flow
type AuthorizationRequest struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// CallbackResult reports a completed authorization
type CallbackResult struct {
	Success  bool            `json:"success"`
	Platform domain.Platform `json:"platform"`
}

// BuildAuthorizationURL generates and stores a PKCE state for the pair and
// returns the vendor authorize URL carrying the S256 challenge
func (s *OAuthService) BuildAuthorizationURL(ctx context.Context, tenantID string, platform domain.Platform) (*AuthorizationRequest, error) {
	provider, ok := s.cfg.Provider(string(platform))
	if !ok {
		return nil, fmt.Errorf("platform %q has no oauth provider: %w", platform, ErrUnsupportedPlatform)
	}

	state, err := s.states.GenerateOAuthState()
	if err != nil {
		return nil, err
	}
	state.TenantID = tenantID
	state.Platform = platform

	if err := s.states.Store(ctx, tenantID, platform, state); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", provider.ClientID)
	query.Set("redirect_uri", s.redirectURI(platform))
	query.Set("state", state.State)
	query.Set("code_challenge", state.CodeChallenge)
	query.Set("code_challenge_method", "S256")
	if len(provider.Scopes) > 0 {
		query.Set("scope", strings.Join(provider.Scopes, " "))
	}

	return &AuthorizationRequest{
		AuthorizationURL: provider.AuthorizeURL + "?" + query.Encode(),
		State:            state.State,
	}, nil
}

// HandleOAuthCallback completes an authorization. The state is validated and
// consumed before any network call so a forged callback never leaks the
// authorization code to a vendor. On success the resulting credentials are
// stored as a connected connection.
func (s *OAuthService) HandleOAuthCallback(ctx context.Context, tenantID string, platform domain.Platform, code, state string) (*CallbackResult, error) {
	provider, ok := s.cfg.Provider(string(platform))
	if !ok {
		return nil, fmt.Errorf("platform %q has no oauth provider: %w", platform, ErrUnsupportedPlatform)
	}

	verifier, valid, err := s.states.Consume(ctx, tenantID, platform, state)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, fmt.Errorf("state for platform %s: %w", platform, ErrInvalidState)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("code_verifier", verifier)
	form.Set("redirect_uri", s.redirectURI(platform))

	token, err := s.requestToken(ctx, provider, form)
	if err != nil {
		return nil, err
	}

	expiresAt := expiryFrom(token)
	_, err = s.connections.CreateConnection(ctx, tenantID, platform, domain.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Scopes:       splitScopes(token.Scope),
	}, expiresAt)
	if err != nil {
		return nil, err
	}

	return &CallbackResult{Success: true, Platform: platform}, nil
}

// RefreshAccessToken exchanges the stored refresh token for a new token pair
// and persists it. On vendor rejection or timeout the connection transitions
// to error with the message recorded; the failure is reported, never retried
// here.
func (s *OAuthService) RefreshAccessToken(ctx context.Context, tenantID string, platform domain.Platform) (string, error) {
	provider, ok := s.cfg.Provider(string(platform))
	if !ok {
		return "", fmt.Errorf("platform %q has no oauth provider: %w", platform, ErrUnsupportedPlatform)
	}

	conn, err := s.connections.GetConnection(ctx, tenantID, platform)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", fmt.Errorf("no connection for platform %s: %w", platform, ErrRefresh)
	}

	creds, err := s.connections.GetCredentials(conn)
	if err != nil {
		s.recordRefreshFailure(ctx, tenantID, platform, err)
		return "", fmt.Errorf("failed to decrypt stored credentials: %w", err)
	}
	if creds.RefreshToken == "" {
		return "", fmt.Errorf("no refresh token stored for platform %s: %w", platform, ErrRefresh)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", creds.RefreshToken)

	token, err := s.requestToken(ctx, provider, form)
	if err != nil {
		s.recordRefreshFailure(ctx, tenantID, platform, err)
		return "", fmt.Errorf("%w: %v", ErrRefresh, err)
	}

	// Some vendors rotate the refresh token, some return only a new access
	// token. Keep the old refresh token when none is returned.
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = creds.RefreshToken
	}

	_, err = s.connections.CreateConnection(ctx, tenantID, platform, domain.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		Scopes:       creds.Scopes,
	}, expiryFrom(token))
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

func (s *OAuthService) redirectURI(platform domain.Platform) string {
	return fmt.Sprintf("%s/api/v1/connections/%s/callback", strings.TrimSuffix(s.cfg.RedirectBaseURL, "/"), platform)
}

// requestToken posts a grant to the vendor token endpoint
func (s *OAuthService) requestToken(ctx context.Context, provider config.ProviderConfig, form url.Values) (*domain.TokenResponse, error) {
	form.Set("client_id", provider.ClientID)
	if provider.ClientSecret != "" {
		form.Set("client_secret", provider.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var vendorErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&vendorErr)
		message := vendorErr.ErrorDescription
		if message == "" {
			message = vendorErr.Error
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, message)
	}

	var token domain.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("malformed token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	return &token, nil
}

// recordRefreshFailure transitions the connection to error so callers are not
// misled into believing the connection is usable
func (s *OAuthService) recordRefreshFailure(ctx context.Context, tenantID string, platform domain.Platform, cause error) {
	_, _ = s.connections.UpdateConnectionStatus(ctx, tenantID, platform, domain.ConnectionError, cause.Error())
}

func expiryFrom(token *domain.TokenResponse) *time.Time {
	if token.ExpiresIn <= 0 {
		return nil
	}
	expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return &expiresAt
}

func splitScopes(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}
