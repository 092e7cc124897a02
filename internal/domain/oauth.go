package domain

import "time"

// OAuthState captures a single in-flight PKCE authorization attempt.
// It is stored keyed by (tenant, platform) and consumed exactly once
// by the OAuth callback.
type OAuthState struct {
	TenantID      string    `json:"tenant_id"`
	Platform      Platform  `json:"platform"`
	State         string    `json:"state"`
	CodeVerifier  string    `json:"code_verifier"`
	CodeChallenge string    `json:"code_challenge"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// TokenResponse models the normalized response from a vendor token endpoint
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// TenantContext is the explicit acting-identity value passed into every
// service call. It is resolved from the surrounding application's session
// token and never inferred from an untyped session blob.
type TenantContext struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
}

// CanManageConnections reports whether the acting user may manage platform
// connections and livestreams for the tenant
func (t TenantContext) CanManageConnections() bool {
	return t.Role == "admin" || t.Role == "editor"
}
