package domain

import "time"

// Platform identifies a streaming destination vendor
type Platform string

const (
	PlatformRestream  Platform = "restream"
	PlatformZoom      Platform = "zoom"
	PlatformTeams     Platform = "teams"
	PlatformJitsi     Platform = "jitsi"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformFacebook  Platform = "facebook"
)

// KnownPlatforms lists every platform the service can connect to
var KnownPlatforms = []Platform{
	PlatformRestream,
	PlatformZoom,
	PlatformTeams,
	PlatformJitsi,
	PlatformInstagram,
	PlatformYouTube,
	PlatformFacebook,
}

// IsValid reports whether the platform is part of the supported set
func (p Platform) IsValid() bool {
	for _, known := range KnownPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// ConnectionStatus represents the lifecycle state of a platform connection
type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionExpired      ConnectionStatus = "expired"
	ConnectionError        ConnectionStatus = "error"
)

// Credentials holds the decrypted OAuth tokens for a platform connection.
// They never touch persistent storage in this form.
type Credentials struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Scopes       []string `json:"scopes,omitempty"`
}

// PlatformConnection represents a tenant's authorization against one platform.
// Exactly one record exists per (tenant, platform) pair.
type PlatformConnection struct {
	ID          string           `json:"id" db:"id"`
	TenantID    string           `json:"tenant_id" db:"tenant_id"`
	Platform    Platform         `json:"platform" db:"platform"`
	Status      ConnectionStatus `json:"status" db:"status"`
	Credentials string           `json:"-" db:"credentials"` // encrypted blob
	ExpiresAt   *time.Time       `json:"expires_at" db:"expires_at"`
	LastError   *string          `json:"last_error" db:"last_error"`
	LastErrorAt *time.Time       `json:"last_error_at" db:"last_error_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether the connection's tokens are past their expiry.
// A nil ExpiresAt means non-expiring and is never considered expired.
func (c *PlatformConnection) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
