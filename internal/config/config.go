package config

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	Auth     AuthConfig     `env:",prefix=AUTH_"`
	Vault    VaultConfig    `env:",prefix=VAULT_"`
	OAuth    OAuthConfig    `env:",prefix=OAUTH_"`
	Storage  StorageConfig  `env:",prefix=STORAGE_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host           string `env:"HOST,default=localhost"`
	Port           string `env:"PORT,default=5432"`
	User           string `env:"USER,default=livestream_service"`
	Password       string `env:"PASSWORD,default=livestream_service_password"`
	DBName         string `env:"DB,default=livestream_service_db"`
	SSLMode        string `env:"SSLMODE,default=disable"`
	MigrationsPath string `env:"MIGRATIONS_PATH,default=migrations"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// AuthConfig configures verification of the surrounding application's
// session tokens. The tenant/user model itself lives outside this service.
type AuthConfig struct {
	SessionSecret string `env:"SESSION_SECRET,required"`
}

// VaultConfig carries the symmetric key material for credential encryption
type VaultConfig struct {
	Key string `env:"KEY,required"` // 64 hex characters (32 bytes)
}

// OAuthConfig holds per-platform OAuth client settings. Endpoint defaults
// point at the real vendor APIs and are overridable for testing.
type OAuthConfig struct {
	RedirectBaseURL string         `env:"REDIRECT_BASE_URL,default=http://localhost:8080"`
	StateTTL        Duration       `env:"STATE_TTL,default=10m"`
	RequestTimeout  Duration       `env:"REQUEST_TIMEOUT,default=10s"`
	Restream        ProviderConfig `env:",prefix=RESTREAM_"`
	Zoom            ProviderConfig `env:",prefix=ZOOM_"`
	Teams           ProviderConfig `env:",prefix=TEAMS_"`
	YouTube         ProviderConfig `env:",prefix=YOUTUBE_"`
	Facebook        ProviderConfig `env:",prefix=FACEBOOK_"`
	Instagram       ProviderConfig `env:",prefix=INSTAGRAM_"`
}

// ProviderConfig is one vendor's OAuth client registration
type ProviderConfig struct {
	ClientID     string   `env:"CLIENT_ID,default="`
	ClientSecret string   `env:"CLIENT_SECRET,default="`
	AuthorizeURL string   `env:"AUTHORIZE_URL,default="`
	TokenURL     string   `env:"TOKEN_URL,default="`
	Scopes       []string `env:"SCOPES,default="`
}

// StorageConfig configures the optional thumbnail object store
type StorageConfig struct {
	Enabled   bool   `env:"ENABLED,default=false"`
	Endpoint  string `env:"ENDPOINT,default=localhost:9000"`
	AccessKey string `env:"ACCESS_KEY,default="`
	SecretKey string `env:"SECRET_KEY,default="`
	Bucket    string `env:"BUCKET,default=livestream-thumbnails"`
	UseSSL    bool   `env:"USE_SSL,default=false"`
	PublicURL string `env:"PUBLIC_URL,default="`
}

type SecurityConfig struct {
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PATCH,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// KeyBytes decodes the hex-encoded vault key
func (v VaultConfig) KeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(v.Key)
	if err != nil {
		return nil, fmt.Errorf("VAULT_KEY must be hex encoded: %w", err)
	}
	return key, nil
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.Auth.SessionSecret) < 32 {
		return nil, fmt.Errorf("AUTH_SESSION_SECRET must be at least 32 characters long")
	}

	key, err := config.Vault.KeyBytes()
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("VAULT_KEY must decode to 32 bytes, got %d", len(key))
	}

	applyProviderDefaults(&config.OAuth)

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}

// applyProviderDefaults fills in vendor endpoints left unset by the environment
func applyProviderDefaults(o *OAuthConfig) {
	defaults := map[*ProviderConfig][2]string{
		&o.Restream:  {"https://api.restream.io/login", "https://api.restream.io/oauth/token"},
		&o.Zoom:      {"https://zoom.us/oauth/authorize", "https://zoom.us/oauth/token"},
		&o.Teams:     {"https://login.microsoftonline.com/common/oauth2/v2.0/authorize", "https://login.microsoftonline.com/common/oauth2/v2.0/token"},
		&o.YouTube:   {"https://accounts.google.com/o/oauth2/v2/auth", "https://oauth2.googleapis.com/token"},
		&o.Facebook:  {"https://www.facebook.com/v19.0/dialog/oauth", "https://graph.facebook.com/v19.0/oauth/access_token"},
		&o.Instagram: {"https://api.instagram.com/oauth/authorize", "https://api.instagram.com/oauth/access_token"},
	}

	for p, urls := range defaults {
		if p.AuthorizeURL == "" {
			p.AuthorizeURL = urls[0]
		}
		if p.TokenURL == "" {
			p.TokenURL = urls[1]
		}
	}
}

// Provider returns the OAuth client registration for a platform name.
// Jitsi has no OAuth surface and intentionally has no registration.
func (o OAuthConfig) Provider(platform string) (ProviderConfig, bool) {
	switch platform {
	case "restream":
		return o.Restream, true
	case "zoom":
		return o.Zoom, true
	case "teams":
		return o.Teams, true
	case "youtube":
		return o.YouTube, true
	case "facebook":
		return o.Facebook, true
	case "instagram":
		return o.Instagram, true
	default:
		return ProviderConfig{}, false
	}
}
