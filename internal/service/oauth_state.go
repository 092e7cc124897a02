package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parishkit/livestream-service/internal/domain"
	"github.com/parishkit/livestream-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// StateStore is the key/value storage the state manager runs on. The redis
// implementation is used in production; tests inject an in-memory fake.
type StateStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	GetDel(ctx context.Context, key string) (string, bool, error)
}

// redisStateStore backs StateStore with redis, relying on key TTLs for cleanup
type redisStateStore struct {
	redis *database.Redis
}

// NewRedisStateStore creates a redis-backed state store
func NewRedisStateStore(r *database.Redis) StateStore {
	return &redisStateStore{redis: r}
}

func (s *redisStateStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.redis.Client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth state: %w", err)
	}
	return nil
}

func (s *redisStateStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.redis.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read oauth state: %w", err)
	}
	return value, true, nil
}

func (s *redisStateStore) GetDel(ctx context.Context, key string) (string, bool, error) {
	value, err := s.redis.Client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return value, true, nil
}

// OAuthStateService generates and validates PKCE state for in-flight
// authorization attempts. One state per (tenant, platform) pair at a time;
// storing a new state overwrites the previous one.
type OAuthStateService struct {
	store StateStore
	ttl   time.Duration
}

// NewOAuthStateService creates a state service with the given TTL
func NewOAuthStateService(store StateStore, ttl time.Duration) *OAuthStateService {
	return &OAuthStateService{store: store, ttl: ttl}
}

// GenerateOAuthState produces a fresh state / codeVerifier / codeChallenge
// triple. Both secrets carry at least 128 bits of entropy and the challenge
// is the RFC 7636 S256 transform (URL-safe base64, no padding).
func (s *OAuthStateService) GenerateOAuthState() (*domain.OAuthState, error) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	verifierBytes := make([]byte, 32)
	if _, err := rand.Read(verifierBytes); err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(verifierBytes)
	challenge := sha256.Sum256([]byte(verifier))

	return &domain.OAuthState{
		State:         hex.EncodeToString(stateBytes),
		CodeVerifier:  verifier,
		CodeChallenge: base64.RawURLEncoding.EncodeToString(challenge[:]),
	}, nil
}

// storedState is the persisted shape of an in-flight authorization
type storedState struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func stateKey(tenantID string, platform domain.Platform) string {
	return fmt.Sprintf("oauthstate:%s:%s", tenantID, platform)
}

// Store persists the state for (tenant, platform), replacing any prior
// unconsumed state for that pair
func (s *OAuthStateService) Store(ctx context.Context, tenantID string, platform domain.Platform, state *domain.OAuthState) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id must not be empty: %w", ErrInvalidArgument)
	}
	if state == nil || state.State == "" {
		return fmt.Errorf("state must not be empty: %w", ErrInvalidArgument)
	}

	value, err := json.Marshal(storedState{
		State:        state.State,
		CodeVerifier: state.CodeVerifier,
		ExpiresAt:    time.Now().Add(s.ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to encode oauth state: %w", err)
	}

	return s.store.Set(ctx, stateKey(tenantID, platform), string(value), s.ttl)
}

// Validate reports whether a stored, unexpired state exists for the pair and
// matches exactly. Not-found, mismatch and expiry all return false, never an
// error, so callers can branch on the common user-retried case.
func (s *OAuthStateService) Validate(ctx context.Context, tenantID string, platform domain.Platform, state string) (bool, error) {
	if tenantID == "" || state == "" {
		return false, nil
	}

	value, found, err := s.store.Get(ctx, stateKey(tenantID, platform))
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	stored, ok := decodeStoredState(value)
	return ok && stored.State == state, nil
}

// Consume atomically fetches and deletes the state for the pair, enforcing
// single-use callback semantics. Returns the stored code verifier when the
// presented state matches an unexpired record.
func (s *OAuthStateService) Consume(ctx context.Context, tenantID string, platform domain.Platform, state string) (string, bool, error) {
	if tenantID == "" || state == "" {
		return "", false, nil
	}

	value, found, err := s.store.GetDel(ctx, stateKey(tenantID, platform))
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}

	stored, ok := decodeStoredState(value)
	if !ok || stored.State != state {
		return "", false, nil
	}

	return stored.CodeVerifier, true, nil
}

// decodeStoredState parses a stored record and re-checks its expiry even
// though the store expires keys itself (cleanup-lag defense)
func decodeStoredState(value string) (storedState, bool) {
	var stored storedState
	if err := json.Unmarshal([]byte(value), &stored); err != nil {
		return stored, false
	}
	if time.Now().After(stored.ExpiresAt) {
		return stored, false
	}
	return stored, true
}
