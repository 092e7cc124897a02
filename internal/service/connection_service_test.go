package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parishkit/livestream-service/internal/domain"
	"github.com/parishkit/livestream-service/internal/repository"
	"github.com/parishkit/livestream-service/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryConnectionRepository is an in-memory ConnectionRepository for tests
type memoryConnectionRepository struct {
	conns map[string]*domain.PlatformConnection
}

func newMemoryConnectionRepository() *memoryConnectionRepository {
	return &memoryConnectionRepository{conns: map[string]*domain.PlatformConnection{}}
}

func connKey(tenantID string, platform domain.Platform) string {
	return tenantID + "/" + string(platform)
}

func (r *memoryConnectionRepository) Upsert(ctx context.Context, conn *domain.PlatformConnection) error {
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	now := time.Now()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	conn.LastError = nil
	conn.LastErrorAt = nil

	stored := *conn
	r.conns[connKey(conn.TenantID, conn.Platform)] = &stored
	return nil
}

func (r *memoryConnectionRepository) GetByTenantAndPlatform(ctx context.Context, tenantID string, platform domain.Platform) (*domain.PlatformConnection, error) {
	conn, ok := r.conns[connKey(tenantID, platform)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *conn
	return &copied, nil
}

func (r *memoryConnectionRepository) GetByTenant(ctx context.Context, tenantID string) ([]*domain.PlatformConnection, error) {
	var out []*domain.PlatformConnection
	for _, conn := range r.conns {
		if conn.TenantID == tenantID {
			copied := *conn
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memoryConnectionRepository) UpdateStatus(ctx context.Context, tenantID string, platform domain.Platform, status domain.ConnectionStatus, lastError *string) (*domain.PlatformConnection, error) {
	conn, ok := r.conns[connKey(tenantID, platform)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	conn.Status = status
	conn.LastError = lastError
	if lastError != nil {
		now := time.Now()
		conn.LastErrorAt = &now
	} else {
		conn.LastErrorAt = nil
	}
	conn.UpdatedAt = time.Now()
	copied := *conn
	return &copied, nil
}

func (r *memoryConnectionRepository) Delete(ctx context.Context, tenantID string, platform domain.Platform) error {
	key := connKey(tenantID, platform)
	if _, ok := r.conns[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.conns, key)
	return nil
}

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	v, err := vault.New(key)
	require.NoError(t, err)
	return v
}

func TestCreateConnection_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewConnectionService(newMemoryConnectionRepository(), newTestVault(t))

	expiresAt := time.Now().Add(time.Hour)
	creds := domain.Credentials{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Scopes:       []string{"stream.write"},
	}

	conn, err := svc.CreateConnection(ctx, "tenant-1", domain.PlatformRestream, creds, &expiresAt)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionConnected, conn.Status)
	assert.NotEqual(t, "access", conn.Credentials, "credentials must be stored encrypted")

	fetched, err := svc.GetConnection(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)
	require.NotNil(t, fetched)

	decrypted, err := svc.GetCredentials(fetched)
	require.NoError(t, err)
	assert.Equal(t, creds, decrypted)
}

func TestCreateConnection_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewConnectionService(newMemoryConnectionRepository(), newTestVault(t))

	_, err := svc.CreateConnection(ctx, "", domain.PlatformRestream, domain.Credentials{AccessToken: "a", RefreshToken: "r"}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.CreateConnection(ctx, "tenant-1", "vimeo", domain.Credentials{AccessToken: "a", RefreshToken: "r"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)

	_, err = svc.CreateConnection(ctx, "tenant-1", domain.PlatformRestream, domain.Credentials{RefreshToken: "r"}, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.CreateConnection(ctx, "tenant-1", domain.PlatformRestream, domain.Credentials{AccessToken: "a"}, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateConnection_SecondCallReplaces(t *testing.T) {
	ctx := context.Background()
	svc := NewConnectionService(newMemoryConnectionRepository(), newTestVault(t))

	_, err := svc.CreateConnection(ctx, "tenant-1", domain.PlatformRestream, domain.Credentials{AccessToken: "old", RefreshToken: "r1"}, nil)
	require.NoError(t, err)

	_, err = svc.CreateConnection(ctx, "tenant-1", domain.PlatformRestream, domain.Credentials{AccessToken: "new", RefreshToken: "r2"}, nil)
	require.NoError(t, err)

	conn, err := svc.GetConnection(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)

	creds, err := svc.GetCredentials(conn)
	require.NoError(t, err)
	assert.Equal(t, "new", creds.AccessToken)
}

func TestGetConnection_MissingReturnsNil(t *testing.T) {
	svc := NewConnectionService(newMemoryConnectionRepository(), newTestVault(t))

	conn, err := svc.GetConnection(context.Background(), "tenant-1", domain.PlatformZoom)
	require.NoError(t, err)
	assert.Nil(t, conn)
}

func TestUpdateConnectionStatus_ErrorRequiresMessage(t *testing.T) {
	ctx := context.Background()
	svc := NewConnectionService(newMemoryConnectionRepository(), newTestVault(t))

	_, err := svc.CreateConnection(ctx, "tenant-1", domain.PlatformRestream, domain.Credentials{AccessToken: "a", RefreshToken: "r"}, nil)
	require.NoError(t, err)

	conn, err := svc.UpdateConnectionStatus(ctx, "tenant-1", domain.PlatformRestream, domain.ConnectionError, "")
	require.NoError(t, err)
	require.NotNil(t, conn.LastError)
	assert.NotEmpty(t, *conn.LastError)
	assert.NotNil(t, conn.LastErrorAt)

	conn, err = svc.UpdateConnectionStatus(ctx, "tenant-1", domain.PlatformRestream, domain.ConnectionConnected, "")
	require.NoError(t, err)
	assert.Nil(t, conn.LastError)
	assert.Nil(t, conn.LastErrorAt)
}

func TestDisconnectPlatform(t *testing.T) {
	ctx := context.Background()
	svc := NewConnectionService(newMemoryConnectionRepository(), newTestVault(t))

	_, err := svc.CreateConnection(ctx, "tenant-1", domain.PlatformRestream, domain.Credentials{AccessToken: "a", RefreshToken: "r"}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.DisconnectPlatform(ctx, "tenant-1", domain.PlatformRestream))

	conn, err := svc.GetConnection(ctx, "tenant-1", domain.PlatformRestream)
	require.NoError(t, err)
	assert.Nil(t, conn)

	err = svc.DisconnectPlatform(ctx, "tenant-1", domain.PlatformRestream)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConnectionIsExpired(t *testing.T) {
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	expired := &domain.PlatformConnection{ExpiresAt: &past}
	assert.True(t, expired.IsExpired(now))

	live := &domain.PlatformConnection{ExpiresAt: &future}
	assert.False(t, live.IsExpired(now))

	nonExpiring := &domain.PlatformConnection{}
	assert.False(t, nonExpiring.IsExpired(now))
}
