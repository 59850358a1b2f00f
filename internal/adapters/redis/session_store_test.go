package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gelatohub/painel/internal/data/cryptoutil"
	domainauth "github.com/gelatohub/painel/internal/domain/auth"
	"github.com/gelatohub/painel/internal/testutil"
)

func TestSessionStore_SaveAndGet(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	session := domainauth.Session{
		ID:           "test-session-1",
		UserID:       "user-123",
		Email:        "dono@example.com",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(30 * time.Minute),
	}
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "test-session-1")
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, session.Email, got.Email)
	assert.Equal(t, session.AccessToken, got.AccessToken)
	assert.Equal(t, session.RefreshToken, got.RefreshToken)
	assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Second)

	ttl, err := client.TTL(ctx, DefaultSessionPrefix+"test-session-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 29*time.Minute)
}

func TestSessionStore_GetNonExistent(t *testing.T) {
	store := NewSessionStore(testutil.SetupTestRedis(t))

	_, err := store.Get(context.Background(), "non-existent")
	assert.Equal(t, ErrNotFound, err)

	_, err = store.Get(context.Background(), "")
	assert.Equal(t, ErrNotFound, err)
}

func TestSessionStore_Delete(t *testing.T) {
	store := NewSessionStore(testutil.SetupTestRedis(t))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{
		ID:        "to-delete",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, store.Delete(ctx, "to-delete"))

	_, err := store.Get(ctx, "to-delete")
	assert.Equal(t, ErrNotFound, err)
	assert.NoError(t, store.Delete(ctx, ""))
}

func TestSessionStore_RejectsInvalid(t *testing.T) {
	store := NewSessionStore(testutil.SetupTestRedis(t))
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, domainauth.Session{ExpiresAt: time.Now().Add(time.Hour)}))
	assert.Error(t, store.Save(ctx, domainauth.Session{ID: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
}

func TestSessionStore_ExpiredOnRead(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, store.Save(ctx, domainauth.Session{
		ID:        "short",
		UserID:    "user-1",
		ExpiresAt: start.Add(time.Hour),
	}))

	store.now = testutil.FixedTimeFunc(start.Add(2 * time.Hour))
	_, err := store.Get(ctx, "short")
	assert.Equal(t, ErrNotFound, err)

	exists, err := client.Exists(ctx, DefaultSessionPrefix+"short").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestSessionStore_CustomPrefix(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStoreWithPrefix(client, "painel:sess:")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "abc", ExpiresAt: time.Now().Add(time.Hour)}))

	exists, err := client.Exists(ctx, "painel:sess:abc").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestSessionStore_Encrypted(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	enc, err := cryptoutil.NewAESGCMEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	store := NewSessionStore(client).WithEncryptor(enc)
	ctx := context.Background()

	sess := domainauth.Session{
		ID:          "enc-1",
		UserID:      "user-123",
		AccessToken: "very-secret-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, sess))

	raw, err := client.Get(ctx, DefaultSessionPrefix+"enc-1").Result()
	require.NoError(t, err)
	assert.NotContains(t, raw, "very-secret-token")

	got, err := store.Get(ctx, "enc-1")
	require.NoError(t, err)
	assert.Equal(t, "very-secret-token", got.AccessToken)

	// Sessions written in clear text before encryption was enabled still load.
	require.NoError(t, NewSessionStore(client).Save(ctx, domainauth.Session{
		ID: "plain-1", UserID: "user-9", ExpiresAt: time.Now().Add(time.Hour),
	}))
	got, err = store.Get(ctx, "plain-1")
	require.NoError(t, err)
	assert.Equal(t, "user-9", got.UserID)
}
