package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kern/internal/auth"
)

func newTestStore(t *testing.T) *SQLiteSessionStore {
	t.Helper()
	store, err := NewSQLiteSessionStore(filepath.Join(t.TempDir(), "nested", "kern.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	exp := time.Unix(1700000000, 0)
	in := &auth.Session{
		Key:          "k1",
		AccessToken:  "at",
		RefreshToken: "rt",
		TokenType:    "bearer",
		ExpiresAt:    exp,
		User:         auth.User{ID: "u1", Email: "a@b.c"},
	}
	require.NoError(t, store.Put(ctx, in))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, in.AccessToken, got.AccessToken)
	assert.Equal(t, in.User, got.User)
	assert.True(t, exp.Equal(got.ExpiresAt))

	in.AccessToken = "at2"
	require.NoError(t, store.Put(ctx, in))
	got, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "at2", got.AccessToken)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Delete(ctx, "k1"))
	require.NoError(t, store.Delete(ctx, "k1"))
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestSQLiteSessionStoreUnknownExpiry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Put(ctx, &auth.Session{Key: "k", AccessToken: "at"}))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.IsZero())
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kern.db")
	s1, err := NewSQLiteSessionStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteSessionStore(path)
	require.NoError(t, err)
	assert.NoError(t, s2.Ping(context.Background()))
	require.NoError(t, s2.Close())
}

func TestMigrateSessionsReportsVersion(t *testing.T) {
	store := newTestStore(t)

	version, err := migrateSessions(store.db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.NoError(t, store.Ping(context.Background()), "migrations leave the handle open")
}
