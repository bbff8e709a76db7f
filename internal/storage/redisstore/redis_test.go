package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kern/internal/auth"
)

func newStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := Open(context.Background(), "redis://"+mr.Addr()+"/0", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, time.Hour)

	exp := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	in := &auth.Session{
		Key:          "abc",
		AccessToken:  "at",
		RefreshToken: "rt",
		TokenType:    "bearer",
		ExpiresAt:    exp,
		User:         auth.User{ID: "u1", Email: "a@example.com"},
	}
	require.NoError(t, s.Put(ctx, in))
	assert.True(t, mr.Exists(KeyPrefix+"abc"))
	assert.Equal(t, time.Hour, mr.TTL(KeyPrefix+"abc"))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Key)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, "rt", got.RefreshToken)
	assert.True(t, exp.Equal(got.ExpiresAt))
	assert.Equal(t, auth.User{ID: "u1", Email: "a@example.com"}, got.User)

	require.NoError(t, s.Delete(ctx, "abc"))
	_, err = s.Get(ctx, "abc")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	assert.NoError(t, s.Delete(ctx, "abc"))
}

func TestEntriesExpire(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, time.Minute)

	require.NoError(t, s.Put(ctx, &auth.Session{Key: "k", AccessToken: "at"}))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestCorruptRecord(t *testing.T) {
	s, mr := newStore(t, 0)
	require.NoError(t, mr.Set(KeyPrefix+"bad", "not json"))

	_, err := s.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestPing(t *testing.T) {
	s, mr := newStore(t, 0)
	assert.NoError(t, s.Ping(context.Background()))

	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := Open(context.Background(), "http://nope", time.Minute)
	assert.Error(t, err)
}
