package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kern/internal/config"
	"kern/internal/log"
	"kern/internal/storage"
	"kern/internal/storage/memory"
	"kern/internal/storage/redisstore"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{SessionBackend: "sqlite", SQLiteDBPath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, SQLite, cfg.Type)

	cfg, err = FromAppConfig(&config.Config{SessionBackend: "redis", RedisURL: "redis://r:6379/1", SessionTTL: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, Redis, cfg.Type)
	assert.Equal(t, "redis://r:6379/1", cfg.RedisURL)
	assert.Equal(t, time.Hour, cfg.SessionTTL)

	_, err = FromAppConfig(&config.Config{SessionBackend: "postgres"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Type: Memory}.Validate())
	assert.Error(t, Config{Type: SQLite}.Validate())
	assert.Error(t, Config{Type: Redis}.Validate())
	assert.Error(t, Config{Type: "bogus"}.Validate())
}

func TestCreateStore(t *testing.T) {
	f := NewFactory(log.Discard())

	res, err := f.CreateStore(context.Background(), Config{Type: Memory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Store)
	assert.Nil(t, res.Ping)
	assert.NoError(t, res.Cleanup())

	res, err = f.CreateStore(context.Background(), Config{Type: SQLite, SQLiteDBPath: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &storage.SQLiteSessionStore{}, res.Store)
	assert.NoError(t, res.Ping(context.Background()))
	assert.NoError(t, res.Cleanup())

	mr := miniredis.RunT(t)
	res, err = f.CreateStore(context.Background(), Config{Type: Redis, RedisURL: "redis://" + mr.Addr(), SessionTTL: time.Hour})
	require.NoError(t, err)
	assert.IsType(t, &redisstore.Store{}, res.Store)
	assert.NoError(t, res.Ping(context.Background()))
	assert.NoError(t, res.Cleanup())
}
