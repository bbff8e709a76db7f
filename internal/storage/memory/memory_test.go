package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kern/internal/auth"
)

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	in := &auth.Session{Key: "k", AccessToken: "at"}
	require.NoError(t, s.Put(ctx, in))
	in.AccessToken = "mutated"

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "at", got.AccessToken)

	got.AccessToken = "also mutated"
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, "at", again.AccessToken)
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Put(ctx, &auth.Session{Key: "k"})

	require.NoError(t, s.Delete(ctx, "k"))
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i%26))
			_ = s.Put(ctx, &auth.Session{Key: key})
			_, _ = s.Get(ctx, key)
		}()
	}
	wg.Wait()
	assert.Equal(t, 26, s.Len())
}
