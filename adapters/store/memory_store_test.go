package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/layer-3/tia/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equals(want string) func(string) bool {
	return func(stored string) bool { return stored == want }
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)

	require.NoError(t, s.Set(ctx, "k", "v1", time.Minute))
	require.NoError(t, s.Set(ctx, "k", "v2", time.Minute))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestMemoryStore_Consume(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.Consume(ctx, "k", equals("v"))
	require.NoError(t, err)
	assert.False(t, ok, "missing key")

	require.NoError(t, s.Set(ctx, "k", "v", 0))

	ok, err = s.Consume(ctx, "k", equals("other"))
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v, "mismatch leaves the value in place")

	ok, err = s.Consume(ctx, "k", equals("v"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Consume(ctx, "k", equals("v"))
	require.NoError(t, err)
	assert.False(t, ok, "second consume")
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newMemoryStore(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))

	now = now.Add(59 * time.Second)
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)

	ok, err := s.Consume(ctx, "k", equals("v"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Consume(ctx, "k", equals("v"))
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}
