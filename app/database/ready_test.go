package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReady(t *testing.T) {
	readyBackoff.Min = time.Millisecond
	readyBackoff.Max = 5 * time.Millisecond
	t.Cleanup(func() {
		readyBackoff.Min = 500 * time.Millisecond
		readyBackoff.Max = 10 * time.Second
	})

	t.Run("ready", func(t *testing.T) {
		require.NoError(t, WaitReady(context.Background(), newTestRedisStore(t), 1))
	})

	t.Run("gives up", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1}))
		t.Cleanup(func() { store.Close() })

		err = WaitReady(context.Background(), store, 3)
		assert.ErrorContains(t, err, "after 3 attempts")
	})

	t.Run("cancelled", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1}))
		t.Cleanup(func() { store.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, WaitReady(ctx, store, 100))
	})
}
