package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(context.Background()).Err())

	return client
}

func TestRedisLock_ExcludesSecondHolder(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	key := "slot:" + uuid.NewString()

	first := NewRedisLock(client, "instance-a")
	second := NewRedisLock(client, "instance-b")

	ok, err := first.Lock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Lock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// a foreign unlock leaves the lock in place
	require.NoError(t, second.Unlock(ctx, key))
	ok, err = second.Lock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Unlock(ctx, key))
	ok, err = second.Lock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, second.Unlock(ctx, key))
}
