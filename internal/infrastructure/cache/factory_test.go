package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/catalogsync/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis points at a port nothing listens on
func unreachableRedis() config.RedisConfig {
	return config.RedisConfig{Host: "127.0.0.1", Port: 1}
}

func TestIdempotencyStoreFactory_Memory(t *testing.T) {
	f := NewIdempotencyStoreFactory(unreachableRedis())

	for _, kind := range []string{"", StoreMemory} {
		store, err := f.CreateStore(context.Background(), kind)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		require.NoError(t, store.Close())
	}
}

func TestIdempotencyStoreFactory_RedisFallback(t *testing.T) {
	f := NewIdempotencyStoreFactory(unreachableRedis())

	store, err := f.CreateStore(context.Background(), StoreRedis)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestIdempotencyStoreFactory_RedisRequired(t *testing.T) {
	f := NewIdempotencyStoreFactory(unreachableRedis(), WithInMemoryFallback(false))

	_, err := f.CreateStore(context.Background(), StoreRedis)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis idempotency store unavailable")
}

func TestIdempotencyStoreFactory_UnknownKind(t *testing.T) {
	f := NewIdempotencyStoreFactory(unreachableRedis())

	_, err := f.CreateStore(context.Background(), "etcd")
	assert.EqualError(t, err, `unknown idempotency store "etcd"`)
}

func TestRedisIdempotencyStore_WrapsClientErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	store := NewRedisIdempotencyStoreWithClient(client, "")
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "topic/0/1", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to mark delivery topic/0/1 as processed")

	_, err = store.IsProcessed(ctx, "topic/0/1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check delivery topic/0/1")
}
