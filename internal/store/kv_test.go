package store

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupKV(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisKV(client)
}

func TestRedisKV_GetSetDel(t *testing.T) {
	mr, kv := setupKV(t)
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "k1", "v1", time.Minute))
	v, err := kv.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)
	assert.Equal(t, time.Minute, mr.TTL("k1"))

	require.NoError(t, kv.Del(ctx, "k1"))
	_, err = kv.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, kv.Del(ctx))
}

func TestRedisKV_ScanAndMGet(t *testing.T) {
	_, kv := setupKV(t)
	ctx := context.Background()

	for _, k := range []string{"asset:status:A", "asset:status:B", "other:C"} {
		require.NoError(t, kv.Set(ctx, k, k, 0))
	}

	keys, err := kv.ScanKeys(ctx, "asset:status:*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"asset:status:A", "asset:status:B"}, keys)

	vals, err := kv.MGet(ctx, "asset:status:A", "gone", "asset:status:B")
	require.NoError(t, err)
	assert.Equal(t, []string{"asset:status:A", "asset:status:B"}, vals)
}
