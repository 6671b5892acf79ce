package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnonCart(t *testing.T) (*AnonCartRedis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewAnonCartRedis(rdb), mr
}

func TestAnonCartRedis_SetGetDelete(t *testing.T) {
	r, mr := newAnonCart(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a1", 7, 2))
	require.NoError(t, r.Set(ctx, "a1", 9, 1))
	require.NoError(t, r.Set(ctx, "a1", 7, 5))

	got, err := r.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{7: 5, 9: 1}, got)
	assert.Equal(t, "5", mr.HGet("cart:a:a1", "7"))
	assert.Equal(t, anonCartTTL, mr.TTL("cart:a:a1"))

	//0 は削除
	require.NoError(t, r.Set(ctx, "a1", 9, 0))
	got, err = r.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{7: 5}, got)

	//無い行の削除もエラーにならない
	require.NoError(t, r.Delete(ctx, "a1", 100))
}

func TestAnonCartRedis_IsolatedPerAnon(t *testing.T) {
	r, _ := newAnonCart(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a1", 1, 1))
	require.NoError(t, r.Set(ctx, "a2", 1, 3))
	require.NoError(t, r.Clear(ctx, "a1"))

	got, err := r.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.Get(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 3}, got)
}

func TestAnonCartRedis_IgnoresGarbage(t *testing.T) {
	r, mr := newAnonCart(t)
	mr.HSet("cart:a:x", "abc", "1")
	mr.HSet("cart:a:x", "5", "nope")
	mr.HSet("cart:a:x", "6", "2")

	got, err := r.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{6: 2}, got)
}
