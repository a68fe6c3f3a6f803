package redis

import (
	"Storefront/internal/pkg/consts"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	Rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = Rdb.Close() })
	return mr
}

func TestSessionFlagStoreMarksOncePerSession(t *testing.T) {
	mr := setupMiniRedis(t)
	ctx := context.Background()
	flags := NewSessionFlagStore(time.Hour)

	first, err := flags.MarkInquiry(ctx, "sess-1", "p7")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := flags.MarkInquiry(ctx, "sess-1", "p7")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := flags.MarkInquiry(ctx, "sess-2", "p7")
	require.NoError(t, err)
	assert.True(t, other)

	mr.FastForward(2 * time.Hour)
	expired, err := flags.MarkInquiry(ctx, "sess-1", "p7")
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestIncrWithDirtyAndRename(t *testing.T) {
	setupMiniRedis(t)
	ctx := context.Background()

	n, err := IncrWithDirty(ctx, consts.ProductViewKey+"p1", consts.ProductViewDirtyKey, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = IncrWithDirty(ctx, consts.ProductViewKey+"p1", consts.ProductViewDirtyKey, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err := Rename(ctx, consts.ProductViewDirtyKey, consts.ProductViewDirtyKey+":processing")
	require.NoError(t, err)
	assert.True(t, ok)

	members, err := GetSet(ctx, consts.ProductViewDirtyKey+":processing")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, members)

	ok, err = Rename(ctx, consts.ProductViewDirtyKey, consts.ProductViewDirtyKey+":processing")
	require.NoError(t, err)
	assert.False(t, ok)

	value, err := GetAndDelete(ctx, consts.ProductViewKey+"p1")
	require.NoError(t, err)
	assert.Equal(t, "2", value)
	left, err := GetValue(ctx, consts.ProductViewKey+"p1")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestTryLockIsOwnedByToken(t *testing.T) {
	ctx := context.Background()
	setupMiniRedis(t)

	ok, err := TryLock(ctx, "lock:test", "a", time.Minute, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TryLock(ctx, "lock:test", "b", time.Minute, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, UnLock(ctx, "lock:test", "b"))
	held, err := GetValue(ctx, "lock:test")
	require.NoError(t, err)
	assert.Equal(t, "a", held)

	require.NoError(t, UnLock(ctx, "lock:test", "a"))
	ok, err = TryLock(ctx, "lock:test", "b", time.Minute, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
