package mongo

import (
	"Storefront/internal/repository"
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

func newTestStore(t *testing.T) repository.ChatStore {
	t.Helper()
	uri := os.Getenv("STOREFRONT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("STOREFRONT_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database(fmt.Sprintf("storefront_test_%d", time.Now().UnixNano()))
	require.NoError(t, EnsureChatIndexes(ctx, db))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return NewChatStore(db)
}

func TestMongoChatStoreLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.EnsureConversation(ctx, "m1", true, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, "u1-m1", key)
	again, err := store.EnsureConversation(ctx, "u1", false, "m1", true)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	first, err := store.Append(ctx, key, "u1", "hello", false)
	require.NoError(t, err)
	second, err := store.Append(ctx, key, "m1", "hi", false)
	require.NoError(t, err)
	assert.Less(t, first.ID, second.ID)

	_, err = store.Append(ctx, key, "u1", "  ", false)
	assert.ErrorIs(t, err, repository.ErrEmptyText)
	_, err = store.Append(ctx, "x1-x2", "x1", "lost", false)
	assert.ErrorIs(t, err, repository.ErrConversationNotFound)

	msgs, err := store.ListForConversation(ctx, key)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Text)

	last, err := store.LastMessage(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, second.ID, last.ID)

	unread, err := store.UnreadCountFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	n, err := store.MarkSeenBulk(ctx, key, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	unread, err = store.UnreadCountFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	purged, err := store.MarkDeleted(ctx, key, "u1")
	require.NoError(t, err)
	assert.False(t, purged)
	keys, err := store.ListConversationsForParticipant(ctx, "u1", false)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, store.UnmarkDeleted(ctx, key, "u1"))
	keys, err = store.ListConversationsForParticipant(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	_, err = store.MarkDeleted(ctx, key, "u1")
	require.NoError(t, err)
	purged, err = store.MarkDeleted(ctx, key, "m1")
	require.NoError(t, err)
	assert.True(t, purged)

	_, err = store.GetConversation(ctx, key)
	assert.ErrorIs(t, err, repository.ErrConversationNotFound)
	msgs, err = store.ListForConversation(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMongoConcurrentMutualDeletePurgesOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key, err := store.EnsureConversation(ctx, "u1", false, "m1", true)
	require.NoError(t, err)
	_, err = store.Append(ctx, key, "u1", "hello", false)
	require.NoError(t, err)

	var purges atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for _, userID := range []string{"u1", "m1"} {
		g.Go(func() error {
			purged, err := store.MarkDeleted(gctx, key, userID)
			if purged {
				purges.Add(1)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), purges.Load())

	_, err = store.GetConversation(ctx, key)
	assert.ErrorIs(t, err, repository.ErrConversationNotFound)
	msgs, err := store.ListForConversation(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMongoConcurrentAppendsGetUniqueIncreasingIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key, err := store.EnsureConversation(ctx, "u1", false, "m1", true)
	require.NoError(t, err)

	const n = 20
	var mu sync.Mutex
	seen := make(map[uint64]bool, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			msg, err := store.Append(gctx, key, "u1", fmt.Sprintf("msg-%d", i), false)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[msg.ID] {
				return fmt.Errorf("duplicate message id %d", msg.ID)
			}
			seen[msg.ID] = true
			return nil
		})
	}
	require.NoError(t, g.Wait())

	msgs, err := store.ListForConversation(ctx, key)
	require.NoError(t, err)
	require.Len(t, msgs, n)
	for i := 1; i < len(msgs); i++ {
		assert.Less(t, msgs[i-1].ID, msgs[i].ID)
	}
}
