package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryEmitsToEverySessionOfUser(t *testing.T) {
	reg := NewRegistry()
	tab1 := NewClient("u1", 4)
	tab2 := NewClient("u1", 4)
	other := NewClient("u2", 4)
	reg.Register(tab1)
	reg.Register(tab2)
	reg.Register(other)
	assert.Equal(t, 2, reg.Online("u1"))

	n := reg.Emit("u1", []byte("hello"))
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("hello"), <-tab1.Send)
	assert.Equal(t, []byte("hello"), <-tab2.Send)
	assert.Len(t, other.Send, 0)

	assert.Equal(t, 0, reg.Emit("nobody", []byte("x")))
}

func TestRegistryDropsWhenQueueFull(t *testing.T) {
	reg := NewRegistry()
	c := NewClient("u1", 1)
	reg.Register(c)

	assert.Equal(t, 1, reg.Emit("u1", []byte("a")))
	assert.Equal(t, 0, reg.Emit("u1", []byte("b")))
	assert.Equal(t, []byte("a"), <-c.Send)
}

func TestRegistryUnregisterAndClosedClients(t *testing.T) {
	reg := NewRegistry()
	c := NewClient("u1", 2)
	reg.Register(c)
	reg.Register(c)
	assert.Equal(t, 1, reg.Online("u1"))

	c.Close()
	c.Close()
	assert.Equal(t, 0, reg.Emit("u1", []byte("a")))

	reg.Unregister(c)
	reg.Unregister(c)
	assert.Equal(t, 0, reg.Online("u1"))
}

func TestRedisBridgeFansIntoLocalRegistry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	reg := NewRegistry()
	c := NewClient("u1", 4)
	reg.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	bridge := NewRedisBridge(rdb, reg)
	go func() { done <- bridge.Run(ctx) }()

	select {
	case <-bridge.Ready():
	case <-time.After(3 * time.Second):
		t.Fatal("bridge did not subscribe")
	}

	require.NoError(t, NewRedisBroadcaster(rdb).Emit(ctx, "u1", []byte(`{"event":"message_received"}`)))

	select {
	case got := <-c.Send:
		assert.JSONEq(t, `{"event":"message_received"}`, string(got))
	case <-time.After(3 * time.Second):
		t.Fatal("message not bridged")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("bridge did not stop")
	}
}

func TestLocalBroadcaster(t *testing.T) {
	reg := NewRegistry()
	c := NewClient("u1", 1)
	reg.Register(c)
	require.NoError(t, NewLocalBroadcaster(reg).Emit(context.Background(), "u1", []byte("x")))
	assert.Equal(t, []byte("x"), <-c.Send)
}
