package realtime

import (
	"Storefront/internal/pkg/consts"
	"context"

	"github.com/redis/go-redis/v9"
)

// Broadcaster 向某个用户的房间推送，尽力而为
type Broadcaster interface {
	Emit(ctx context.Context, userID string, payload []byte) error
}

// LocalBroadcaster 单实例，直接投递本地连接
type LocalBroadcaster struct {
	registry *Registry
}

func NewLocalBroadcaster(registry *Registry) *LocalBroadcaster {
	return &LocalBroadcaster{registry: registry}
}

func (b *LocalBroadcaster) Emit(_ context.Context, userID string, payload []byte) error {
	b.registry.Emit(userID, payload)
	return nil
}

// RedisBroadcaster 多实例，发布到 im:user:<id>，由各实例的 RedisBridge 转发
type RedisBroadcaster struct {
	rdb *redis.Client
}

func NewRedisBroadcaster(rdb *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb}
}

func (b *RedisBroadcaster) Emit(ctx context.Context, userID string, payload []byte) error {
	return b.rdb.Publish(ctx, consts.IMUserKey+userID, payload).Err()
}
