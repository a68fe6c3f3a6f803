package realtime

import (
	"Storefront/internal/pkg/consts"
	"context"
	log "log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBridge 每个实例一个模式订阅，把 im:user:* 消息转入本地 Registry
type RedisBridge struct {
	rdb      *redis.Client
	registry *Registry
	ready    chan struct{}
}

func NewRedisBridge(rdb *redis.Client, registry *Registry) *RedisBridge {
	return &RedisBridge{
		rdb:      rdb,
		registry: registry,
		ready:    make(chan struct{}),
	}
}

// Ready 订阅确认后关闭
func (b *RedisBridge) Ready() <-chan struct{} {
	return b.ready
}

// Run 阻塞直到 ctx 结束
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.rdb.PSubscribe(ctx, consts.IMUserKey+"*")
	defer func() {
		_ = sub.Close()
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	close(b.ready)
	log.Info("realtime redis bridge subscribed", "pattern", consts.IMUserKey+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID := strings.TrimPrefix(msg.Channel, consts.IMUserKey)
			if userID == "" {
				continue
			}
			b.registry.Emit(userID, []byte(msg.Payload))
		}
	}
}
