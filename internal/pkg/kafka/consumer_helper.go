package kafka

import (
	"Storefront/internal/pkg/logger"
	"Storefront/internal/pkg/metrics"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

const (
	batchSize        = 32
	batchTimeout     = 1 * time.Second
	batchConcurrency = 8
	retryBase        = 100 * time.Millisecond
	retryMax         = 5 * time.Second
)

var (
	ErrTableMismatch = errors.New("table name not match")
	ErrEmptyData     = errors.New("data is empty")
	ErrMalformed     = errors.New("malformed canal message")
)

type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// pullMessageBatch 攒批消费，满批或超时即处理
func pullMessageBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic LogicFunc) error {
	batch := make([]*sarama.ConsumerMessage, 0, batchSize)
	ticker := time.NewTicker(batchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if processBatch(session.Context(), batch, logic) {
			session.MarkMessage(batch[len(batch)-1], "")
			session.Commit()
		}
		batch = batch[:0]
	}

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				flush()
				return nil
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				flush()
				ticker.Reset(batchTimeout)
			}
		case <-ticker.C:
			flush()
		case <-session.Context().Done():
			return nil
		}
	}
}

// processBatch 并发处理整批，全部成功才返回 true；会话结束时放弃提交
func processBatch(ctx context.Context, messages []*sarama.ConsumerMessage, logic LogicFunc) bool {
	g := new(errgroup.Group)
	g.SetLimit(batchConcurrency)
	for _, msg := range messages {
		g.Go(func() error {
			return retryUntilDone(ctx, msg, logic)
		})
	}
	return g.Wait() == nil
}

// retryUntilDone 指数退避重试，直到成功或 ctx 取消
func retryUntilDone(parent context.Context, m *sarama.ConsumerMessage, logic LogicFunc) error {
	ctx := logger.NewTraceContext(parent, "kafka-")
	interval := retryBase
	for {
		err := logic(ctx, m)
		if err == nil {
			metrics.IndexSyncMessages.WithLabelValues("ok").Inc()
			return nil
		}
		metrics.IndexSyncMessages.WithLabelValues("retry").Inc()
		log.ErrorContext(ctx, "process message error", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		interval = min(interval*2, retryMax)
	}
}

// ToCanalMessage 解析 canal 消息，并校验表名与数据非空
func ToCanalMessage(msg *sarama.ConsumerMessage, tableName string) (*CanalMessage, error) {
	var canalMsg CanalMessage
	if err := json.Unmarshal(msg.Value, &canalMsg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if canalMsg.Table != tableName {
		return nil, ErrTableMismatch
	}
	if len(canalMsg.Data) == 0 {
		return nil, ErrEmptyData
	}
	return &canalMsg, nil
}
