package kafka

import (
	"Storefront/internal/api/config"
	"Storefront/internal/pkg/es"
	"context"
	"fmt"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
)

// 消费组异常退出后的重连间隔
const reconsumeDelay = 2 * time.Second

// ConsumerManager 商品 binlog 消费组，驱动搜索索引同步
type ConsumerManager struct {
	topic   string
	group   sarama.ConsumerGroup
	handler sarama.ConsumerGroupHandler
}

func NewConsumerManager(cfg *config.Config, productESRepo es.ProductRepo) (*ConsumerManager, error) {
	group, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaProductConsumer.GroupID, newSaramaConfig(cfg.Kafka))
	if err != nil {
		return nil, fmt.Errorf("kafka consumer group %s: %w", cfg.KafkaProductConsumer.GroupID, err)
	}
	return &ConsumerManager{
		topic:   cfg.KafkaProductConsumer.Topic,
		group:   group,
		handler: NewProductsHandler(productESRepo),
	}, nil
}

// Start 阻塞消费直到 ctx 取消，再关闭消费组
func (m *ConsumerManager) Start(ctx context.Context) error {
	go func() {
		for err := range m.group.Errors() {
			log.Error("product consumer group error", "topic", m.topic, "err", err)
		}
	}()

	log.Info("Product consumer started", "topic", m.topic)
	for ctx.Err() == nil {
		if err := m.group.Consume(ctx, []string{m.topic}, m.handler); err != nil {
			log.Error("product consume failed", "topic", m.topic, "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(reconsumeDelay):
			}
		}
	}

	log.Info("Product consumer shutting down", "topic", m.topic)
	if err := m.group.Close(); err != nil {
		return fmt.Errorf("close product consumer: %w", err)
	}
	return nil
}
