package kafka

import (
	"Storefront/internal/pkg/es"
	"context"
	"errors"
	log "log/slog"

	"github.com/IBM/sarama"
)

const productTable = "products"

// ProductsHandler 将 products 表的 binlog 同步到搜索索引
type ProductsHandler struct {
	productESRepo es.ProductRepo
}

func NewProductsHandler(productESRepo es.ProductRepo) *ProductsHandler {
	return &ProductsHandler{productESRepo: productESRepo}
}

func (s *ProductsHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("product consumer setup")
	return nil
}

func (s *ProductsHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("product consumer cleanup")
	return nil
}

func (s *ProductsHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-product consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-product process batch error", "err", err)
		return err
	}
	log.Info("topic-product consume claim end")
	return nil
}

func (s *ProductsHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	canalMsg, err := ToCanalMessage(msg, productTable)
	if err != nil {
		// 其他表、空数据与无法解析的消息直接跳过，重试无意义
		if errors.Is(err, ErrTableMismatch) || errors.Is(err, ErrEmptyData) || errors.Is(err, ErrMalformed) {
			log.WarnContext(ctx, "skip canal message", "offset", msg.Offset, "err", err)
			return nil
		}
		return err
	}
	if canalMsg.IsDDL {
		return nil
	}

	for _, row := range canalMsg.Data {
		id := StrToString(row["id"])
		if id == "" {
			continue
		}
		if canalMsg.Type == DELETE {
			if err = s.productESRepo.DeleteProduct(ctx, id); err != nil {
				return err
			}
			continue
		}
		if err = s.productESRepo.IndexProduct(ctx, toProductES(row), canalMsg.TS); err != nil {
			return err
		}
	}
	return nil
}

func toProductES(row map[string]interface{}) *es.ProductES {
	return &es.ProductES{
		ID:          StrToString(row["id"]),
		OwnerID:     StrToString(row["owner_id"]),
		Name:        StrToString(row["name"]),
		Type:        StrToString(row["type"]),
		Description: StrToString(row["description"]),
		Price:       StrToFloat64(row["price"]),
		CreatedAt:   StrToDateTime(row["created_at"]),
	}
}
