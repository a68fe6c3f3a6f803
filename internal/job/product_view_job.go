package job

import (
	"Storefront/internal/pkg/consts"
	"Storefront/internal/pkg/logger"
	"Storefront/internal/pkg/redis"
	"Storefront/internal/repository"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	productViewProcessingKey = consts.ProductViewDirtyKey + ":processing"
	// 多实例同时跑 cron 时只允许一个回写
	productViewLockTTL = 2 * time.Minute
)

// ProductViewJob 将 Redis 中累计的浏览量批量回写数据库
type ProductViewJob struct {
	productRepo repository.ProductRepo
}

func NewProductViewJob(productRepo repository.ProductRepo) *ProductViewJob {
	return &ProductViewJob{productRepo: productRepo}
}

func (s *ProductViewJob) Run() {
	ctx := logger.NewTraceContext(context.Background(), "job-product-view-")
	token := uuid.NewString()
	locked, err := redis.TryLock(ctx, consts.ProductViewLockKey, token, productViewLockTTL, 0)
	if err != nil {
		log.ErrorContext(ctx, "acquire product view lock error", "err", err)
		return
	}
	if !locked {
		log.DebugContext(ctx, "product view flush running elsewhere, skip")
		return
	}
	defer func() {
		if err := redis.UnLock(ctx, consts.ProductViewLockKey, token); err != nil {
			log.WarnContext(ctx, "release product view lock error", "err", err)
		}
	}()

	flushed, err := s.Flush(ctx)
	if err != nil {
		log.ErrorContext(ctx, "flush product views error", "err", err)
		return
	}
	if flushed > 0 {
		log.InfoContext(ctx, "flush product views success", "product_count", flushed)
	}
}

// Flush 先处理上次中断遗留的批次，再切换脏集合处理本轮
func (s *ProductViewJob) Flush(ctx context.Context) (int, error) {
	leftover, err := s.drain(ctx)
	if err != nil {
		return leftover, err
	}

	ok, err := redis.Rename(ctx, consts.ProductViewDirtyKey, productViewProcessingKey)
	if err != nil || !ok {
		return leftover, err
	}
	flushed, err := s.drain(ctx)
	return leftover + flushed, err
}

func (s *ProductViewJob) drain(ctx context.Context) (int, error) {
	ids, err := redis.GetSet(ctx, productViewProcessingKey)
	if err != nil {
		return 0, err
	}

	flushed := 0
	for _, id := range ids {
		counterKey := consts.ProductViewKey + id
		value, err := redis.GetAndDelete(ctx, counterKey)
		if err != nil {
			log.ErrorContext(ctx, "read product view counter error", "product_id", id, "err", err)
			continue
		}
		delta, err := strconv.ParseInt(value, 10, 64)
		if err != nil || delta <= 0 {
			continue
		}
		if err = s.productRepo.AddViews(ctx, id, delta); err != nil {
			log.ErrorContext(ctx, "add product views error", "product_id", id, "err", err)
			// 还回计数器，下一轮重试
			if _, err = redis.IncrByWithDirty(ctx, counterKey, consts.ProductViewDirtyKey, id, delta); err != nil {
				log.ErrorContext(ctx, "restore product view counter error", "product_id", id, "delta", delta, "err", err)
			}
			continue
		}
		flushed++
	}

	return flushed, redis.DeleteKey(ctx, productViewProcessingKey)
}
