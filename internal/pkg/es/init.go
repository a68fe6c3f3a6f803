package es

import (
	"Storefront/internal/api/config"
	"Storefront/internal/pkg/logger"
	"context"
	"fmt"
	log "log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

var Client *elasticsearch.TypedClient

var ProductIndex string

const (
	NotFoundCode = 404
	ConflictCode = 409
)

// InitClient 初始化客户端并确保商品索引存在
func InitClient() error {
	elasticCfg := config.Cfg.Elastic
	ProductIndex = elasticCfg.Indices.ProductIndex

	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses: []string{elasticCfg.Address},
		Username:  elasticCfg.Username,
		Password:  elasticCfg.Password,
		Transport: &logger.ESTransport{
			Transport: http.DefaultTransport,
		},
	})
	if err != nil {
		return fmt.Errorf("elasticsearch client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	info, err := client.Info().Do(ctx)
	if err != nil {
		return fmt.Errorf("elasticsearch info: %w", err)
	}
	Client = client

	if err = EnsureProductIndex(ctx, client, ProductIndex); err != nil {
		return err
	}
	log.Info("Connected to Elasticsearch", "version", info.Version.Int, "product_index", ProductIndex)
	return nil
}

// EnsureProductIndex 索引不存在时按 ProductES 建映射
func EnsureProductIndex(ctx context.Context, client *elasticsearch.TypedClient, index string) error {
	exists, err := client.Indices.Exists(index).Do(ctx)
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	if exists {
		return nil
	}

	_, err = client.Indices.Create(index).Mappings(&types.TypeMapping{
		Properties: map[string]types.Property{
			"id":          types.NewKeywordProperty(),
			"owner_id":    types.NewKeywordProperty(),
			"name":        types.NewTextProperty(),
			"type":        types.NewTextProperty(),
			"description": types.NewTextProperty(),
			"price":       types.NewDoubleNumberProperty(),
			"created_at":  types.NewDateProperty(),
		},
	}).Do(ctx)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	log.Info("Created Elasticsearch index", "index", index)
	return nil
}
