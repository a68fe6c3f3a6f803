package es

import (
	"context"
	"errors"
	log "log/slog"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/versiontype"
	"github.com/goccy/go-json"
)

const MaxSearchDepth = 500

// 类型 > 名称 > 描述
var productSearchFields = []string{"type^5", "name^4", "description"}

type ProductRepo interface {
	SearchProducts(ctx context.Context, query string, from, size int) ([]*ProductES, int64, error)
	IndexProduct(ctx context.Context, product *ProductES, version int64) error
	DeleteProduct(ctx context.Context, id string) error
}

type ProductRepoImpl struct {
	client *elasticsearch.TypedClient
}

func NewProductRepo(client *elasticsearch.TypedClient) ProductRepo {
	return &ProductRepoImpl{client: client}
}

func (s *ProductRepoImpl) SearchProducts(ctx context.Context, query string, from, size int) ([]*ProductES, int64, error) {
	if query == "" || from >= MaxSearchDepth {
		return []*ProductES{}, 0, nil
	}

	resp, err := s.client.Search().Index(ProductIndex).
		Query(&types.Query{
			MultiMatch: &types.MultiMatchQuery{
				Query:  query,
				Fields: productSearchFields,
			},
		}).
		From(from).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if resp.Hits.Total != nil {
		total = resp.Hits.Total.Value
	}
	results := make([]*ProductES, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		if hit.Source_ == nil {
			continue
		}
		var product ProductES
		if err = json.Unmarshal(hit.Source_, &product); err != nil {
			log.WarnContext(ctx, "skip malformed product doc", "err", err)
			continue
		}
		results = append(results, &product)
	}
	return results, total, nil
}

// IndexProduct 外部版本号写入，旧版本数据直接丢弃
func (s *ProductRepoImpl) IndexProduct(ctx context.Context, product *ProductES, version int64) error {
	_, err := s.client.Index(ProductIndex).
		Id(product.ID).
		Document(product).
		Version(strconv.FormatInt(version, 10)).
		VersionType(versiontype.External).
		Do(ctx)

	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) {
			if e.Status == ConflictCode {
				log.WarnContext(ctx, "Version conflict detected, skipping old data",
					"product_id", product.ID,
					"version", version)
				return nil
			}
		}
		return err
	}
	return nil
}

func (s *ProductRepoImpl) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.client.Delete(ProductIndex, id).Do(ctx)
	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) {
			if e.Status == NotFoundCode {
				log.WarnContext(ctx, "Product already deleted or not found in ES", "id", id)
				return nil
			}
		}
		return err
	}
	return nil
}
