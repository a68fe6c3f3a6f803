package repository

import (
	"Storefront/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepo interface {
	CreateProduct(ctx context.Context, product *model.Product) error
	GetProductById(ctx context.Context, id string) (*model.Product, error)
	GetProductsByIds(ctx context.Context, ids []string) ([]*model.Product, error)
	ListProducts(ctx context.Context, offset, limit int) ([]*model.Product, error)
	ListProductsByOwner(ctx context.Context, ownerID string) ([]*model.Product, error)
	ListSimilarProducts(ctx context.Context, productType string, excludeID string, limit int) ([]*model.Product, error)
	UpdateProduct(ctx context.Context, product *model.Product, images []*model.ProductImage) error
	DeleteProduct(ctx context.Context, id string) error
	IncrementInquiry(ctx context.Context, id string) error
	AddViews(ctx context.Context, id string, delta int64) error
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepo {
	return &productRepoImpl{db: db}
}

// CreateProduct 商品与图片同事务写入
func (r *productRepoImpl) CreateProduct(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepoImpl) GetProductById(ctx context.Context, id string) (*model.Product, error) {
	product := &model.Product{}
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("slot ASC") }).
		Where("id = ?", id).
		First(product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepoImpl) GetProductsByIds(ctx context.Context, ids []string) ([]*model.Product, error) {
	products := make([]*model.Product, 0)
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("slot ASC") }).
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}

// ListProducts 按创建时间倒序
func (r *productRepoImpl) ListProducts(ctx context.Context, offset, limit int) ([]*model.Product, error) {
	products := make([]*model.Product, 0)
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("slot ASC") }).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&products).Error
	return products, err
}

// ListProductsByOwner ownerID 为空时返回全部
func (r *productRepoImpl) ListProductsByOwner(ctx context.Context, ownerID string) ([]*model.Product, error) {
	products := make([]*model.Product, 0)
	query := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("slot ASC") })
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}
	err := query.Order("created_at DESC").Order("id DESC").Find(&products).Error
	return products, err
}

func (r *productRepoImpl) ListSimilarProducts(ctx context.Context, productType string, excludeID string, limit int) ([]*model.Product, error) {
	products := make([]*model.Product, 0)
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("slot ASC") }).
		Where("type = ? AND id <> ?", productType, excludeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

// UpdateProduct 更新基础字段，并按槽位覆盖图片
func (r *productRepoImpl) UpdateProduct(ctx context.Context, product *model.Product, images []*model.ProductImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Product{}).Where("id = ?", product.ID).
			Select("name", "type", "price", "description").
			Updates(product).Error
		if err != nil {
			return err
		}
		if len(images) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "slot"}},
			DoUpdates: clause.AssignmentColumns([]string{"image_url", "thumbnail_url"}),
		}).Create(&images).Error
	})
}

func (r *productRepoImpl) DeleteProduct(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&model.ProductImage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Product{}).Error
	})
}

func (r *productRepoImpl) IncrementInquiry(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumn("inquiries", gorm.Expr("inquiries + ?", 1)).Error
}

// AddViews 浏览量增量回写
func (r *productRepoImpl) AddViews(ctx context.Context, id string, delta int64) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", delta)).Error
}
