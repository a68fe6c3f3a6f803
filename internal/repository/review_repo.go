package repository

import (
	"Storefront/internal/model"
	"context"

	"gorm.io/gorm"
)

type ReviewRepo interface {
	// CreateReview 写入评价并原子累加商家评分
	CreateReview(ctx context.Context, review *model.Review) (*model.User, error)
	ListReviewsByMerchant(ctx context.Context, merchantID string, limit int) ([]*model.Review, error)
}

type reviewRepoImpl struct {
	db *gorm.DB
}

func NewReviewRepo(db *gorm.DB) ReviewRepo {
	return &reviewRepoImpl{db: db}
}

func (r *reviewRepoImpl) CreateReview(ctx context.Context, review *model.Review) (*model.User, error) {
	merchant := &model.User{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.User{}).Where("id = ?", review.MerchantID).
			Updates(map[string]interface{}{
				"ratings_total": gorm.Expr("ratings_total + ?", review.Rating),
				"ratings_count": gorm.Expr("ratings_count + ?", 1),
			}).Error
		if err != nil {
			return err
		}
		if review.Comment != nil && *review.Comment != "" {
			if err = tx.Create(review).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", review.MerchantID).First(merchant).Error
	})
	if err != nil {
		return nil, err
	}
	return merchant, nil
}

func (r *reviewRepoImpl) ListReviewsByMerchant(ctx context.Context, merchantID string, limit int) ([]*model.Review, error) {
	reviews := make([]*model.Review, 0)
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("id DESC").
		Limit(limit).
		Find(&reviews).Error
	return reviews, err
}
