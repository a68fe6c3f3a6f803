package service

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/model"
	"Storefront/internal/pkg/util"
	"Storefront/internal/repository"
	"context"

	"github.com/jinzhu/copier"
)

type ReviewService interface {
	ReviewStore(ctx context.Context, reviewerID string, merchantID string, req *dto.ReviewDTO) (*dto.ReviewResultDTO, error)
	ListReviews(ctx context.Context, merchantID string) ([]*dto.ReviewItemDTO, error)
}

const (
	minRating = 1
	maxRating = 5

	recentReviewLimit = 20
)

type ReviewServiceImpl struct {
	reviewRepo repository.ReviewRepo
	userRepo   repository.UserRepo
}

func NewReviewService(reviewRepo repository.ReviewRepo, userRepo repository.UserRepo) ReviewService {
	return &ReviewServiceImpl{reviewRepo: reviewRepo, userRepo: userRepo}
}

func (s *ReviewServiceImpl) ReviewStore(ctx context.Context, reviewerID string, merchantID string, req *dto.ReviewDTO) (*dto.ReviewResultDTO, error) {
	if reviewerID == "" {
		return nil, ErrAuthenticationRequired
	}
	if req.Rating < minRating || req.Rating > maxRating {
		return nil, ErrInvalidRating
	}
	if err := util.ValidateDTO(req); err != nil {
		return nil, ErrParamInvalid
	}
	if reviewerID == merchantID {
		return nil, ErrForbidden
	}

	merchant, err := s.userRepo.GetUserById(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if !merchant.IsAdmin() {
		return nil, ErrMerchantNotFound
	}

	updated, err := s.reviewRepo.CreateReview(ctx, &model.Review{
		MerchantID: merchant.ID,
		ReviewerID: reviewerID,
		Rating:     req.Rating,
		Comment:    util.OptionalString(req.Comment),
	})
	if err != nil {
		return nil, err
	}
	return &dto.ReviewResultDTO{
		AverageRating: updated.AverageRating(),
		RatingsCount:  updated.RatingsCount,
	}, nil
}

// ListReviews 店铺最近的文字评价
func (s *ReviewServiceImpl) ListReviews(ctx context.Context, merchantID string) ([]*dto.ReviewItemDTO, error) {
	merchant, err := s.userRepo.GetUserById(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if !merchant.IsAdmin() {
		return nil, ErrMerchantNotFound
	}

	reviews, err := s.reviewRepo.ListReviewsByMerchant(ctx, merchant.ID, recentReviewLimit)
	if err != nil {
		return nil, err
	}
	items := make([]*dto.ReviewItemDTO, 0, len(reviews))
	if err = copier.Copy(&items, &reviews); err != nil {
		return nil, err
	}
	return items, nil
}
