package handler

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/pkg/response"
	"Storefront/internal/pkg/util"
	"Storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviewSvc service.ReviewService
}

func NewReviewHandler(reviewSvc service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewSvc: reviewSvc}
}

func (s *ReviewHandler) ReviewStore(c *gin.Context) {
	var req dto.ReviewDTO
	err := c.ShouldBindJSON(&req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err = util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := s.reviewSvc.ReviewStore(c.Request.Context(), c.GetString("user_id"), c.Param("merchant_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func (s *ReviewHandler) ListReviews(c *gin.Context) {
	items, err := s.reviewSvc.ListReviews(c.Request.Context(), c.Param("merchant_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}
