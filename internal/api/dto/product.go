package dto

import "time"

// ProductImageDTO 商品图片，Slot 从 1 开始
type ProductImageDTO struct {
	Slot         int    `json:"slot"`
	ImageURL     string `json:"image_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// ProductDTO 商品
type ProductDTO struct {
	ID          string             `json:"id"`
	OwnerID     string             `json:"owner_id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Price       float64            `json:"price"`
	Description string             `json:"description"`
	Views       int64              `json:"views"`
	Inquiries   int64              `json:"inquiries"`
	Images      []*ProductImageDTO `json:"images"`
	CreatedAt   time.Time          `json:"created_at"`
}

// ProductFormDTO 创建/修改商品 (multipart 表单)
type ProductFormDTO struct {
	Name        string  `form:"name" validate:"required,min=1,max=200"`
	Type        string  `form:"type" validate:"required,max=50"`
	Price       float64 `form:"price" validate:"gte=0"`
	Description string  `form:"description" validate:"max=5000"`
}

// ListProductsDTO 分页参数
type ListProductsDTO struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// SearchProductsDTO 搜索参数
type SearchProductsDTO struct {
	Query string `form:"q" binding:"required"`
	From  int    `form:"from"`
	Size  int    `form:"size"`
}

// MerchantCardDTO 商品页上的商家卡片
type MerchantCardDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	StoreName     *string `json:"store_name,omitempty"`
	Photo         string  `json:"photo"`
	Location      *string `json:"location,omitempty"`
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int64   `json:"ratings_count"`
}

// ProductPageDTO 商品详情页
type ProductPageDTO struct {
	Product  *ProductDTO      `json:"product"`
	Merchant *MerchantCardDTO `json:"merchant"`
	Views    int64            `json:"views"`
	Contacts int64            `json:"contacts"`
}

// StorePageDTO 店铺页
type StorePageDTO struct {
	Merchant *MerchantCardDTO `json:"merchant"`
	Products []*ProductDTO    `json:"products"`
}

// ReviewDTO 评价请求
type ReviewDTO struct {
	Rating  int     `json:"rating" binding:"required"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// ReviewItemDTO 店铺页评价列表项
type ReviewItemDTO struct {
	ReviewerID string    `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Comment    *string   `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewResultDTO 评价后的商家评分
type ReviewResultDTO struct {
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int64   `json:"ratings_count"`
}

// SearchResultDTO 搜索结果
type SearchResultDTO struct {
	Total    int64         `json:"total"`
	Products []*ProductDTO `json:"products"`
}
