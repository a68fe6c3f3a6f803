package dto

import "time"

// UserDTO 用户
type UserDTO struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Number        *string   `json:"number,omitempty"`
	Location      *string   `json:"location,omitempty"`
	Photo         string    `json:"photo"`
	Role          string    `json:"role"`
	StoreName     *string   `json:"store_name,omitempty"`
	MapAddress    *string   `json:"map_address,omitempty"`
	IPCity        *string   `json:"ip_city,omitempty"`
	AverageRating float64   `json:"average_rating"`
	RatingsCount  int64     `json:"ratings_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// RegisterDTO 注册
type RegisterDTO struct {
	Email    string  `json:"email" binding:"required" validate:"required,email,max=255"`
	Name     string  `json:"name" binding:"required" validate:"required,min=1,max=100"`
	Password string  `json:"password" binding:"required" validate:"required,min=6,max=64"`
	Number   *string `json:"number" validate:"omitempty,max=30"`
	Location *string `json:"location" validate:"omitempty,max=255"`
}

// LoginDTO 登录凭证
type LoginDTO struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResultDTO 登录结果，TTL 用于设置 cookie 有效期
type LoginResultDTO struct {
	Token string        `json:"token"`
	User  *UserDTO      `json:"user"`
	TTL   time.Duration `json:"-"`
}

// UpdateProfileDTO 修改资料 (multipart 表单)
type UpdateProfileDTO struct {
	Name   *string `form:"name" validate:"omitempty,min=1,max=100"`
	Number *string `form:"number" validate:"omitempty,max=30"`
}

// ApplyMerchantDTO 申请成为商家 (multipart 表单)
type ApplyMerchantDTO struct {
	StoreName  *string `form:"store_name" validate:"omitempty,max=100"`
	Number     *string `form:"number" validate:"omitempty,max=30"`
	MapAddress *string `form:"map_address" validate:"omitempty,max=512"`
	IPCity     *string `form:"ip_city" validate:"omitempty,max=100"`
}
