package model

import "time"

type Product struct {
	ID          string    `gorm:"primaryKey;type:varchar(26)"`
	OwnerID     string    `gorm:"type:varchar(26);not null;index"`
	Name        string    `gorm:"type:varchar(255);not null"`
	Type        string    `gorm:"type:varchar(100);not null;index"`
	Price       float64   `gorm:"not null;default:0"`
	Description string    `gorm:"type:text"`
	Views       int64     `gorm:"not null;default:0"`
	Inquiries   int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time

	Images []ProductImage `gorm:"foreignKey:ProductID;references:ID"`
}

func (Product) TableName() string {
	return "products"
}

// ProductImage 商品图片，Slot 从 1 开始
type ProductImage struct {
	ID           uint64 `gorm:"primaryKey"`
	ProductID    string `gorm:"type:varchar(26);not null;uniqueIndex:idx_product_slot"`
	Slot         int    `gorm:"not null;uniqueIndex:idx_product_slot"`
	ImageURL     string `gorm:"type:varchar(512);not null"`
	ThumbnailURL string `gorm:"type:varchar(512);not null"`
	CreatedAt    time.Time
}

func (ProductImage) TableName() string {
	return "product_images"
}
