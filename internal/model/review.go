package model

import "time"

type Review struct {
	ID         uint64  `gorm:"primaryKey"`
	MerchantID string  `gorm:"type:varchar(26);not null;index"`
	ReviewerID string  `gorm:"type:varchar(26);not null;index"`
	Rating     int     `gorm:"not null"`
	Comment    *string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (Review) TableName() string {
	return "reviews"
}
