package model

import (
	"time"
)

const (
	RoleNormal = "normal"
	RoleAdmin  = "admin"
)

type User struct {
	ID           string  `gorm:"primaryKey;type:varchar(26)"`
	Email        string  `gorm:"type:varchar(255);uniqueIndex:idx_email;not null"`
	Name         string  `gorm:"type:varchar(100);not null"`
	Number       *string `gorm:"type:varchar(30)"`
	Location     *string `gorm:"type:varchar(255)"`
	Photo        *string `gorm:"type:varchar(512)"`
	Password     string  `gorm:"type:varchar(255);not null"`
	Role         string  `gorm:"type:varchar(16);not null;default:'normal';index"`
	StoreName    *string `gorm:"type:varchar(100)"`
	MapAddress   *string `gorm:"type:varchar(512)"`
	IPCity       *string `gorm:"type:varchar(100)"`
	RatingsTotal int64   `gorm:"not null;default:0"`
	RatingsCount int64   `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// AverageRating 平均评分，保留两位小数
func (u *User) AverageRating() float64 {
	if u == nil || u.RatingsCount == 0 {
		return 0
	}
	return Round2(float64(u.RatingsTotal) / float64(u.RatingsCount))
}
