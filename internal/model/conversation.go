package model

import "time"

// Conversation 会话主表，主键即会话键 "<a>-<b>"
type Conversation struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserA     string    `gorm:"type:varchar(26);not null;index" json:"user_a"`
	UserB     string    `gorm:"type:varchar(26);not null;index" json:"user_b"`
	CreatedAt time.Time `json:"created_at"`
}

func (Conversation) TableName() string { return "conversations" }

// ConversationDeletion 单方删除标记 (deletedBy 集合)
type ConversationDeletion struct {
	ConversationID string    `gorm:"primaryKey;type:varchar(64)" json:"conversation_id"`
	UserID         string    `gorm:"primaryKey;type:varchar(26);index" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ConversationDeletion) TableName() string { return "conversation_deletions" }
