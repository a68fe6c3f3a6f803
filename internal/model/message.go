package model

import "time"

type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string    `gorm:"type:varchar(64);not null;index:idx_conv_sender_seen,priority:1" json:"conversation_id"`
	SenderID       string    `gorm:"type:varchar(26);not null;index:idx_conv_sender_seen,priority:2" json:"sender_id"`
	Seen           bool      `gorm:"not null;default:false;index:idx_conv_sender_seen,priority:3" json:"seen"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	IsSystem       bool      `gorm:"not null;default:false" json:"is_system"`
	CreatedAt      time.Time `json:"timestamp"`
}

func (Message) TableName() string { return "messages" }
