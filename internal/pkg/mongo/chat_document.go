package mongo

import (
	"Storefront/internal/model"
	"Storefront/internal/repository"
	"time"
)

const (
	conversationCollection = "conversations"
	counterCollection      = "counters"
	messageCounterID       = "message_id"
)

// conversationDoc 单文档聚合会话、deletedBy 与消息
type conversationDoc struct {
	ID        string       `bson:"_id"`
	UserA     string       `bson:"user_a"`
	UserB     string       `bson:"user_b"`
	DeletedBy []string     `bson:"deleted_by"`
	Messages  []messageDoc `bson:"messages,omitempty"`
	CreatedAt time.Time    `bson:"created_at"`
}

type messageDoc struct {
	ID        uint64    `bson:"id"`
	SenderID  string    `bson:"sender_id"`
	Text      string    `bson:"text"`
	Seen      bool      `bson:"seen"`
	IsSystem  bool      `bson:"is_system"`
	CreatedAt time.Time `bson:"created_at"`
}

type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func (d *conversationDoc) toRecord() *repository.ConversationRecord {
	deletedBy := d.DeletedBy
	if deletedBy == nil {
		deletedBy = []string{}
	}
	return &repository.ConversationRecord{
		Key:       d.ID,
		UserA:     d.UserA,
		UserB:     d.UserB,
		DeletedBy: deletedBy,
		CreatedAt: d.CreatedAt,
	}
}

func (m *messageDoc) toModel(conversationID string) *model.Message {
	return &model.Message{
		ID:             m.ID,
		ConversationID: conversationID,
		SenderID:       m.SenderID,
		Seen:           m.Seen,
		Text:           m.Text,
		IsSystem:       m.IsSystem,
		CreatedAt:      m.CreatedAt,
	}
}
