package repository

import (
	"Storefront/internal/model"
	"context"
	"slices"
	"time"
)

// ConversationRecord 会话及其 deletedBy 集合
type ConversationRecord struct {
	Key       string
	UserA     string
	UserB     string
	DeletedBy []string
	CreatedAt time.Time
}

func (r *ConversationRecord) IsDeletedBy(userID string) bool {
	return slices.Contains(r.DeletedBy, userID)
}

type ConversationRepo interface {
	EnsureConversation(ctx context.Context, idA string, aIsAdmin bool, idB string, bIsAdmin bool) (string, error)
	GetConversation(ctx context.Context, key string) (*ConversationRecord, error)
	// MarkDeleted 双方都删除后彻底清除会话，purged 表示是否已清除
	MarkDeleted(ctx context.Context, key string, userID string) (purged bool, err error)
	UnmarkDeleted(ctx context.Context, key string, userID string) error
	ListConversationsForParticipant(ctx context.Context, userID string, includeAsAdmin bool) ([]string, error)
}

type MessageRepo interface {
	Append(ctx context.Context, conversationID string, senderID string, text string, isSystem bool) (*model.Message, error)
	ListForConversation(ctx context.Context, conversationID string) ([]*model.Message, error)
	MarkSeenBulk(ctx context.Context, conversationID string, exceptSenderID string) (int64, error)
	LastMessage(ctx context.Context, conversationID string) (*model.Message, error)
	CountUnread(ctx context.Context, conversationID string, viewerID string) (int64, error)
}

type UnreadAggregator interface {
	UnreadCountFor(ctx context.Context, userID string) (int64, error)
}

// ChatStore 聊天存储，关系型与文档型两种实现
type ChatStore interface {
	ConversationRepo
	MessageRepo
	UnreadAggregator
}
