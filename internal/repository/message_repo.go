package repository

import (
	"Storefront/internal/model"
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Append 写入消息，消息 ID 由数据库自增保证会话内全序；会话已被清除时返回 ErrConversationNotFound
func (s *chatStoreImpl) Append(ctx context.Context, conversationID string, senderID string, text string, isSystem bool) (*model.Message, error) {
	if !isSystem && strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	msg := &model.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		IsSystem:       isSystem,
		CreatedAt:      time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 与 MarkDeleted 争同一行锁，清除与写入不会交错
		var conv model.Conversation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", conversationID).
			First(&conv).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConversationNotFound
			}
			return err
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "append message")
	}
	return msg, nil
}

func (s *chatStoreImpl) ListForConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	msgs := make([]*model.Message, 0)
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	return msgs, nil
}

// MarkSeenBulk 将对方发送的未读消息全部置为已读
func (s *chatStoreImpl) MarkSeenBulk(ctx context.Context, conversationID string, exceptSenderID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND seen = ?", conversationID, exceptSenderID, false).
		Update("seen", true)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "mark seen")
	}
	return result.RowsAffected, nil
}

func (s *chatStoreImpl) LastMessage(ctx context.Context, conversationID string) (*model.Message, error) {
	msgs := make([]*model.Message, 0, 1)
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		Limit(1).
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "last message")
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[0], nil
}

func (s *chatStoreImpl) CountUnread(ctx context.Context, conversationID string, viewerID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND seen = ?", conversationID, viewerID, false).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "count unread")
	}
	return count, nil
}
