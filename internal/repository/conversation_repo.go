package repository

import (
	"Storefront/internal/model"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type chatStoreImpl struct {
	db *gorm.DB
}

func NewChatStore(db *gorm.DB) ChatStore {
	return &chatStoreImpl{db: db}
}

// EnsureConversation 幂等创建会话，返回规范会话键
func (s *chatStoreImpl) EnsureConversation(ctx context.Context, idA string, aIsAdmin bool, idB string, bIsAdmin bool) (string, error) {
	key, err := BuildConversationKey(idA, aIsAdmin, idB, bIsAdmin)
	if err != nil {
		return "", err
	}
	a, b, _ := SplitConversationKey(key)
	conv := &model.Conversation{ID: key, UserA: a, UserB: b}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(conv).Error
	if err != nil && !IsDuplicateKeyError(err) {
		return "", errors.Wrap(err, "ensure conversation")
	}
	return key, nil
}

func (s *chatStoreImpl) GetConversation(ctx context.Context, key string) (*ConversationRecord, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).Where("id = ?", key).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, errors.Wrap(err, "get conversation")
	}

	deletedBy := make([]string, 0, 2)
	err = s.db.WithContext(ctx).Model(&model.ConversationDeletion{}).
		Where("conversation_id = ?", key).
		Order("created_at ASC").
		Pluck("user_id", &deletedBy).Error
	if err != nil {
		return nil, errors.Wrap(err, "get conversation deletions")
	}

	return &ConversationRecord{
		Key:       conv.ID,
		UserA:     conv.UserA,
		UserB:     conv.UserB,
		DeletedBy: deletedBy,
		CreatedAt: conv.CreatedAt,
	}, nil
}

// MarkDeleted 行锁内完成 "标记 + 双方检查 + 级联清除"
func (s *chatStoreImpl) MarkDeleted(ctx context.Context, key string, userID string) (bool, error) {
	a, b, err := SplitConversationKey(key)
	if err != nil {
		return false, err
	}

	purged := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv model.Conversation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", key).First(&conv).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConversationNotFound
			}
			return err
		}

		mark := &model.ConversationDeletion{ConversationID: key, UserID: userID}
		if err = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(mark).Error; err != nil {
			return err
		}

		var marked int64
		err = tx.Model(&model.ConversationDeletion{}).
			Where("conversation_id = ? AND user_id IN ?", key, []string{a, b}).
			Count(&marked).Error
		if err != nil {
			return err
		}
		if marked < 2 {
			return nil
		}

		// 双方均已删除，级联清除
		if err = tx.Where("conversation_id = ?", key).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err = tx.Where("conversation_id = ?", key).Delete(&model.ConversationDeletion{}).Error; err != nil {
			return err
		}
		if err = tx.Where("id = ?", key).Delete(&model.Conversation{}).Error; err != nil {
			return err
		}
		purged = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return false, err
		}
		return false, errors.Wrap(err, "mark conversation deleted")
	}
	return purged, nil
}

// UnmarkDeleted 会话复活
func (s *chatStoreImpl) UnmarkDeleted(ctx context.Context, key string, userID string) error {
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", key, userID).
		Delete(&model.ConversationDeletion{}).Error
	return errors.Wrap(err, "unmark conversation deleted")
}

// ListConversationsForParticipant includeAsAdmin 为平台管理员视角，可见全部会话
func (s *chatStoreImpl) ListConversationsForParticipant(ctx context.Context, userID string, includeAsAdmin bool) ([]string, error) {
	keys := make([]string, 0)
	query := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("NOT EXISTS (SELECT 1 FROM conversation_deletions d WHERE d.conversation_id = conversations.id AND d.user_id = ?)", userID)
	if !includeAsAdmin {
		query = query.Where("(user_a = ? OR user_b = ?)", userID, userID)
	}
	err := query.Order("created_at ASC").Order("id ASC").Pluck("id", &keys).Error
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	return keys, nil
}
