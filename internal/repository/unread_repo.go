package repository

import (
	"context"

	"github.com/pkg/errors"
)

// UnreadCountFor 联表统计未读数，走 idx_conv_sender_seen 索引
func (s *chatStoreImpl) UnreadCountFor(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Table("messages m").
		Joins("JOIN conversations c ON c.id = m.conversation_id").
		Where("(c.user_a = ? OR c.user_b = ?)", userID, userID).
		Where("m.sender_id <> ? AND m.seen = ?", userID, false).
		Where("NOT EXISTS (SELECT 1 FROM conversation_deletions d WHERE d.conversation_id = c.id AND d.user_id = ?)", userID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "unread count")
	}
	return count, nil
}
