package redis

import (
	"Storefront/internal/pkg/consts"
	"context"
	"time"
)

// SessionFlagStore 会话级一次性标记，同一登录会话对同一商品只记一次咨询
type SessionFlagStore struct {
	ttl time.Duration
}

func NewSessionFlagStore(ttl time.Duration) *SessionFlagStore {
	return &SessionFlagStore{ttl: ttl}
}

// MarkInquiry 首次标记返回 true
func (s *SessionFlagStore) MarkInquiry(ctx context.Context, sessionID string, productID string) (bool, error) {
	return SetIfAbsent(ctx, consts.ChatInquiryFlagKey+sessionID+":"+productID, 1, s.ttl)
}
