package service

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/model"
	"Storefront/internal/pkg/consts"
	"Storefront/internal/pkg/metrics"
	"Storefront/internal/pkg/realtime"
	"Storefront/internal/pkg/util"
	"Storefront/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// ChatService 会话路由、历史、列表与实时投递
type ChatService interface {
	StartOrRouteChat(ctx context.Context, caller dto.ChatCaller, req *dto.StartChatReq) (*dto.StartChatResp, error)
	ListConversations(ctx context.Context, viewerID string) ([]*dto.ConversationDTO, error)
	GetHistory(ctx context.Context, conversationID string, viewerID string) ([]*dto.MessageDTO, error)
	MarkSeen(ctx context.Context, conversationID string, viewerID string) (int64, error)
	DeleteConversation(ctx context.Context, conversationID string, viewerID string) (bool, error)
	UnreadCount(ctx context.Context, viewerID string) (int64, error)
	SendMessage(ctx context.Context, senderID string, req *dto.SendMessageReq) (*dto.MessageDTO, error)
}

// InquiryGuard 同一会话对同一商品只计一次咨询
type InquiryGuard interface {
	MarkInquiry(ctx context.Context, sessionID string, productID string) (bool, error)
}

const (
	adminChatPath = "/admin/chat"
	userChatPath  = "/my-chats"
	listFanout    = 8
)

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

type ChatServiceImpl struct {
	store              repository.ChatStore
	userRepo           repository.UserRepo
	productRepo        repository.ProductRepo
	inquiryGuard       InquiryGuard
	broadcaster        realtime.Broadcaster
	platformAdminEmail string
	now                func() time.Time
}

func NewChatService(
	store repository.ChatStore,
	userRepo repository.UserRepo,
	productRepo repository.ProductRepo,
	inquiryGuard InquiryGuard,
	broadcaster realtime.Broadcaster,
	platformAdminEmail string,
) ChatService {
	return &ChatServiceImpl{
		store:              store,
		userRepo:           userRepo,
		productRepo:        productRepo,
		inquiryGuard:       inquiryGuard,
		broadcaster:        broadcaster,
		platformAdminEmail: util.NormalizeEmail(platformAdminEmail),
		now:                time.Now,
	}
}

// StartOrRouteChat 按意图解析目标，确保会话存在后返回跳转地址
// 目标优先级: 客服/举报 -> 平台管理员；admin_id；product_id -> 商品所属商家
func (s *ChatServiceImpl) StartOrRouteChat(ctx context.Context, caller dto.ChatCaller, req *dto.StartChatReq) (*dto.StartChatResp, error) {
	me, err := s.currentUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	platformAdmin, err := s.platformAdmin(ctx)
	if err != nil {
		return nil, err
	}

	var targetID string
	isReport := req.ReportMerchantID != ""
	switch {
	case req.Support || isReport:
		if platformAdmin != nil {
			targetID = platformAdmin.ID
		}
	case req.AdminID != "":
		targetID = req.AdminID
	case req.ProductID != "":
		product, err := s.productRepo.GetProductById(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		if product != nil {
			targetID = product.OwnerID
			if product.OwnerID != me.ID {
				s.countInquiry(ctx, caller, product.ID)
			}
		}
	}

	// 不与自己聊天
	if targetID == "" || targetID == me.ID {
		return &dto.StartChatResp{Redirect: chatRedirect(me, "")}, nil
	}

	target, err := s.userRepo.GetUserById(ctx, targetID)
	if err != nil {
		return nil, err
	}
	// 目标用户已不存在，静默跳过
	if target == nil {
		log.InfoContext(ctx, "chat route target missing", "caller", me.ID, "target", targetID)
		return &dto.StartChatResp{Redirect: chatRedirect(me, "")}, nil
	}

	key, err := s.store.EnsureConversation(ctx, me.ID, me.IsAdmin(), target.ID, target.IsAdmin())
	if err != nil {
		return nil, err
	}
	// 主动再次发起视为恢复自己删除过的会话
	if err = s.store.UnmarkDeleted(ctx, key, me.ID); err != nil {
		return nil, err
	}

	last, err := s.store.LastMessage(ctx, key)
	if err != nil {
		return nil, err
	}
	if last == nil {
		if _, err = s.store.Append(ctx, key, me.ID, consts.ChatStartedText, true); err != nil {
			return nil, err
		}
		metrics.ChatMessages.WithLabelValues("system").Inc()
	}

	if isReport && platformAdmin != nil {
		report := BuildReportText(me, req.ReportMerchantName, req.ReportMerchantID)
		if _, err = s.deliver(ctx, me, target, key, report, true, ""); err != nil {
			return nil, err
		}
	}

	return &dto.StartChatResp{
		Redirect:       chatRedirect(me, target.ID),
		ConversationID: key,
		TargetID:       target.ID,
	}, nil
}

// BuildReportText 举报消息模板
func BuildReportText(reporter *model.User, merchantName string, merchantID string) string {
	return fmt.Sprintf("%s\nUser '%s' (%s) is reporting a store.\n\nStore Name: %s\nStore ID: %s",
		consts.ReportHeader, reporter.Name, reporter.ID, merchantName, merchantID)
}

func (s *ChatServiceImpl) ListConversations(ctx context.Context, viewerID string) ([]*dto.ConversationDTO, error) {
	me, err := s.currentUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	platformAdmin, err := s.platformAdmin(ctx)
	if err != nil {
		return nil, err
	}
	isPlatformAdmin := platformAdmin != nil && platformAdmin.ID == me.ID

	keys, err := s.store.ListConversationsForParticipant(ctx, me.ID, isPlatformAdmin)
	if err != nil {
		return nil, err
	}

	type row struct {
		key     string
		otherID string
		last    *model.Message
		unread  int64
	}
	rows := make([]row, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listFanout)
	for i, key := range keys {
		g.Go(func() error {
			first, _, err := repository.SplitConversationKey(key)
			if err != nil {
				return nil
			}
			last, err := s.store.LastMessage(gctx, key)
			if err != nil {
				return err
			}
			otherID, ok := repository.OtherParticipant(key, me.ID)
			// 平台管理员旁观时，对方取会话键前半部分，未读恒为 0
			if !ok {
				rows[i] = row{key: key, otherID: first, last: last}
				return nil
			}
			unread, err := s.store.CountUnread(gctx, key, me.ID)
			if err != nil {
				return err
			}
			rows[i] = row{key: key, otherID: otherID, last: last, unread: unread}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.otherID != "" {
			ids = append(ids, r.otherID)
		}
	}
	users, err := s.userMap(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	list := make([]*dto.ConversationDTO, 0, len(rows))
	for _, r := range rows {
		other, ok := users[r.otherID]
		if !ok {
			continue
		}
		item := &dto.ConversationDTO{
			ConversationID:     r.key,
			OtherParticipant:   toParticipant(other),
			LastMessagePreview: consts.ChatSystemPreview,
			LastMessageTime:    now,
			UnreadCount:        r.unread,
		}
		if r.last != nil {
			item.LastMessagePreview = previewText(r.last.Text)
			item.LastMessageTime = r.last.CreatedAt.UTC()
		}
		list = append(list, item)
	}

	// 按最后消息时间倒序，同时间保持创建顺序
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].LastMessageTime.After(list[j].LastMessageTime)
	})
	return list, nil
}

// GetHistory 参与者查看时将对方消息置为已读；平台管理员旁观只读不标记
func (s *ChatServiceImpl) GetHistory(ctx context.Context, conversationID string, viewerID string) ([]*dto.MessageDTO, error) {
	if viewerID == "" {
		return nil, ErrAuthenticationRequired
	}
	first, second, err := repository.SplitConversationKey(conversationID)
	if err != nil {
		return nil, err
	}

	observer := false
	if !repository.IsParticipant(conversationID, viewerID) {
		ok, err := s.isPlatformAdmin(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrForbidden
		}
		observer = true
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.IsDeletedBy(viewerID) {
		return []*dto.MessageDTO{}, nil
	}

	if !observer {
		if _, err = s.store.MarkSeenBulk(ctx, conversationID, viewerID); err != nil {
			return nil, err
		}
	}

	msgs, err := s.store.ListForConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	users, err := s.userMap(ctx, []string{first, second})
	if err != nil {
		return nil, err
	}

	result := make([]*dto.MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		result = append(result, toMessageDTO(m, users[first], users[second], ""))
	}
	return result, nil
}

// MarkSeen 管理员显式确认，将非本人发送的消息全部置为已读；旁观者不代收件人确认
func (s *ChatServiceImpl) MarkSeen(ctx context.Context, conversationID string, viewerID string) (int64, error) {
	me, err := s.currentUser(ctx, viewerID)
	if err != nil {
		return 0, err
	}
	if !me.IsAdmin() {
		return 0, ErrForbidden
	}
	if err = s.checkAccess(ctx, conversationID, me.ID); err != nil {
		return 0, err
	}
	if _, err = s.store.GetConversation(ctx, conversationID); err != nil {
		return 0, err
	}
	if !repository.IsParticipant(conversationID, me.ID) {
		return 0, nil
	}
	return s.store.MarkSeenBulk(ctx, conversationID, me.ID)
}

func (s *ChatServiceImpl) DeleteConversation(ctx context.Context, conversationID string, viewerID string) (bool, error) {
	if viewerID == "" {
		return false, ErrAuthenticationRequired
	}
	if err := s.checkAccess(ctx, conversationID, viewerID); err != nil {
		return false, err
	}
	return s.store.MarkDeleted(ctx, conversationID, viewerID)
}

func (s *ChatServiceImpl) UnreadCount(ctx context.Context, viewerID string) (int64, error) {
	if viewerID == "" {
		return 0, ErrAuthenticationRequired
	}
	return s.store.UnreadCountFor(ctx, viewerID)
}

// SendMessage 先持久化再扇出，会话不存在时按双方角色校验规范键后创建
func (s *ChatServiceImpl) SendMessage(ctx context.Context, senderID string, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if senderID == "" {
		return nil, ErrAuthenticationRequired
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if _, _, err := repository.SplitConversationKey(req.ConversationID); err != nil {
		return nil, err
	}
	targetID, ok := repository.OtherParticipant(req.ConversationID, senderID)
	if !ok {
		return nil, ErrForbidden
	}

	sender, err := s.currentUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	target, err := s.userRepo.GetUserById(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}

	_, err = s.store.GetConversation(ctx, req.ConversationID)
	if errors.Is(err, repository.ErrConversationNotFound) {
		canonical, err := repository.BuildConversationKey(sender.ID, sender.IsAdmin(), target.ID, target.IsAdmin())
		if err != nil {
			return nil, err
		}
		if canonical != req.ConversationID {
			return nil, ErrMalformedKey
		}
		if _, err = s.store.EnsureConversation(ctx, sender.ID, sender.IsAdmin(), target.ID, target.IsAdmin()); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return s.deliver(ctx, sender, target, req.ConversationID, req.Text, false, req.TempID)
}

// deliver 复活 -> 落库 -> 推送给对方、自己以及平台管理员
func (s *ChatServiceImpl) deliver(ctx context.Context, sender *model.User, target *model.User, key string, text string, isSystem bool, tempID string) (*dto.MessageDTO, error) {
	conv, err := s.store.GetConversation(ctx, key)
	if err != nil {
		return nil, err
	}
	if conv.IsDeletedBy(target.ID) {
		if err = s.store.UnmarkDeleted(ctx, key, target.ID); err != nil {
			return nil, err
		}
	}

	msg, err := s.store.Append(ctx, key, sender.ID, text, isSystem)
	if err != nil {
		return nil, err
	}
	if isSystem {
		metrics.ChatMessages.WithLabelValues("system").Inc()
	} else {
		metrics.ChatMessages.WithLabelValues("user").Inc()
	}

	byID := map[string]*model.User{sender.ID: sender, target.ID: target}
	first, second, _ := repository.SplitConversationKey(key)
	out := toMessageDTO(msg, byID[first], byID[second], tempID)

	payload, err := json.Marshal(dto.RealtimeEvent{Event: consts.EventMessageReceived, Data: out})
	if err != nil {
		log.ErrorContext(ctx, "marshal realtime event failed", "err", err)
		return out, nil
	}

	recipients := []string{target.ID, sender.ID}
	platformAdmin, err := s.platformAdmin(ctx)
	if err != nil {
		log.WarnContext(ctx, "resolve platform admin failed", "err", err)
	} else if platformAdmin != nil && platformAdmin.ID != sender.ID && platformAdmin.ID != target.ID {
		recipients = append(recipients, platformAdmin.ID)
	}
	for _, userID := range recipients {
		if err := s.broadcaster.Emit(ctx, userID, payload); err != nil {
			log.WarnContext(ctx, "realtime emit failed", "user_id", userID, "err", err)
		}
	}
	return out, nil
}

func (s *ChatServiceImpl) countInquiry(ctx context.Context, caller dto.ChatCaller, productID string) {
	scope := caller.SessionID
	if scope == "" {
		scope = caller.UserID
	}
	first, err := s.inquiryGuard.MarkInquiry(ctx, scope, productID)
	if err != nil {
		log.WarnContext(ctx, "inquiry guard failed", "product_id", productID, "err", err)
		return
	}
	if !first {
		return
	}
	if err = s.productRepo.IncrementInquiry(ctx, productID); err != nil {
		log.ErrorContext(ctx, "increment inquiry failed", "product_id", productID, "err", err)
	}
}

// checkAccess 参与者或平台管理员
func (s *ChatServiceImpl) checkAccess(ctx context.Context, conversationID string, userID string) error {
	if _, _, err := repository.SplitConversationKey(conversationID); err != nil {
		return err
	}
	if repository.IsParticipant(conversationID, userID) {
		return nil
	}
	ok, err := s.isPlatformAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *ChatServiceImpl) currentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrAuthenticationRequired
	}
	return user, nil
}

// platformAdmin 按配置邮箱解析平台管理员，未配置或非管理员返回 nil
func (s *ChatServiceImpl) platformAdmin(ctx context.Context) (*model.User, error) {
	if s.platformAdminEmail == "" {
		return nil, nil
	}
	user, err := s.userRepo.GetUserByEmail(ctx, s.platformAdminEmail)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, nil
	}
	return user, nil
}

func (s *ChatServiceImpl) isPlatformAdmin(ctx context.Context, userID string) (bool, error) {
	admin, err := s.platformAdmin(ctx)
	if err != nil {
		return false, err
	}
	return admin != nil && admin.ID == userID, nil
}

func (s *ChatServiceImpl) userMap(ctx context.Context, ids []string) (map[string]*model.User, error) {
	users, err := s.userRepo.GetUserByIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*model.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m, nil
}

func chatRedirect(me *model.User, targetID string) string {
	path := userChatPath
	if me.IsAdmin() {
		path = adminChatPath
	}
	if targetID == "" {
		return path
	}
	return path + "?open_convo_with_admin=" + url.QueryEscape(targetID)
}

func previewText(text string) string {
	preview := strings.TrimSpace(htmlTagPattern.ReplaceAllString(text, " "))
	if preview == "" {
		return consts.ChatSystemPreview
	}
	return preview
}

func toParticipant(u *model.User) *dto.ParticipantDTO {
	if u == nil {
		return nil
	}
	return &dto.ParticipantDTO{ID: u.ID, Name: u.Name, Photo: u.Photo}
}

func toMessageDTO(m *model.Message, first *model.User, second *model.User, tempID string) *dto.MessageDTO {
	return &dto.MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		Timestamp:      m.CreatedAt.UTC(),
		Seen:           m.Seen,
		IsSystem:       m.IsSystem,
		UserInfo:       toParticipant(first),
		AdminInfo:      toParticipant(second),
		TempID:         tempID,
	}
}
