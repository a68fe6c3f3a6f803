package dto

import "time"

// ChatCaller 发起路由的调用者
type ChatCaller struct {
	UserID    string
	SessionID string
}

// StartChatReq 开启/继续会话的意图参数
type StartChatReq struct {
	Support            bool   `form:"support"`
	AdminID            string `form:"admin_id"`
	ProductID          string `form:"product_id"`
	ReportMerchantID   string `form:"report_merchant_id"`
	ReportMerchantName string `form:"report_merchant_name"`
}

// StartChatResp 路由结果，ConversationID 为空表示未创建会话
type StartChatResp struct {
	Redirect       string `json:"redirect"`
	ConversationID string `json:"conversation_id,omitempty"`
	TargetID       string `json:"target_id,omitempty"`
}

// SendMessageReq 发送消息请求体 (HTTP 与 websocket 共用)
type SendMessageReq struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id" binding:"required"`
	TempID         string `json:"temp_id,omitempty"`
}

// ParticipantDTO 消息中附带的用户展示信息
type ParticipantDTO struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Photo *string `json:"photo"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID             uint64          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	SenderID       string          `json:"sender_id"`
	Text           string          `json:"text"`
	Timestamp      time.Time       `json:"timestamp"`
	Seen           bool            `json:"seen"`
	IsSystem       bool            `json:"is_system"`
	UserInfo       *ParticipantDTO `json:"user_info,omitempty"`
	AdminInfo      *ParticipantDTO `json:"admin_info,omitempty"`
	TempID         string          `json:"temp_id,omitempty"`
}

// ConversationDTO 会话列表项响应
type ConversationDTO struct {
	ConversationID     string          `json:"conversation_id"`
	OtherParticipant   *ParticipantDTO `json:"other_participant"`
	LastMessagePreview string          `json:"last_message_preview"`
	LastMessageTime    time.Time       `json:"last_message_time"`
	UnreadCount        int64           `json:"unread_count"`
}

// UnreadCountDTO 未读角标
type UnreadCountDTO struct {
	Unread int64 `json:"unread"`
}

// DeleteConversationDTO Purged 为 true 表示双方均已删除，会话被彻底清除
type DeleteConversationDTO struct {
	Purged bool `json:"purged"`
}

// MarkSeenDTO 本次置为已读的消息数
type MarkSeenDTO struct {
	Updated int64 `json:"updated"`
}

// RealtimeEvent websocket 帧
type RealtimeEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// InboundEvent 客户端上行帧
type InboundEvent struct {
	Event string         `json:"event"`
	Data  SendMessageReq `json:"data"`
}
