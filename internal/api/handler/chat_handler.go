package handler

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/pkg/response"
	"Storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatSvc service.ChatService
}

func NewChatHandler(chatSvc service.ChatService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

// StartChat 打开客服、举报、商家或商品咨询会话，返回前端跳转地址
func (s *ChatHandler) StartChat(c *gin.Context) {
	var req dto.StartChatReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	caller := dto.ChatCaller{
		UserID:    c.GetString("user_id"),
		SessionID: c.GetString("session_id"),
	}
	res, err := s.chatSvc.StartOrRouteChat(c.Request.Context(), caller, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ChatHandler) ListConversations(c *gin.Context) {
	res, err := s.chatSvc.ListConversations(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ChatHandler) UnreadCount(c *gin.Context) {
	unread, err := s.chatSvc.UnreadCount(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.UnreadCountDTO{Unread: unread})
}

// GetHistory 获取完整历史，同时将对方消息置为已读
func (s *ChatHandler) GetHistory(c *gin.Context) {
	res, err := s.chatSvc.GetHistory(c.Request.Context(), c.Param("conversation_id"), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ChatHandler) MarkSeen(c *gin.Context) {
	updated, err := s.chatSvc.MarkSeen(c.Request.Context(), c.Param("conversation_id"), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.MarkSeenDTO{Updated: updated})
}

func (s *ChatHandler) DeleteConversation(c *gin.Context) {
	purged, err := s.chatSvc.DeleteConversation(c.Request.Context(), c.Param("conversation_id"), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.DeleteConversationDTO{Purged: purged})
}

// SendMessage websocket 不可用时的 HTTP 发送通道
func (s *ChatHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	res, err := s.chatSvc.SendMessage(c.Request.Context(), c.GetString("user_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
