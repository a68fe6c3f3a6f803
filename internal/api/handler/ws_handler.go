package handler

import (
	"Storefront/internal/api/config"
	"Storefront/internal/api/dto"
	"Storefront/internal/api/middleware"
	"Storefront/internal/pkg/consts"
	"Storefront/internal/pkg/logger"
	"Storefront/internal/pkg/metrics"
	"Storefront/internal/pkg/realtime"
	"Storefront/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 16 * 1024
)

type WsHandler struct {
	chatSvc   service.ChatService
	auth      *middleware.Authenticator
	registry  *realtime.Registry
	upgrader  websocket.Upgrader
	sendRate  rate.Limit
	sendBurst int
}

func NewWsHandler(chatSvc service.ChatService, auth *middleware.Authenticator, registry *realtime.Registry, chatCfg config.ChatConfig, allowOrigins []string) *WsHandler {
	sendRate := rate.Inf
	if chatCfg.SendRate > 0 {
		sendRate = rate.Limit(chatCfg.SendRate)
	}
	sendBurst := chatCfg.SendBurst
	if sendBurst <= 0 {
		sendBurst = 1
	}
	return &WsHandler{
		chatSvc:  chatSvc,
		auth:     auth,
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowOrigins) == 0 || slices.Contains(allowOrigins, origin)
			},
		},
		sendRate:  sendRate,
		sendBurst: sendBurst,
	}
}

// Connect 未鉴权的连接先完成升级再立即关闭，不加入任何房间
func (s *WsHandler) Connect(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WarnContext(ctx, "WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	token := s.auth.TokenFrom(c)
	if token == "" {
		token = c.Query("token")
	}
	claims, err := s.auth.Verify(ctx, token)
	if err != nil {
		log.DebugContext(ctx, "WS 鉴权失败，连接已丢弃", "err", err)
		metrics.RealtimeDropped.WithLabelValues("unauthenticated").Inc()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""),
			time.Now().Add(wsWriteWait))
		return
	}

	client := realtime.NewClient(claims.UserID, 0)
	s.registry.Register(client)
	defer func() {
		s.registry.Unregister(client)
		client.Close()
	}()
	log.InfoContext(ctx, "用户 WS 连接已建立", "user_id", claims.UserID, "client_id", client.ID)

	go s.writePump(conn, client)
	s.readPump(ctx, conn, client)
	log.InfoContext(ctx, "用户 WS 连接已断开", "user_id", claims.UserID, "client_id", client.ID)
}

// readPump 读循环，所有入站事件都在这里串行处理
func (s *WsHandler) readPump(ctx context.Context, conn *websocket.Conn, client *realtime.Client) {
	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	limiter := rate.NewLimiter(s.sendRate, s.sendBurst)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.WarnContext(ctx, "WS 读取失败", "user_id", client.UserID, "err", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		s.handleInbound(ctx, client.UserID, data, limiter)
	}
}

// handleInbound 非法、超频或被拒绝的事件直接丢弃，不回任何错误帧
func (s *WsHandler) handleInbound(ctx context.Context, userID string, data []byte, limiter *rate.Limiter) {
	var event dto.InboundEvent
	if err := json.Unmarshal(data, &event); err != nil {
		metrics.RealtimeDropped.WithLabelValues("malformed").Inc()
		log.DebugContext(ctx, "WS 丢弃非法帧", "user_id", userID, "err", err)
		return
	}
	if event.Event != consts.EventSendMessage {
		metrics.RealtimeDropped.WithLabelValues("unknown_event").Inc()
		return
	}
	if !limiter.Allow() {
		metrics.RealtimeDropped.WithLabelValues("rate_limited").Inc()
		log.WarnContext(ctx, "WS 发送过于频繁", "user_id", userID)
		return
	}

	eventCtx := logger.NewTraceContext(ctx, "ws-")
	if _, err := s.chatSvc.SendMessage(eventCtx, userID, &event.Data); err != nil {
		metrics.RealtimeDropped.WithLabelValues("rejected").Inc()
		log.DebugContext(eventCtx, "WS 丢弃消息", "user_id", userID, "conversation_id", event.Data.ConversationID, "err", err)
	}
}

// writePump 唯一的写者，负责推送与心跳
func (s *WsHandler) writePump(conn *websocket.Conn, client *realtime.Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-client.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		case payload := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Warn("WS 推送失败", "user_id", client.UserID, "err", err)
				client.Close()
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Close()
				_ = conn.Close()
				return
			}
		}
	}
}
