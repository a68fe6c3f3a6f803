package api

import (
	"Storefront/internal/api/handler"
	"Storefront/internal/api/middleware"
)

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	Auth           *middleware.Authenticator
	UserHandler    *handler.UserHandler
	ProductHandler *handler.ProductHandler
	ReviewHandler  *handler.ReviewHandler
	ChatHandler    *handler.ChatHandler
	WsHandler      *handler.WsHandler
}
