package api

import (
	"Storefront/internal/api/config"
	"Storefront/internal/api/middleware"
	"Storefront/internal/model"
	"Storefront/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const wsPath = "/api/chat/ws"

func SetupRouter(group *HandlersGroup, serverCfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	trustedProxies := serverCfg.TrustedProxies
	if len(trustedProxies) == 0 {
		trustedProxies = []string{"localhost"}
	}
	_ = r.SetTrustedProxies(trustedProxies)
	// 商品最多 4 张图
	r.MaxMultipartMemory = 32 << 20

	// TraceId & Logger & CORS & Metrics
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware(wsPath))
	r.Use(middleware.CORSMiddleware(serverCfg.AllowOrigins))
	r.Use(middleware.MetricsMiddleware())
	logger.SetupGin(r)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthMiddleware(group.Auth)
	merchantOnly := middleware.CheckRoles(model.RoleAdmin)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		userGroup := apiGroup.Group("/user")
		{
			// 无需登录即可访问的接口
			userGroup.POST("/register", group.UserHandler.Register)
			userGroup.POST("/login", group.UserHandler.Login)

			authGroup := userGroup.Group("")
			authGroup.Use(auth)
			{
				authGroup.POST("/logout", group.UserHandler.Logout)
				authGroup.GET("/info", group.UserHandler.GetUserInfo)
				authGroup.PUT("/profile", group.UserHandler.UpdateProfile)
				authGroup.POST("/apply-merchant", group.UserHandler.ApplyMerchant)
			}
		}

		productGroup := apiGroup.Group("/products")
		{
			productGroup.GET("", group.ProductHandler.ListProducts)
			productGroup.GET("/search", group.ProductHandler.SearchProducts)
			productGroup.GET("/:id/page", group.ProductHandler.GetProductPage)
			productGroup.GET("/:id/similar", group.ProductHandler.SimilarProducts)

			// 需要登录 & 商家角色
			merchantGroup := productGroup.Group("")
			merchantGroup.Use(auth, merchantOnly)
			{
				merchantGroup.POST("", group.ProductHandler.CreateProduct)
				merchantGroup.GET("/mine", group.ProductHandler.ListMyProducts)
				merchantGroup.PUT("/:id", group.ProductHandler.UpdateProduct)
				merchantGroup.DELETE("/:id", group.ProductHandler.DeleteProduct)
			}
		}

		storeGroup := apiGroup.Group("/store/:merchant_id")
		{
			storeGroup.GET("", group.ProductHandler.StorePage)
			storeGroup.GET("/reviews", group.ReviewHandler.ListReviews)
			storeGroup.POST("/review", auth, group.ReviewHandler.ReviewStore)
		}

		chatGroup := apiGroup.Group("/chat")
		{
			// 鉴权在连接内完成，未登录的连接升级后直接关闭
			chatGroup.GET("/ws", group.WsHandler.Connect)

			authGroup := chatGroup.Group("")
			authGroup.Use(auth)
			{
				authGroup.GET("/start", group.ChatHandler.StartChat)
				authGroup.GET("/conversations", group.ChatHandler.ListConversations)
				authGroup.GET("/unread", group.ChatHandler.UnreadCount)
				authGroup.POST("/send", group.ChatHandler.SendMessage)
				authGroup.GET("/:conversation_id/messages", group.ChatHandler.GetHistory)
				authGroup.POST("/:conversation_id/delete", group.ChatHandler.DeleteConversation)
				authGroup.POST("/:conversation_id/seen", merchantOnly, group.ChatHandler.MarkSeen)
			}
		}
	}

	return r
}
