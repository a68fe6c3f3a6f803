package middleware

import (
	"github.com/gin-gonic/gin"
)

// AuthOptionalMiddleware 可选鉴权：解析成功注入身份，失败或缺失则 user_id 为空
func AuthOptionalMiddleware(auth *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFrom(c)
		if token == "" {
			c.Set("user_id", "")
			c.Next()
			return
		}

		claims, err := auth.Verify(c.Request.Context(), token)
		if err != nil {
			c.Set("user_id", "")
		} else {
			SetIdentity(c, claims, token)
		}

		c.Next()
	}
}
