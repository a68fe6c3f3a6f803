package middleware

import (
	"Storefront/internal/pkg/response"
	"Storefront/internal/service"
	"slices"

	"github.com/gin-gonic/gin"
)

// CheckRoles 仅放行指定角色，需挂在 AuthMiddleware 之后
func CheckRoles(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(allowed, c.GetString("role")) {
			response.Abort(c, response.Forbidden, service.ErrForbidden.Error())
			return
		}
		c.Next()
	}
}
