package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultSecret     = "storefront"
	defaultIssuer     = "storefront"
	DefaultExpiration = time.Hour * 24
)

// UserClaims Token 中携带的业务信息，ID (jti) 即登录会话 id
type UserClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SessionID 登录会话 id
func (c *UserClaims) SessionID() string {
	return c.ID
}
