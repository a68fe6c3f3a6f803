package middleware

import (
	"Storefront/internal/pkg/response"
	"Storefront/internal/pkg/security"
	"Storefront/internal/service"
	"context"
	"errors"
	log "log/slog"

	"github.com/gin-gonic/gin"
)

// TokenRevocationChecker 查询 Token 是否已注销
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
}

// Authenticator 从请求中解析并校验登录 Token
type Authenticator struct {
	tokens      *security.TokenIssuer
	revocations TokenRevocationChecker
	cookieName  string
}

func NewAuthenticator(tokens *security.TokenIssuer, revocations TokenRevocationChecker, cookieName string) *Authenticator {
	return &Authenticator{
		tokens:      tokens,
		revocations: revocations,
		cookieName:  cookieName,
	}
}

// TokenFrom Authorization 头优先，其次 Cookie
func (a *Authenticator) TokenFrom(c *gin.Context) string {
	if token := security.BearerToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	if a.cookieName == "" {
		return ""
	}
	token, err := c.Cookie(a.cookieName)
	if err != nil {
		return ""
	}
	return token
}

// Verify 校验签名、有效期与黑名单
func (a *Authenticator) Verify(ctx context.Context, token string) (*security.UserClaims, error) {
	if token == "" {
		return nil, service.ErrAuthenticationRequired
	}
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		return nil, service.ErrAuthenticationRequired
	}
	revoked, err := a.revocations.IsTokenRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, service.ErrAuthenticationRequired
	}
	return claims, nil
}

// SetIdentity 将身份信息注入 gin.Context 与请求 Context
func SetIdentity(c *gin.Context, claims *security.UserClaims, token string) {
	c.Set("user_id", claims.UserID)
	c.Set("role", claims.Role)
	c.Set("session_id", claims.SessionID())
	c.Set("token", token)

	newCtx := context.WithValue(c.Request.Context(), "user_id", claims.UserID)
	c.Request = c.Request.WithContext(newCtx)
}

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
func AuthMiddleware(auth *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFrom(c)
		claims, err := auth.Verify(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrAuthenticationRequired) {
				log.ErrorContext(c.Request.Context(), "token revocation lookup failed", "err", err)
				response.Abort(c, response.InternalServerError, service.UnExpectedError.Error())
				return
			}
			response.Abort(c, response.Unauthorized, service.ErrAuthenticationRequired.Error())
			return
		}

		SetIdentity(c, claims, token)
		c.Next()
	}
}
