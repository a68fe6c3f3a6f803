package middleware

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/pkg/response"
	"Storefront/internal/pkg/security"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type revocations struct {
	revoked map[string]bool
	err     error
}

func (r revocations) IsTokenRevoked(_ context.Context, token string) (bool, error) {
	return r.revoked[token], r.err
}

func newEngine(auth *Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(auth), func(c *gin.Context) {
		response.Success(c, gin.H{
			"user_id":    c.GetString("user_id"),
			"role":       c.GetString("role"),
			"session_id": c.GetString("session_id"),
		})
	})
	r.GET("/merchant", AuthMiddleware(auth), CheckRoles("admin"), func(c *gin.Context) {
		response.Success(c, nil)
	})
	r.GET("/opt", AuthOptionalMiddleware(auth), func(c *gin.Context) {
		response.Success(c, gin.H{"user_id": c.GetString("user_id")})
	})
	return r
}

func do(t *testing.T, r http.Handler, req *http.Request) dto.Response {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var body dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func issue(t *testing.T, tokens *security.TokenIssuer, userID string, role string) (string, *security.UserClaims) {
	t.Helper()
	token, claims, err := tokens.GenerateToken(userID, role, time.Hour)
	require.NoError(t, err)
	return token, claims
}

func TestAuthMiddlewareTokenSources(t *testing.T) {
	tokens := security.NewTokenIssuer("mw-secret", "storefront-test")
	r := newEngine(NewAuthenticator(tokens, revocations{}, "sf_session"))
	token, claims := issue(t, tokens, "u1", "normal")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	body := do(t, r, req)
	assert.Equal(t, response.Ok, body.Code)
	data := body.Data.(map[string]any)
	assert.Equal(t, "u1", data["user_id"])
	assert.Equal(t, "normal", data["role"])
	assert.Equal(t, claims.SessionID(), data["session_id"])

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "sf_session", Value: token})
	body = do(t, r, req)
	assert.Equal(t, response.Ok, body.Code)

	// 普通接口不接受 query 中的 Token
	req = httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
	body = do(t, r, req)
	assert.Equal(t, response.Unauthorized, body.Code)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	tokens := security.NewTokenIssuer("mw-secret", "storefront-test")
	other := security.NewTokenIssuer("mw-secret", "someone-else")
	revokedToken, _ := issue(t, tokens, "u1", "normal")
	r := newEngine(NewAuthenticator(tokens, revocations{revoked: map[string]bool{revokedToken: true}}, "sf_session"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	assert.Equal(t, response.Unauthorized, do(t, r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+revokedToken)
	assert.Equal(t, response.Unauthorized, do(t, r, req).Code)

	foreign, _ := issue(t, other, "u1", "normal")
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+foreign)
	assert.Equal(t, response.Unauthorized, do(t, r, req).Code)
}

func TestAuthMiddlewareRevocationLookupFailure(t *testing.T) {
	tokens := security.NewTokenIssuer("mw-secret", "storefront-test")
	r := newEngine(NewAuthenticator(tokens, revocations{err: errors.New("redis down")}, ""))
	token, _ := issue(t, tokens, "u1", "normal")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, response.InternalServerError, do(t, r, req).Code)
}

func TestCheckRoles(t *testing.T) {
	tokens := security.NewTokenIssuer("mw-secret", "storefront-test")
	r := newEngine(NewAuthenticator(tokens, revocations{}, ""))

	normal, _ := issue(t, tokens, "u1", "normal")
	req := httptest.NewRequest(http.MethodGet, "/merchant", nil)
	req.Header.Set("Authorization", "Bearer "+normal)
	assert.Equal(t, response.Forbidden, do(t, r, req).Code)

	admin, _ := issue(t, tokens, "m1", "admin")
	req = httptest.NewRequest(http.MethodGet, "/merchant", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	assert.Equal(t, response.Ok, do(t, r, req).Code)
}

func TestAuthOptionalMiddleware(t *testing.T) {
	tokens := security.NewTokenIssuer("mw-secret", "storefront-test")
	r := newEngine(NewAuthenticator(tokens, revocations{}, ""))

	body := do(t, r, httptest.NewRequest(http.MethodGet, "/opt", nil))
	assert.Equal(t, "", body.Data.(map[string]any)["user_id"])

	req := httptest.NewRequest(http.MethodGet, "/opt", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	body = do(t, r, req)
	assert.Equal(t, response.Ok, body.Code)
	assert.Equal(t, "", body.Data.(map[string]any)["user_id"])

	token, _ := issue(t, tokens, "u7", "normal")
	req = httptest.NewRequest(http.MethodGet, "/opt", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	body = do(t, r, req)
	assert.Equal(t, "u7", body.Data.(map[string]any)["user_id"])
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://shop.test"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://shop.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
