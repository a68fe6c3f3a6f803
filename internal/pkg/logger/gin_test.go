package logger

import (
	"Storefront/internal/api/config"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLogCarriesTraceAndUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prevWriter, prevCfg := LogWriter, config.Cfg
	t.Cleanup(func() { LogWriter, config.Cfg = prevWriter, prevCfg })

	var buf bytes.Buffer
	LogWriter = &buf
	config.Cfg = &config.Config{}

	r := gin.New()
	SetupGin(r)
	r.GET("/api/products", func(c *gin.Context) {
		c.Set(TraceIDKey, "trace-1")
		c.Set("user_id", "u1")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "GIN_ACCESS", entry["msg"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, "/api/products", entry["path"])
}

func TestAccessLogFallsBackToRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prevWriter, prevCfg := LogWriter, config.Cfg
	t.Cleanup(func() { LogWriter, config.Cfg = prevWriter, prevCfg })

	var buf bytes.Buffer
	LogWriter = &buf
	config.Cfg = &config.Config{}

	r := gin.New()
	SetupGin(r)
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(WithTraceID(req.Context(), "trace-ctx"))
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trace-ctx", entry["trace_id"])
	assert.Equal(t, "", entry["user_id"])
}
