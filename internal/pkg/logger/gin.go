package logger

import (
	"Storefront/internal/api/config"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const accessIndex = "logstash-storefront"

// SetupGin 访问日志与 panic 恢复，探活与指标接口不记录
func SetupGin(r *gin.Engine) {
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    LogWriter,
		SkipPaths: []string{"/metrics", "/api/ping"},
		Formatter: func(p gin.LogFormatterParams) string {
			traceID := keyString(p.Keys, TraceIDKey)
			if traceID == "" && p.Request != nil {
				traceID = TraceID(p.Request.Context())
			}

			return fmt.Sprintf(
				`{"time":"%s","level":"INFO","msg":"GIN_ACCESS","trace_id":"%s","log_token":"%s","target_index":"%s","method":"%s","path":"%s","status":%d,"latency":"%v","client_ip":"%s","user_id":"%s"}`+"\n",
				p.TimeStamp.Format(time.RFC3339),
				traceID,
				config.Cfg.Logstash.Token,
				accessIndex,
				p.Method,
				p.Path,
				p.StatusCode,
				p.Latency,
				p.ClientIP,
				keyString(p.Keys, "user_id"),
			)
		},
	}))

	r.Use(gin.Recovery())
}

func keyString(keys map[any]any, key string) string {
	if keys == nil {
		return ""
	}
	v, _ := keys[key].(string)
	return v
}
