package util

import (
	"HobbyChat/pkg/ctxmeta"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderXRequestID = "X-Request-ID"

// TraceLogger 追踪中间件，生成或获取 trace_id 并存入 Gin 上下文
func TraceLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 优先沿用上游（Nginx / 客户端）传入的 X-Request-ID
		traceId := c.GetHeader(HeaderXRequestID)
		if traceId == "" {
			traceId = NewUUID()
		}

		// 2. 放入 Gin 上下文与 request context，ws 长连接也能继承
		c.Set(ctxmeta.GinKeyTraceID, traceId)
		c.Request = c.Request.WithContext(ctxmeta.WithTraceID(c.Request.Context(), traceId))

		// 3. 回写响应头，方便客户端拿着 ID 排查问题
		c.Header(HeaderXRequestID, traceId)

		c.Next()
	}
}

// NewUUID 生成新的 UUID
func NewUUID() string {
	return uuid.New().String()
}
