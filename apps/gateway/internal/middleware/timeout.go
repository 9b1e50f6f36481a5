package middleware

import (
	"context"
	"errors"
	"time"

	"HobbyChat/consts"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// TimeoutMiddleware 请求超时控制中间件
// 不开启 Goroutine，依赖下游 Context 感知超时
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		// 基于 c.Request.Context() 派生，后续 Handler、Service、Repository 都能拿到截止时间
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		// Handler 已经写过响应（包括超时后写的错误）则不再介入；
		// 只有下游慢到没来得及写 Response 时才兜底
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			logger.Warn(NewContextWithGin(c), "网关层强制超时断开",
				logger.String("path", c.Request.URL.Path),
				logger.Duration("timeout", timeout),
			)
			result.Fail(c, nil, consts.CodeTimeoutError)
		}
	}
}
