package middleware

import (
	"strconv"
	"time"

	"HobbyChat/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// PrometheusMiddleware 记录请求数与耗时，path 使用路由模板避免标签爆炸
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
