package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"HobbyChat/consts"
	"HobbyChat/pkg/ctxmeta"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/result"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewContextWithGin 从 gin.Context 创建包含 trace_id、user_uuid、client_ip 的 context.Context
// 用于把 Gin 上下文中的元信息传递到日志系统和下游服务
func NewContextWithGin(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if v := c.GetString(ctxmeta.GinKeyTraceID); v != "" && ctxmeta.TraceID(ctx) == "" {
		ctx = ctxmeta.WithTraceID(ctx, v)
	}
	if v := c.GetString(ctxmeta.GinKeyUserUUID); v != "" && ctxmeta.UserUUID(ctx) == "" {
		ctx = ctxmeta.WithUserUUID(ctx, v)
	}
	if v := c.GetString(ctxmeta.GinKeyClientIP); v != "" && ctxmeta.ClientIP(ctx) == "" {
		ctx = ctxmeta.WithClientIP(ctx, v)
	}
	return ctx
}

// GinLogger 请求日志
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		cost := time.Since(start)
		status := c.Writer.Status()
		ctx := NewContextWithGin(c)

		// 只记录服务端错误(5xx)和慢请求(>2s),正常请求只打 debug
		if status >= http.StatusInternalServerError || cost > 2*time.Second {
			logger.Warn(ctx, "慢请求或服务端错误",
				logger.Int("status", status),
				logger.String("method", c.Request.Method),
				logger.String("path", path),
				logger.String("query", query),
				logger.String("user-agent", c.Request.UserAgent()),
				logger.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()),
				logger.Duration("cost", cost),
			)
			return
		}
		logger.Debug(ctx, "请求完成",
			logger.Int("status", status),
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Duration("cost", cost),
		)
	}
}

// GinRecovery recover 掉 handler 中的 panic，记录日志并返回统一错误
// stack 为 true 时日志携带调用栈
func GinRecovery(stack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := NewContextWithGin(c)

			// 客户端断开导致的写失败不算服务端错误
			if err, ok := rec.(error); ok && isBrokenPipe(err) {
				logger.Warn(ctx, "客户端连接已断开",
					logger.String("path", c.Request.URL.Path),
					logger.ErrorField("error", err),
				)
				_ = c.Error(err)
				c.Abort()
				return
			}

			fields := []zap.Field{
				logger.String("path", c.Request.URL.Path),
				logger.String("method", c.Request.Method),
				logger.Any("panic", rec),
			}
			if stack {
				fields = append(fields, logger.String("stack", string(debug.Stack())))
			}
			logger.Error(ctx, "请求处理发生 panic", fields...)
			result.Abort(c, http.StatusInternalServerError, consts.CodeInternalError)
		}()
		c.Next()
	}
}

func isBrokenPipe(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if !errors.As(opErr.Err, &sysErr) {
		return false
	}
	msg := strings.ToLower(sysErr.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
