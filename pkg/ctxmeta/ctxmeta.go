// Package ctxmeta 统一管理跨层透传的请求元信息（trace_id / user_uuid / client_ip）。
package ctxmeta

import (
	"context"

	"github.com/gin-gonic/gin"
)

type ctxKey string

const (
	keyTraceID  ctxKey = "trace_id"
	keyUserUUID ctxKey = "user_uuid"
	keyClientIP ctxKey = "client_ip"
	keyConnID   ctxKey = "conn_id"
)

// Gin 上下文中使用的 key，与 util.TraceLogger / JWTAuthMiddleware 保持一致
const (
	GinKeyTraceID  = "trace_id"
	GinKeyUserUUID = "user_uuid"
	GinKeyClientIP = "client_ip"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, keyTraceID, traceID)
}

func WithUserUUID(ctx context.Context, userUUID string) context.Context {
	return context.WithValue(ctx, keyUserUUID, userUUID)
}

func WithClientIP(ctx context.Context, clientIP string) context.Context {
	return context.WithValue(ctx, keyClientIP, clientIP)
}

// WithConnID 记录发起请求的长连接，只在 WebSocket 事件里存在
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, keyConnID, connID)
}

// TraceID 读取 trace_id。
// 兼容直接传入 *gin.Context 的场景（gin 以字符串 key 存储）。
func TraceID(ctx context.Context) string {
	return lookup(ctx, keyTraceID, GinKeyTraceID)
}

// UserUUID 读取当前用户 uuid。
func UserUUID(ctx context.Context) string {
	return lookup(ctx, keyUserUUID, GinKeyUserUUID)
}

// ClientIP 读取客户端 IP。
func ClientIP(ctx context.Context) string {
	return lookup(ctx, keyClientIP, GinKeyClientIP)
}

// ConnID 读取发起请求的连接 id，REST 请求返回空串。
func ConnID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(keyConnID).(string)
	return v
}

// TraceIDFromGin 从 gin.Context 读取 trace_id。
func TraceIDFromGin(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(GinKeyTraceID)
}

// Detach 复制元信息到一个不随请求取消的新 context，供异步任务使用。
func Detach(parent context.Context) context.Context {
	ctx := context.Background()
	if parent == nil {
		return ctx
	}
	if v := TraceID(parent); v != "" {
		ctx = WithTraceID(ctx, v)
	}
	if v := UserUUID(parent); v != "" {
		ctx = WithUserUUID(ctx, v)
	}
	if v := ClientIP(parent); v != "" {
		ctx = WithClientIP(ctx, v)
	}
	return ctx
}

func lookup(ctx context.Context, key ctxKey, ginKey string) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	if v, ok := ctx.Value(ginKey).(string); ok {
		return v
	}
	return ""
}
