package middleware

import (
	"errors"
	"net/http"
	"strings"

	"HobbyChat/consts"
	"HobbyChat/pkg/ctxmeta"
	"HobbyChat/pkg/result"
	"HobbyChat/pkg/util"

	"github.com/gin-gonic/gin"
)

const ginKeyDeviceID = "device_id"

// JWTAuthMiddleware JWT 认证中间件
// 从请求头中提取 Token 并验证，验证通过后将用户信息存入 Context
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从 Header 中获取 Authorization
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// 客户端请求错误,属于正常业务流程,不记录日志
			result.Abort(c, http.StatusUnauthorized, consts.CodeUnauthorized)
			return
		}

		// 2. 验证格式: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			result.Abort(c, http.StatusUnauthorized, consts.CodeUnauthorized)
			return
		}

		// 3. 解析并验证 Token
		claims, err := util.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, util.ErrTokenExpired) {
				result.Abort(c, http.StatusUnauthorized, consts.CodeTokenExpired)
				return
			}
			result.Abort(c, http.StatusUnauthorized, consts.CodeInvalidToken)
			return
		}

		// 4. 将用户信息存入 Context，供后续 Handler 和 Service 使用
		c.Set(ctxmeta.GinKeyUserUUID, claims.UserUUID)
		c.Set(ginKeyDeviceID, claims.DeviceID)
		c.Request = c.Request.WithContext(ctxmeta.WithUserUUID(c.Request.Context(), claims.UserUUID))

		c.Next()
	}
}

// GetUserUUID 从 Context 中获取当前登录用户的 UUID
func GetUserUUID(c *gin.Context) (string, bool) {
	userUUID, exists := c.Get(ctxmeta.GinKeyUserUUID)
	if !exists {
		return "", false
	}
	uuid, ok := userUUID.(string)
	return uuid, ok && uuid != ""
}

// GetDeviceID 从 Context 中获取当前设备 ID
func GetDeviceID(c *gin.Context) (string, bool) {
	deviceID, exists := c.Get(ginKeyDeviceID)
	if !exists {
		return "", false
	}
	id, ok := deviceID.(string)
	return id, ok
}
