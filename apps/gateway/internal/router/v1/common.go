package v1

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"HobbyChat/apps/gateway/internal/middleware"
	"HobbyChat/apps/gateway/internal/utils"
	"HobbyChat/consts"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// currentUser 读取 JWT 中间件写入的用户 uuid；缺失时直接写 401
func currentUser(c *gin.Context) (string, bool) {
	uid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Abort(c, http.StatusUnauthorized, consts.CodeUnauthorized)
		return "", false
	}
	return uid, true
}

// pathParam 读取并裁剪路径参数；为空时写参数错误
func pathParam(c *gin.Context, name string) (string, bool) {
	v := strings.TrimSpace(c.Param(name))
	if v == "" {
		result.Fail(c, nil, consts.CodeParamError)
		return "", false
	}
	return v, true
}

// targetOrSelf 路径里没有 userId 时取当前用户
func targetOrSelf(c *gin.Context, uid string) string {
	if id := strings.TrimSpace(c.Param("userId")); id != "" {
		return id
	}
	return uid
}

// queryLimit 读取 ?limit=，非法或缺省时返回 def，上限 max
func queryLimit(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, max)
}

// fail 业务错误原样返回错误码，服务端错误记录日志后返回通用错误码
func fail(ctx context.Context, c *gin.Context, msg string, err error) {
	code := utils.ExtractErrorCode(err)
	if consts.IsNonServerError(code) {
		result.Fail(c, nil, code)
		return
	}
	logger.Error(ctx, msg, logger.ErrorField("error", err))
	result.Fail(c, nil, consts.CodeInternalError)
}
