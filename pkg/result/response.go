package result

import (
	"net/http"

	"HobbyChat/consts"
	"HobbyChat/pkg/ctxmeta"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构体
type Response struct {
	Code    int32       `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	TraceId string      `json:"trace_id"`
}

// Result 返回响应（业务错误同样使用 HTTP 200，错误语义由 code 表达）
func Result(c *gin.Context, data interface{}, message string, code int32) {
	c.JSON(http.StatusOK, build(c, data, message, code))
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	Result(c, data, "", consts.CodeSuccess)
}

// Fail 返回失败响应
func Fail(c *gin.Context, data interface{}, code int32) {
	Result(c, data, "", code)
}

// SuccessWithMessage 返回成功响应并自定义消息
func SuccessWithMessage(c *gin.Context, data interface{}, message string) {
	Result(c, data, message, consts.CodeSuccess)
}

// FailWithMessage 返回失败响应并自定义消息
func FailWithMessage(c *gin.Context, data interface{}, message string, code int32) {
	Result(c, data, message, code)
}

// Abort 中间件拦截请求时使用：写入指定 HTTP 状态码并终止后续处理
func Abort(c *gin.Context, httpStatus int, code int32) {
	c.AbortWithStatusJSON(httpStatus, build(c, nil, "", code))
}

func build(c *gin.Context, data interface{}, message string, code int32) Response {
	if message == "" {
		message = consts.GetMessage(code)
	}
	return Response{
		Code:    code,
		Message: message,
		Data:    data,
		TraceId: ctxmeta.TraceIDFromGin(c),
	}
}
