package consts

// 通用错误码
const (
	CodeSuccess = 0 // 成功
)

// 客户端错误 (1xxxx)
const (
	CodeParamError       = 10001 // 参数验证失败
	CodeBodyError        = 10002 // 请求体格式错误
	CodeResourceNotFound = 10003 // 资源不存在
	CodeMethodNotAllowed = 10004 // 请求方法不允许
	CodeTooManyRequests  = 10005 // 请求过于频繁
	CodeBodyTooLarge     = 10006 // 请求体过大
	CodeFileTypeInvalid  = 10007 // 文件类型不支持
)

// 认证错误 (2xxxx)
const (
	CodeUnauthorized   = 20001 // 未认证
	CodeInvalidToken   = 20002 // Token 无效
	CodeTokenExpired   = 20003 // Token 已过期
	CodePermissionDeny = 20004 // 权限不足
)

// 用户资料模块错误 (11xxx)
const (
	CodeUserNotFound = 11001 // 用户不存在
	CodeNoHobbies    = 11002 // 尚未填写爱好
	CodeHobbyInvalid = 11003 // 爱好格式不合法
)

// 关系模块错误 (12xxx)
const (
	CodeFollowSelf           = 12001 // 不能关注自己
	CodeFollowRequestExists  = 12002 // 关注申请已存在
	CodeFollowRequestMissing = 12003 // 关注申请不存在
	CodeNotConnected         = 12004 // 双方尚未建立连接
	CodeBlockSelf            = 12005 // 不能拉黑自己
	CodeAlreadyBlocked       = 12006 // 已经拉黑
	CodeNotBlocked           = 12007 // 未拉黑该用户
	CodeBlockedRelation      = 12008 // 存在拉黑关系
	CodeNotificationNotFound = 12009 // 通知不存在
)

// 消息模块错误 (13xxx)
const (
	CodeMessageNotFound       = 13001 // 消息不存在
	CodeMessageSendFail       = 13002 // 消息发送失败
	CodeMessageTypeNotSupport = 13003 // 消息类型不支持
	CodeNotMessageSender      = 13004 // 只能操作自己发送的消息
	CodeNotParticipant        = 13005 // 不是会话参与者
	CodeMessageEmpty          = 13006 // 消息内容为空
)

// 服务端错误 (3xxxx)
const (
	CodeInternalError      = 30001 // 服务器内部错误
	CodeServiceUnavailable = 30002 // 服务暂不可用
	CodeTimeoutError       = 30003 // 请求超时
)

// 错误消息映射
var CodeMessage = map[int32]string{
	CodeSuccess: "success",

	// 客户端错误
	CodeParamError:       "参数验证失败",
	CodeBodyError:        "请求体格式错误",
	CodeResourceNotFound: "资源不存在",
	CodeMethodNotAllowed: "请求方法不允许",
	CodeTooManyRequests:  "请求过于频繁",
	CodeBodyTooLarge:     "请求体过大",
	CodeFileTypeInvalid:  "文件类型不支持",

	// 认证错误
	CodeUnauthorized:   "未认证",
	CodeInvalidToken:   "Token 无效",
	CodeTokenExpired:   "Token 已过期",
	CodePermissionDeny: "权限不足",

	// 用户资料模块
	CodeUserNotFound: "用户不存在",
	CodeNoHobbies:    "尚未填写爱好",
	CodeHobbyInvalid: "爱好格式不合法",

	// 关系模块
	CodeFollowSelf:           "不能关注自己",
	CodeFollowRequestExists:  "关注申请已存在",
	CodeFollowRequestMissing: "关注申请不存在",
	CodeNotConnected:         "双方尚未建立连接",
	CodeBlockSelf:            "不能拉黑自己",
	CodeAlreadyBlocked:       "已经拉黑该用户",
	CodeNotBlocked:           "未拉黑该用户",
	CodeBlockedRelation:      "存在拉黑关系",
	CodeNotificationNotFound: "通知不存在",

	// 消息模块
	CodeMessageNotFound:       "消息不存在",
	CodeMessageSendFail:       "消息发送失败",
	CodeMessageTypeNotSupport: "消息类型不支持",
	CodeNotMessageSender:      "只能操作自己发送的消息",
	CodeNotParticipant:        "不是会话参与者",
	CodeMessageEmpty:          "消息内容为空",

	// 服务端错误
	CodeInternalError:      "服务器内部错误",
	CodeServiceUnavailable: "服务暂不可用",
	CodeTimeoutError:       "请求超时",
}

// GetMessage 根据错误码获取错误消息
func GetMessage(code int32) string {
	if msg, ok := CodeMessage[code]; ok {
		return msg
	}
	return "未知错误"
}

// IsNonServerError 判断是否为可直接返回给客户端的业务错误（非 3xxxx 服务端错误）
func IsNonServerError(code int32) bool {
	return code != CodeSuccess && (code < 30000 || code >= 40000)
}
