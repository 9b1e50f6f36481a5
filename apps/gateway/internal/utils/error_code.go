package utils

import (
	"strconv"

	"HobbyChat/consts"

	"google.golang.org/grpc/status"
)

// ExtractErrorCode 提取业务错误码
// 服务层约定 status message 为业务码字符串；解析失败时按 gRPC code 兜底映射
func ExtractErrorCode(err error) int32 {
	if err == nil {
		return consts.CodeSuccess
	}

	st, ok := status.FromError(err)
	if !ok {
		return consts.CodeInternalError
	}
	if bizCode, parseErr := strconv.Atoi(st.Message()); parseErr == nil {
		return int32(bizCode)
	}
	return grpcCodeToBusinessCode(st.Code())
}
