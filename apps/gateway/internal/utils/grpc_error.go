package utils

import (
	"HobbyChat/consts"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// grpcCodeToBusinessCode 没有携带业务码的 status 按 gRPC code 映射
func grpcCodeToBusinessCode(code codes.Code) int32 {
	switch code {
	case codes.InvalidArgument:
		return consts.CodeParamError
	case codes.ResourceExhausted:
		return consts.CodeTooManyRequests
	case codes.Unauthenticated:
		return consts.CodeUnauthorized
	case codes.PermissionDenied:
		return consts.CodePermissionDeny
	case codes.NotFound:
		return consts.CodeResourceNotFound
	case codes.Unavailable:
		return consts.CodeServiceUnavailable
	case codes.DeadlineExceeded, codes.Canceled:
		return consts.CodeTimeoutError
	default:
		return consts.CodeInternalError
	}
}

// IsClientCanceled 请求是否因客户端中断而取消，此时不再写响应
func IsClientCanceled(err error) bool {
	return GetGRPCCode(err) == codes.Canceled
}

// GetGRPCCode 获取 gRPC status code
func GetGRPCCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	st, ok := status.FromError(err)
	if !ok {
		return codes.Unknown
	}
	return st.Code()
}
