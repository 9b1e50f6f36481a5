package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/consts"
	"HobbyChat/model"
	"HobbyChat/pkg/logger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// bizError 构造携带业务码的 gRPC status 错误，Handler 层用 utils.ExtractErrorCode 还原
func bizError(c codes.Code, bizCode int) error {
	return status.Error(c, strconv.Itoa(bizCode))
}

// internalError 记录日志并返回内部错误
func internalError(ctx context.Context, msg string, err error) error {
	logger.Error(ctx, msg, logger.ErrorField("error", err))
	return bizError(codes.Internal, consts.CodeInternalError)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrRecordNotFound)
}

// parseID 解析字符串形式的 snowflake id
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, bizError(codes.InvalidArgument, consts.CodeParamError)
	}
	return id, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// NormalizeHobbies 去掉首尾空白和空项，按大小写不敏感去重，保留首次出现的写法
func NormalizeHobbies(hobbies []string) []string {
	out := make([]string, 0, len(hobbies))
	seen := make(map[string]struct{}, len(hobbies))
	for _, h := range hobbies {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		key := strings.ToLower(h)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}

// profileIndex 把 BatchGet 结果转成 id -> profile
func profileIndex(list []*model.UserProfile) map[string]*model.UserProfile {
	m := make(map[string]*model.UserProfile, len(list))
	for _, p := range list {
		m[p.ID] = p
	}
	return m
}

func displayName(p *model.UserProfile) string {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return "Someone"
	}
	return p.Name
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// unixMilli 零值时间返回 0
func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToRoom(string, string, any, string) int { return 0 }
func (noopBroadcaster) SendToUser(string, string, any) int              { return 0 }

type offlinePresence struct{}

func (offlinePresence) IsOnline(string) bool { return false }
