package service

import (
	"context"
	"time"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/pkg/logger"
)

// presenceServiceImpl 在线状态：实时部分来自进程内 Hub，最后在线时间来自 Redis
type presenceServiceImpl struct {
	online   PresenceReader
	lastSeen repository.IPresenceRepository
}

// NewPresenceService 创建在线状态服务，lastSeen 可以为 nil
func NewPresenceService(online PresenceReader, lastSeen repository.IPresenceRepository) PresenceService {
	if online == nil {
		online = offlinePresence{}
	}
	return &presenceServiceImpl{online: online, lastSeen: lastSeen}
}

// Presence 在线状态
func (s *presenceServiceImpl) Presence(ctx context.Context, userID string) *dto.PresenceResponse {
	resp := &dto.PresenceResponse{UserID: userID, Online: s.online.IsOnline(userID)}
	if resp.Online || s.lastSeen == nil {
		return resp
	}
	at, err := s.lastSeen.GetLastSeen(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "查询最后在线时间失败", logger.ErrorField("error", err))
		return resp
	}
	resp.LastSeen = unixMilli(at)
	return resp
}

// RecordOffline 记录最后在线时间
func (s *presenceServiceImpl) RecordOffline(ctx context.Context, userID string, at time.Time) {
	if s.lastSeen == nil {
		return
	}
	if err := s.lastSeen.SetLastSeen(ctx, userID, at); err != nil {
		logger.Warn(ctx, "记录最后在线时间失败",
			logger.String("user_uuid", userID),
			logger.ErrorField("error", err),
		)
	}
}
