package service

import (
	"context"
	"time"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/pkg/async"
	"HobbyChat/pkg/logger"
)

const dashboardPushTimeout = 3 * time.Second

// dashboardServiceImpl 首页统计
type dashboardServiceImpl struct {
	follows       repository.IFollowRepository
	notifications repository.INotificationRepository
	messages      repository.IMessageRepository
	bus           Broadcaster
	presence      PresenceReader
}

// NewDashboardService 创建首页统计服务，bus 为 nil 时 Push 不做任何事；
// presence 为 nil 时所有用户都按离线处理
func NewDashboardService(
	follows repository.IFollowRepository,
	notifications repository.INotificationRepository,
	messages repository.IMessageRepository,
	bus Broadcaster,
	presence PresenceReader,
) DashboardService {
	if presence == nil {
		presence = offlinePresence{}
	}
	return &dashboardServiceImpl{
		follows:       follows,
		notifications: notifications,
		messages:      messages,
		bus:           bus,
		presence:      presence,
	}
}

// Stats 首页统计
func (s *dashboardServiceImpl) Stats(ctx context.Context, userID string) (*dto.DashboardStats, error) {
	pending, err := s.follows.CountIncomingPending(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "统计待处理申请失败", err)
	}
	unreadNotifications, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "统计未读通知失败", err)
	}
	connected, err := s.follows.ConnectedIDs(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "统计连接数失败", err)
	}
	unreadMessages, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "统计未读消息失败", err)
	}
	return &dto.DashboardStats{
		PendingRequests:     pending,
		UnreadNotifications: unreadNotifications,
		Connections:         int64(len(connected)),
		UnreadMessages:      unreadMessages,
	}, nil
}

// Push 对每个在线用户异步推送最新统计，离线用户不查库
func (s *dashboardServiceImpl) Push(ctx context.Context, userIDs ...string) {
	if s.bus == nil {
		return
	}
	for _, id := range userIDs {
		if !s.presence.IsOnline(id) {
			continue
		}
		userID := id
		async.RunSafe(ctx, func(ctx context.Context) {
			stats, err := s.Stats(ctx, userID)
			if err != nil {
				logger.Warn(ctx, "计算首页统计失败", logger.String("user_uuid", userID))
				return
			}
			s.bus.SendToUser(userID, dto.EventDashboardUpdate, stats)
		}, dashboardPushTimeout)
	}
}
