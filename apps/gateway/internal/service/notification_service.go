package service

import (
	"context"
	"strings"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/consts"
	"HobbyChat/model"
	"HobbyChat/pkg/logger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// notificationServiceImpl 站内通知
type notificationServiceImpl struct {
	notifications repository.INotificationRepository
	profiles      repository.IProfileRepository
	relations     RelationService
	dashboard     DashboardService
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	notifications repository.INotificationRepository,
	profiles repository.IProfileRepository,
	relations RelationService,
	dashboard DashboardService,
) NotificationService {
	return &notificationServiceImpl{
		notifications: notifications,
		profiles:      profiles,
		relations:     relations,
		dashboard:     dashboard,
	}
}

// List 通知列表，新的在前
func (s *notificationServiceImpl) List(ctx context.Context, userID string, limit int) ([]*dto.NotificationItem, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	limit = min(limit, maxNotificationLimit)

	list, err := s.notifications.List(ctx, userID, limit)
	if err != nil {
		return nil, internalError(ctx, "查询通知列表失败", err)
	}
	if len(list) == 0 {
		return []*dto.NotificationItem{}, nil
	}

	actorIDs := make([]string, 0, len(list))
	for _, n := range list {
		if n.ActorID != "" {
			actorIDs = append(actorIDs, n.ActorID)
		}
	}
	byID := map[string]*model.UserProfile{}
	if len(actorIDs) > 0 {
		profiles, err := s.profiles.BatchGet(ctx, actorIDs)
		if err != nil {
			// 昵称只用于展示
			logger.Warn(ctx, "批量查询通知触发方资料失败", logger.ErrorField("error", err))
		} else {
			byID = profileIndex(profiles)
		}
	}

	out := make([]*dto.NotificationItem, 0, len(list))
	for _, n := range list {
		item := &dto.NotificationItem{
			ID:        formatID(n.ID),
			Type:      n.Type,
			ActorID:   n.ActorID,
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: unixMilli(n.CreatedAt),
		}
		if n.ActorID != "" {
			item.ActorName = displayName(byID[n.ActorID])
		}
		out = append(out, item)
	}
	return out, nil
}

// UnreadCount 未读通知数
func (s *notificationServiceImpl) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, internalError(ctx, "统计未读通知失败", err)
	}
	return n, nil
}

// MarkRead 标记已读
func (s *notificationServiceImpl) MarkRead(ctx context.Context, userID, notificationID string) error {
	id, err := parseID(notificationID)
	if err != nil {
		return err
	}
	ok, err := s.notifications.MarkRead(ctx, userID, id)
	if err != nil {
		return internalError(ctx, "标记通知已读失败", err)
	}
	if !ok {
		return bizError(codes.NotFound, consts.CodeNotificationNotFound)
	}
	s.push(ctx, userID)
	return nil
}

// Delete 删除通知
func (s *notificationServiceImpl) Delete(ctx context.Context, userID, notificationID string) error {
	id, err := parseID(notificationID)
	if err != nil {
		return err
	}
	ok, err := s.notifications.Delete(ctx, userID, id)
	if err != nil {
		return internalError(ctx, "删除通知失败", err)
	}
	if !ok {
		return bizError(codes.NotFound, consts.CodeNotificationNotFound)
	}
	s.push(ctx, userID)
	return nil
}

// Ignore 忽略通知：删除通知；若是关注申请，同时拒绝对应的 pending 边
func (s *notificationServiceImpl) Ignore(ctx context.Context, userID, notificationID string) error {
	n, err := s.get(ctx, userID, notificationID)
	if err != nil {
		return err
	}

	if n.Type == model.NotificationTypeChatRequest && n.ActorID != "" {
		// 拒绝会连同通知一起删除
		if err := s.relations.RejectFollowRequest(ctx, userID, n.ActorID); err != nil && status.Code(err) != codes.NotFound {
			return err
		}
	}
	if _, err := s.notifications.Delete(ctx, userID, n.ID); err != nil {
		return internalError(ctx, "删除通知失败", err)
	}
	s.push(ctx, userID)
	return nil
}

// FollowBack 回关通知的触发方，并把通知标为已读
func (s *notificationServiceImpl) FollowBack(ctx context.Context, userID, notificationID string) (*dto.FollowStatusResponse, error) {
	n, err := s.get(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(n.ActorID) == "" {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}

	resp, err := s.relations.SendFollowRequest(ctx, userID, n.ActorID)
	if err != nil {
		if status.Code(err) != codes.AlreadyExists {
			return nil, err
		}
		st, serr := s.relations.FollowStatus(ctx, userID, n.ActorID)
		if serr != nil {
			return nil, serr
		}
		resp = &dto.FollowStatusResponse{Status: st}
	}

	if _, err := s.notifications.MarkRead(ctx, userID, n.ID); err != nil {
		logger.Warn(ctx, "回关后标记通知已读失败", logger.ErrorField("error", err))
	}
	s.push(ctx, userID)
	return resp, nil
}

func (s *notificationServiceImpl) get(ctx context.Context, userID, notificationID string) (*model.Notification, error) {
	id, err := parseID(notificationID)
	if err != nil {
		return nil, err
	}
	n, err := s.notifications.Get(ctx, userID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, bizError(codes.NotFound, consts.CodeNotificationNotFound)
		}
		return nil, internalError(ctx, "查询通知失败", err)
	}
	return n, nil
}

func (s *notificationServiceImpl) push(ctx context.Context, userIDs ...string) {
	if s.dashboard != nil {
		s.dashboard.Push(ctx, userIDs...)
	}
}
