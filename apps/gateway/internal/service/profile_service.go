package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/consts"
	"HobbyChat/model"
	"HobbyChat/pkg/async"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/util"

	"google.golang.org/grpc/codes"
)

const matchNotifyTimeout = 10 * time.Second

// profileServiceImpl 用户资料
type profileServiceImpl struct {
	profiles      repository.IProfileRepository
	blocks        repository.IBlockRepository
	relations     RelationService
	embeddings    EmbeddingService
	presence      PresenceReader
	matches       MatchService
	notifications repository.INotificationRepository
	bus           Broadcaster
}

// NewProfileService 创建资料服务；matches 或 notifications 为 nil 时保存爱好不发匹配通知
func NewProfileService(
	profiles repository.IProfileRepository,
	blocks repository.IBlockRepository,
	relations RelationService,
	embeddings EmbeddingService,
	presence PresenceReader,
	matches MatchService,
	notifications repository.INotificationRepository,
	bus Broadcaster,
) ProfileService {
	if presence == nil {
		presence = offlinePresence{}
	}
	if bus == nil {
		bus = noopBroadcaster{}
	}
	return &profileServiceImpl{
		profiles:      profiles,
		blocks:        blocks,
		relations:     relations,
		embeddings:    embeddings,
		presence:      presence,
		matches:       matches,
		notifications: notifications,
		bus:           bus,
	}
}

// Get 自己的资料，首次访问时创建空资料
func (s *profileServiceImpl) Get(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	p, err := s.profiles.Ensure(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "查询用户资料失败", err)
	}
	return toProfileResponse(p), nil
}

// UpdateBasic 更新基础资料
func (s *profileServiceImpl) UpdateBasic(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	if _, err := s.profiles.Ensure(ctx, userID); err != nil {
		return nil, internalError(ctx, "查询用户资料失败", err)
	}
	basic := repository.ProfileBasic{
		Name:       req.Name,
		Bio:        req.Bio,
		Location:   req.Location,
		Occupation: req.Occupation,
		Age:        req.Age,
	}
	if err := s.profiles.UpdateBasic(ctx, userID, basic); err != nil {
		return nil, internalError(ctx, "更新用户资料失败", err)
	}
	return s.Get(ctx, userID)
}

// SaveHobbies 保存爱好并刷新向量
// 业务流程：
//  1. 规范化爱好列表后落库（清空爱好时仓储层同时清空向量）
//  2. 非空时同步刷新整体向量与单个爱好向量
//  3. 异步给达到推荐阈值、且有共同爱好的用户发 match 通知
//
// 向量化失败不影响保存结果，只在响应里标记 embedded=false
func (s *profileServiceImpl) SaveHobbies(ctx context.Context, userID string, req *dto.SaveHobbiesRequest) (*dto.SaveHobbiesResponse, error) {
	hobbies := NormalizeHobbies(req.Hobbies)

	me, err := s.profiles.Ensure(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "查询用户资料失败", err)
	}
	if err := s.profiles.SaveHobbies(ctx, userID, hobbies); err != nil {
		return nil, internalError(ctx, "保存爱好失败", err)
	}

	if len(hobbies) == 0 {
		return &dto.SaveHobbiesResponse{Hobbies: []string{}, Message: "Hobbies cleared"}, nil
	}

	embedded := s.embeddings.RefreshEmbedding(ctx, userID, hobbies)
	n := s.embeddings.RefreshPerHobbyEmbeddings(ctx, userID, hobbies)

	logger.Info(ctx, "保存爱好",
		logger.Strings("hobbies", hobbies),
		logger.Bool("embedded", embedded),
		logger.Int("hobby_embeddings", n),
	)
	if s.matches != nil && s.notifications != nil {
		name := displayName(me)
		async.RunSafe(ctx, func(ctx context.Context) {
			s.notifyMatches(ctx, userID, name)
		}, matchNotifyTimeout)
	}
	return &dto.SaveHobbiesResponse{
		Hobbies:         hobbies,
		Embedded:        embedded,
		HobbyEmbeddings: n,
		Message:         embeddingMessage(embedded),
	}, nil
}

// GetPublic 他人资料；存在拉黑关系时按不存在处理
func (s *profileServiceImpl) GetPublic(ctx context.Context, viewerID, targetID string) (*dto.PublicProfileResponse, error) {
	if viewerID != targetID {
		blocked, err := s.blocks.IsBlockedEither(ctx, viewerID, targetID)
		if err != nil {
			return nil, internalError(ctx, "查询拉黑关系失败", err)
		}
		if blocked {
			return nil, bizError(codes.NotFound, consts.CodeUserNotFound)
		}
	}

	p, err := s.profiles.Get(ctx, targetID)
	if err != nil {
		if isNotFound(err) {
			return nil, bizError(codes.NotFound, consts.CodeUserNotFound)
		}
		return nil, internalError(ctx, "查询用户资料失败", err)
	}

	status, err := s.relations.FollowStatus(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	return &dto.PublicProfileResponse{
		ID:           p.ID,
		Name:         p.Name,
		Bio:          p.Bio,
		Location:     p.Location,
		Occupation:   p.Occupation,
		Age:          p.Age,
		Hobbies:      nonNil(p.Hobbies),
		FollowStatus: status,
		Online:       s.presence.IsOnline(targetID),
	}, nil
}

// notifyMatches 给每个有共同爱好的推荐用户写 match 通知并推送，最后给自己写一条汇总。
// 通知按 (接收方, 触发方, match) 去重，重复保存爱好只刷新文案
func (s *profileServiceImpl) notifyMatches(ctx context.Context, userID, name string) {
	resp := s.matches.Recommendations(ctx, userID)
	if resp == nil || len(resp.Recommendations) == 0 {
		return
	}
	recs := resp.Recommendations

	notified := 0
	for _, c := range recs {
		if len(c.SharedHobbies) == 0 {
			continue
		}
		msg := fmt.Sprintf("%s shares your interests in %s", name, strings.Join(c.SharedHobbies, ", "))
		if err := s.notifications.Upsert(ctx, &model.Notification{
			ID:      util.NextID(),
			UserID:  c.UserID,
			ActorID: userID,
			Type:    model.NotificationTypeMatch,
			Message: msg,
		}); err != nil {
			logger.Warn(ctx, "写入匹配通知失败",
				logger.String("target", c.UserID),
				logger.ErrorField("error", err),
			)
			continue
		}
		s.bus.SendToUser(c.UserID, dto.EventNewNotification, &dto.NewNotificationEvent{
			Type:          model.NotificationTypeMatch,
			Message:       msg,
			UserID:        userID,
			SharedHobbies: c.SharedHobbies,
		})
		notified++
	}

	if err := s.notifications.Upsert(ctx, &model.Notification{
		ID:      util.NextID(),
		UserID:  userID,
		ActorID: userID,
		Type:    model.NotificationTypeMatch,
		Message: fmt.Sprintf("Found %d users with similar interests!", len(recs)),
	}); err != nil {
		logger.Warn(ctx, "写入匹配汇总通知失败", logger.ErrorField("error", err))
	}
	logger.Info(ctx, "匹配通知已发送",
		logger.Int("recommendations", len(recs)),
		logger.Int("notified", notified),
	)
}

func toProfileResponse(p *model.UserProfile) *dto.ProfileResponse {
	resp := &dto.ProfileResponse{
		ID:              p.ID,
		Name:            p.Name,
		Bio:             p.Bio,
		Location:        p.Location,
		Occupation:      p.Occupation,
		Age:             p.Age,
		Hobbies:         nonNil(p.Hobbies),
		HasEmbedding:    p.HasEmbedding(),
		HobbyEmbeddings: len(p.HobbyEmbeddings),
	}
	if p.EmbeddingUpdatedAt != nil {
		resp.EmbeddingUpdatedAt = p.EmbeddingUpdatedAt.UnixMilli()
	}
	return resp
}
