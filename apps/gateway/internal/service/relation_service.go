package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/consts"
	"HobbyChat/model"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/util"

	"google.golang.org/grpc/codes"
)

// relationServiceImpl 关注与拉黑
type relationServiceImpl struct {
	profiles  repository.IProfileRepository
	follows   repository.IFollowRepository
	blocks    repository.IBlockRepository
	presence  PresenceReader
	dashboard DashboardService
}

// NewRelationService 创建关系服务
func NewRelationService(
	profiles repository.IProfileRepository,
	follows repository.IFollowRepository,
	blocks repository.IBlockRepository,
	presence PresenceReader,
	dashboard DashboardService,
) RelationService {
	if presence == nil {
		presence = offlinePresence{}
	}
	return &relationServiceImpl{
		profiles:  profiles,
		follows:   follows,
		blocks:    blocks,
		presence:  presence,
		dashboard: dashboard,
	}
}

// FollowStatusOf 从 userID 的视角解析两人之间的关注边：
// accepted 优先；自己发出的边返回边的状态；对方发来的 pending 返回 received
func FollowStatusOf(userID string, edges []*model.Follow) string {
	for _, e := range edges {
		if e.Status == model.FollowStatusAccepted {
			return dto.FollowStatusAccepted
		}
	}
	for _, e := range edges {
		if e.FollowerID == userID {
			return e.Status
		}
	}
	for _, e := range edges {
		if e.FollowingID == userID && e.Status == model.FollowStatusPending {
			return dto.FollowStatusReceived
		}
	}
	return dto.FollowStatusNone
}

// FollowStatus 关注状态
func (s *relationServiceImpl) FollowStatus(ctx context.Context, userID, otherID string) (string, error) {
	if userID == otherID {
		return dto.FollowStatusNone, nil
	}
	edges, err := s.follows.ListBetween(ctx, userID, otherID)
	if err != nil {
		return "", internalError(ctx, "查询关注关系失败", err)
	}
	return FollowStatusOf(userID, edges), nil
}

// SendFollowRequest 发送关注申请
// 业务流程：
//  1. 校验目标用户、拉黑关系
//  2. 已有同方向的边直接拒绝；对方已向自己发起申请时视为互相关注，直接接受
//  3. 同一事务内创建 pending 边与 chat_request 通知，唯一索引兜底并发重复申请
//
// 错误码映射：
//   - codes.InvalidArgument: 关注自己
//   - codes.NotFound: 目标用户不存在
//   - codes.PermissionDenied: 存在拉黑关系
//   - codes.AlreadyExists: 申请已存在或已连接
func (s *relationServiceImpl) SendFollowRequest(ctx context.Context, requesterID, targetID string) (*dto.FollowStatusResponse, error) {
	if requesterID == targetID {
		return nil, bizError(codes.InvalidArgument, consts.CodeFollowSelf)
	}
	exists, err := s.profiles.Exists(ctx, targetID)
	if err != nil {
		return nil, internalError(ctx, "查询目标用户失败", err)
	}
	if !exists {
		return nil, bizError(codes.NotFound, consts.CodeUserNotFound)
	}
	blocked, err := s.blocks.IsBlockedEither(ctx, requesterID, targetID)
	if err != nil {
		return nil, internalError(ctx, "查询拉黑关系失败", err)
	}
	if blocked {
		return nil, bizError(codes.PermissionDenied, consts.CodeBlockedRelation)
	}

	edges, err := s.follows.ListBetween(ctx, requesterID, targetID)
	if err != nil {
		return nil, internalError(ctx, "查询关注关系失败", err)
	}
	switch FollowStatusOf(requesterID, edges) {
	case dto.FollowStatusAccepted, dto.FollowStatusPending:
		return nil, bizError(codes.AlreadyExists, consts.CodeFollowRequestExists)
	case dto.FollowStatusReceived:
		if err := s.AcceptFollowRequest(ctx, requesterID, targetID); err != nil {
			return nil, err
		}
		return &dto.FollowStatusResponse{Status: dto.FollowStatusAccepted}, nil
	}

	requester, err := s.profiles.Get(ctx, requesterID)
	if err != nil && !isNotFound(err) {
		return nil, internalError(ctx, "查询申请方资料失败", err)
	}

	follow := &model.Follow{
		FollowerID:  requesterID,
		FollowingID: targetID,
		Status:      model.FollowStatusPending,
	}
	notification := &model.Notification{
		ID:      util.NextID(),
		UserID:  targetID,
		ActorID: requesterID,
		Type:    model.NotificationTypeChatRequest,
		Message: fmt.Sprintf("%s wants to connect with you", displayName(requester)),
	}
	if err := s.follows.CreateRequest(ctx, follow, notification); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, bizError(codes.AlreadyExists, consts.CodeFollowRequestExists)
		}
		return nil, internalError(ctx, "创建关注申请失败", err)
	}

	logger.Info(ctx, "发送关注申请",
		logger.String("requester", requesterID),
		logger.String("target", targetID),
	)
	s.push(ctx, targetID)
	return &dto.FollowStatusResponse{Status: dto.FollowStatusPending}, nil
}

// AcceptFollowRequest 接受 requesterID 发给 userID 的申请
//
// 错误码映射：
//   - codes.NotFound: 没有待处理的申请
func (s *relationServiceImpl) AcceptFollowRequest(ctx context.Context, userID, requesterID string) error {
	me, err := s.profiles.Get(ctx, userID)
	if err != nil && !isNotFound(err) {
		return internalError(ctx, "查询用户资料失败", err)
	}
	accepted := &model.Notification{
		ID:      util.NextID(),
		UserID:  requesterID,
		ActorID: userID,
		Type:    model.NotificationTypeFollowAccepted,
		Message: fmt.Sprintf("%s accepted your request", displayName(me)),
	}
	ok, err := s.follows.Accept(ctx, requesterID, userID, accepted)
	if err != nil {
		return internalError(ctx, "接受关注申请失败", err)
	}
	if !ok {
		return bizError(codes.NotFound, consts.CodeFollowRequestMissing)
	}

	logger.Info(ctx, "接受关注申请",
		logger.String("user", userID),
		logger.String("requester", requesterID),
	)
	s.push(ctx, userID, requesterID)
	return nil
}

// RejectFollowRequest 拒绝申请：直接删除 pending 边，对方可以重新申请
func (s *relationServiceImpl) RejectFollowRequest(ctx context.Context, userID, requesterID string) error {
	ok, err := s.follows.DeletePending(ctx, requesterID, userID)
	if err != nil {
		return internalError(ctx, "删除关注申请失败", err)
	}
	if !ok {
		return bizError(codes.NotFound, consts.CodeFollowRequestMissing)
	}
	s.push(ctx, userID, requesterID)
	return nil
}

// ListConnections 已连接用户，按昵称排序
func (s *relationServiceImpl) ListConnections(ctx context.Context, userID string) ([]*dto.ConnectionItem, error) {
	ids, err := s.follows.ConnectedIDs(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "查询连接列表失败", err)
	}
	if len(ids) == 0 {
		return []*dto.ConnectionItem{}, nil
	}
	profiles, err := s.profiles.BatchGet(ctx, ids)
	if err != nil {
		return nil, internalError(ctx, "批量查询用户资料失败", err)
	}
	byID := profileIndex(profiles)

	out := make([]*dto.ConnectionItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, &dto.ConnectionItem{
			UserBrief: brief(id, byID[id]),
			Online:    s.presence.IsOnline(id),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListFollowers 关注了 userID 的用户
func (s *relationServiceImpl) ListFollowers(ctx context.Context, viewerID, userID string) ([]*dto.FollowItem, error) {
	if err := s.checkVisible(ctx, viewerID, userID); err != nil {
		return nil, err
	}
	edges, err := s.follows.ListFollowers(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "查询关注者失败", err)
	}
	return s.followItems(ctx, userID, edges)
}

// ListFollowing userID 关注的用户
func (s *relationServiceImpl) ListFollowing(ctx context.Context, viewerID, userID string) ([]*dto.FollowItem, error) {
	if err := s.checkVisible(ctx, viewerID, userID); err != nil {
		return nil, err
	}
	edges, err := s.follows.ListFollowing(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "查询关注列表失败", err)
	}
	return s.followItems(ctx, userID, edges)
}

// checkVisible 查看他人的关注列表：用户必须存在，且双方没有拉黑关系
func (s *relationServiceImpl) checkVisible(ctx context.Context, viewerID, userID string) error {
	if userID == "" {
		return bizError(codes.InvalidArgument, consts.CodeParamError)
	}
	if viewerID == userID {
		return nil
	}
	exists, err := s.profiles.Exists(ctx, userID)
	if err != nil {
		return internalError(ctx, "查询目标用户失败", err)
	}
	if !exists {
		return bizError(codes.NotFound, consts.CodeUserNotFound)
	}
	blocked, err := s.blocks.IsBlockedEither(ctx, viewerID, userID)
	if err != nil {
		return internalError(ctx, "查询拉黑关系失败", err)
	}
	if blocked {
		return bizError(codes.PermissionDenied, consts.CodeBlockedRelation)
	}
	return nil
}

func (s *relationServiceImpl) followItems(ctx context.Context, userID string, edges []*model.Follow) ([]*dto.FollowItem, error) {
	if len(edges) == 0 {
		return []*dto.FollowItem{}, nil
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.Counterpart(userID))
	}
	profiles, err := s.profiles.BatchGet(ctx, ids)
	if err != nil {
		return nil, internalError(ctx, "批量查询用户资料失败", err)
	}
	byID := profileIndex(profiles)

	out := make([]*dto.FollowItem, 0, len(edges))
	for _, e := range edges {
		id := e.Counterpart(userID)
		out = append(out, &dto.FollowItem{
			UserBrief: brief(id, byID[id]),
			Online:    s.presence.IsOnline(id),
			Since:     unixMilli(e.UpdatedAt),
		})
	}
	return out, nil
}

// ListPendingRequests 收到的待处理申请
func (s *relationServiceImpl) ListPendingRequests(ctx context.Context, userID string) ([]*dto.PendingRequestItem, error) {
	edges, err := s.follows.ListIncomingPending(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "查询待处理申请失败", err)
	}
	if len(edges) == 0 {
		return []*dto.PendingRequestItem{}, nil
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FollowerID)
	}
	profiles, err := s.profiles.BatchGet(ctx, ids)
	if err != nil {
		return nil, internalError(ctx, "批量查询用户资料失败", err)
	}
	byID := profileIndex(profiles)

	out := make([]*dto.PendingRequestItem, 0, len(edges))
	for _, e := range edges {
		out = append(out, &dto.PendingRequestItem{
			UserBrief:   brief(e.FollowerID, byID[e.FollowerID]),
			RequestedAt: unixMilli(e.CreatedAt),
		})
	}
	return out, nil
}

// Block 拉黑，级联删除两人之间的关注边和申请通知
//
// 错误码映射：
//   - codes.InvalidArgument: 拉黑自己
//   - codes.NotFound: 目标用户不存在
//   - codes.AlreadyExists: 已拉黑
func (s *relationServiceImpl) Block(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == blockedID {
		return bizError(codes.InvalidArgument, consts.CodeBlockSelf)
	}
	exists, err := s.profiles.Exists(ctx, blockedID)
	if err != nil {
		return internalError(ctx, "查询目标用户失败", err)
	}
	if !exists {
		return bizError(codes.NotFound, consts.CodeUserNotFound)
	}
	if err := s.blocks.Block(ctx, blockerID, blockedID); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return bizError(codes.AlreadyExists, consts.CodeAlreadyBlocked)
		}
		return internalError(ctx, "拉黑失败", err)
	}

	logger.Info(ctx, "拉黑用户",
		logger.String("blocker", blockerID),
		logger.String("blocked", blockedID),
	)
	s.push(ctx, blockerID, blockedID)
	return nil
}

// Unblock 取消拉黑
func (s *relationServiceImpl) Unblock(ctx context.Context, blockerID, blockedID string) error {
	ok, err := s.blocks.Unblock(ctx, blockerID, blockedID)
	if err != nil {
		return internalError(ctx, "取消拉黑失败", err)
	}
	if !ok {
		return bizError(codes.NotFound, consts.CodeNotBlocked)
	}
	return nil
}

// ListBlocked 拉黑列表
func (s *relationServiceImpl) ListBlocked(ctx context.Context, userID string) ([]*dto.BlockedItem, error) {
	blocks, err := s.blocks.ListByBlocker(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "查询拉黑列表失败", err)
	}
	if len(blocks) == 0 {
		return []*dto.BlockedItem{}, nil
	}
	ids := make([]string, 0, len(blocks))
	for _, b := range blocks {
		ids = append(ids, b.BlockedID)
	}
	profiles, err := s.profiles.BatchGet(ctx, ids)
	if err != nil {
		return nil, internalError(ctx, "批量查询用户资料失败", err)
	}
	byID := profileIndex(profiles)

	out := make([]*dto.BlockedItem, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, &dto.BlockedItem{
			UserID:    b.BlockedID,
			Name:      displayName(byID[b.BlockedID]),
			BlockedAt: unixMilli(b.CreatedAt),
		})
	}
	return out, nil
}

func (s *relationServiceImpl) push(ctx context.Context, userIDs ...string) {
	if s.dashboard != nil {
		s.dashboard.Push(ctx, userIDs...)
	}
}

func brief(id string, p *model.UserProfile) dto.UserBrief {
	b := dto.UserBrief{UserID: id, Name: displayName(p), Hobbies: []string{}}
	if p != nil {
		b.Hobbies = nonNil(p.Hobbies)
	}
	return b
}
