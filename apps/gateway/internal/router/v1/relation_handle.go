package v1

import (
	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/middleware"
	"HobbyChat/apps/gateway/internal/service"
	"HobbyChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// RelationHandler 关注、拉黑与首页统计
type RelationHandler struct {
	relationService  service.RelationService
	dashboardService service.DashboardService
}

// NewRelationHandler 创建关系处理器
func NewRelationHandler(relationService service.RelationService, dashboardService service.DashboardService) *RelationHandler {
	return &RelationHandler{
		relationService:  relationService,
		dashboardService: dashboardService,
	}
}

// SendFollowRequest 发起关注申请
// @Param userId path string true "目标用户ID"
// @Success 200 {object} dto.FollowStatusResponse
// @Router /api/v1/auth/follows/{userId} [post]
func (h *RelationHandler) SendFollowRequest(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	target, ok := pathParam(c, "userId")
	if !ok {
		return
	}

	resp, err := h.relationService.SendFollowRequest(ctx, uid, target)
	if err != nil {
		fail(ctx, c, "发起关注申请服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// AcceptFollowRequest 同意关注申请
// @Param userId path string true "申请人ID"
// @Router /api/v1/auth/follows/{userId}/accept [post]
func (h *RelationHandler) AcceptFollowRequest(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	requester, ok := pathParam(c, "userId")
	if !ok {
		return
	}

	if err := h.relationService.AcceptFollowRequest(ctx, uid, requester); err != nil {
		fail(ctx, c, "同意关注申请服务内部错误", err)
		return
	}
	result.Success(c, &dto.FollowStatusResponse{Status: dto.FollowStatusAccepted})
}

// RejectFollowRequest 拒绝关注申请
// @Param userId path string true "申请人ID"
// @Router /api/v1/auth/follows/{userId}/reject [post]
func (h *RelationHandler) RejectFollowRequest(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	requester, ok := pathParam(c, "userId")
	if !ok {
		return
	}

	if err := h.relationService.RejectFollowRequest(ctx, uid, requester); err != nil {
		fail(ctx, c, "拒绝关注申请服务内部错误", err)
		return
	}
	result.Success(c, &dto.FollowStatusResponse{Status: dto.FollowStatusNone})
}

// FollowStatus 与对方的关注状态
// @Param userId path string true "对方用户ID"
// @Success 200 {object} dto.FollowStatusResponse
// @Router /api/v1/auth/follows/{userId}/status [get]
func (h *RelationHandler) FollowStatus(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	other, ok := pathParam(c, "userId")
	if !ok {
		return
	}

	st, err := h.relationService.FollowStatus(ctx, uid, other)
	if err != nil {
		fail(ctx, c, "查询关注状态服务内部错误", err)
		return
	}
	result.Success(c, &dto.FollowStatusResponse{Status: st})
}

// ListConnections 已连接用户
// @Router /api/v1/auth/connections [get]
func (h *RelationHandler) ListConnections(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.relationService.ListConnections(ctx, uid)
	if err != nil {
		fail(ctx, c, "获取连接列表服务内部错误", err)
		return
	}
	result.Success(c, list)
}

// ListFollowers 关注者列表，不带 userId 时查自己
// @Param userId path string false "用户ID"
// @Success 200 {array} dto.FollowItem
// @Router /api/v1/auth/followers [get]
// @Router /api/v1/auth/users/{userId}/followers [get]
func (h *RelationHandler) ListFollowers(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.relationService.ListFollowers(ctx, uid, targetOrSelf(c, uid))
	if err != nil {
		fail(ctx, c, "获取关注者列表服务内部错误", err)
		return
	}
	result.Success(c, list)
}

// ListFollowing 关注中列表，不带 userId 时查自己
// @Param userId path string false "用户ID"
// @Success 200 {array} dto.FollowItem
// @Router /api/v1/auth/following [get]
// @Router /api/v1/auth/users/{userId}/following [get]
func (h *RelationHandler) ListFollowing(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.relationService.ListFollowing(ctx, uid, targetOrSelf(c, uid))
	if err != nil {
		fail(ctx, c, "获取关注列表服务内部错误", err)
		return
	}
	result.Success(c, list)
}

// ListPendingRequests 收到的关注申请
// @Router /api/v1/auth/follows/pending [get]
func (h *RelationHandler) ListPendingRequests(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.relationService.ListPendingRequests(ctx, uid)
	if err != nil {
		fail(ctx, c, "获取关注申请服务内部错误", err)
		return
	}
	result.Success(c, list)
}

// Block 拉黑用户
// @Param userId path string true "目标用户ID"
// @Router /api/v1/auth/blocks/{userId} [post]
func (h *RelationHandler) Block(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	target, ok := pathParam(c, "userId")
	if !ok {
		return
	}

	if err := h.relationService.Block(ctx, uid, target); err != nil {
		fail(ctx, c, "拉黑用户服务内部错误", err)
		return
	}
	result.Success(c, nil)
}

// Unblock 取消拉黑
// @Param userId path string true "目标用户ID"
// @Router /api/v1/auth/blocks/{userId} [delete]
func (h *RelationHandler) Unblock(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	target, ok := pathParam(c, "userId")
	if !ok {
		return
	}

	if err := h.relationService.Unblock(ctx, uid, target); err != nil {
		fail(ctx, c, "取消拉黑服务内部错误", err)
		return
	}
	result.Success(c, nil)
}

// ListBlocked 拉黑列表
// @Router /api/v1/auth/blocks [get]
func (h *RelationHandler) ListBlocked(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.relationService.ListBlocked(ctx, uid)
	if err != nil {
		fail(ctx, c, "获取拉黑列表服务内部错误", err)
		return
	}
	result.Success(c, list)
}

// Dashboard 首页统计
// @Success 200 {object} dto.DashboardStats
// @Router /api/v1/auth/dashboard [get]
func (h *RelationHandler) Dashboard(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	stats, err := h.dashboardService.Stats(ctx, uid)
	if err != nil {
		fail(ctx, c, "获取首页统计服务内部错误", err)
		return
	}
	result.Success(c, stats)
}
