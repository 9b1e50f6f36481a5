package v1

import (
	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/middleware"
	"HobbyChat/apps/gateway/internal/service"
	"HobbyChat/pkg/result"

	"github.com/gin-gonic/gin"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// NotificationHandler 站内通知
type NotificationHandler struct {
	notificationService service.NotificationService
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List 通知列表（新的在前）
// @Param limit query int false "条数，默认 50"
// @Router /api/v1/auth/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.notificationService.List(ctx, uid, queryLimit(c, defaultNotificationLimit, maxNotificationLimit))
	if err != nil {
		fail(ctx, c, "获取通知列表服务内部错误", err)
		return
	}
	result.Success(c, list)
}

// UnreadCount 未读通知数
// @Router /api/v1/auth/notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	n, err := h.notificationService.UnreadCount(ctx, uid)
	if err != nil {
		fail(ctx, c, "获取未读通知数服务内部错误", err)
		return
	}
	result.Success(c, &dto.CountResponse{Count: n})
}

// MarkRead 标记通知已读
// @Router /api/v1/auth/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(ctx, uid, id); err != nil {
		fail(ctx, c, "标记通知已读服务内部错误", err)
		return
	}
	result.Success(c, nil)
}

// Delete 删除通知
// @Router /api/v1/auth/notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(ctx, uid, id); err != nil {
		fail(ctx, c, "删除通知服务内部错误", err)
		return
	}
	result.Success(c, nil)
}

// Ignore 忽略通知（关注申请会被一并拒绝）
// @Router /api/v1/auth/notifications/{id}/ignore [post]
func (h *NotificationHandler) Ignore(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.Ignore(ctx, uid, id); err != nil {
		fail(ctx, c, "忽略通知服务内部错误", err)
		return
	}
	result.Success(c, nil)
}

// FollowBack 回关通知发起人
// @Success 200 {object} dto.FollowStatusResponse
// @Router /api/v1/auth/notifications/{id}/follow-back [post]
func (h *NotificationHandler) FollowBack(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.notificationService.FollowBack(ctx, uid, id)
	if err != nil {
		fail(ctx, c, "回关服务内部错误", err)
		return
	}
	result.Success(c, resp)
}
