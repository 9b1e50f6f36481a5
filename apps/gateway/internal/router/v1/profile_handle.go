package v1

import (
	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/middleware"
	"HobbyChat/apps/gateway/internal/service"
	"HobbyChat/consts"
	"HobbyChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// ProfileHandler 用户资料与在线状态
type ProfileHandler struct {
	profileService   service.ProfileService
	embeddingService service.EmbeddingService
	presenceService  service.PresenceService
}

// NewProfileHandler 创建资料处理器
func NewProfileHandler(
	profileService service.ProfileService,
	embeddingService service.EmbeddingService,
	presenceService service.PresenceService,
) *ProfileHandler {
	return &ProfileHandler{
		profileService:   profileService,
		embeddingService: embeddingService,
		presenceService:  presenceService,
	}
}

// GetProfile 当前用户资料
// @Router /api/v1/auth/profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	resp, err := h.profileService.Get(ctx, uid)
	if err != nil {
		fail(ctx, c, "获取资料服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// UpdateProfile 修改基础资料
// @Param request body dto.UpdateProfileRequest true "资料"
// @Router /api/v1/auth/profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	resp, err := h.profileService.UpdateBasic(ctx, uid, &req)
	if err != nil {
		fail(ctx, c, "修改资料服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// SaveHobbies 保存爱好并刷新向量
// @Param request body dto.SaveHobbiesRequest true "爱好列表"
// @Success 200 {object} dto.SaveHobbiesResponse
// @Router /api/v1/auth/profile/hobbies [put]
func (h *ProfileHandler) SaveHobbies(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.SaveHobbiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if middleware.IsHobbiesViolation(err) {
			result.Fail(c, nil, consts.CodeHobbyInvalid)
			return
		}
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	resp, err := h.profileService.SaveHobbies(ctx, uid, &req)
	if err != nil {
		fail(ctx, c, "保存爱好服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// RegenerateEmbedding 用当前爱好重新生成向量
// @Router /api/v1/auth/profile/embedding/regenerate [post]
func (h *ProfileHandler) RegenerateEmbedding(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	resp, err := h.embeddingService.Regenerate(ctx, uid)
	if err != nil {
		fail(ctx, c, "重新生成向量服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// GetPublicProfile 查看他人资料
// @Param userId path string true "用户ID"
// @Success 200 {object} dto.PublicProfileResponse
// @Router /api/v1/auth/users/{userId} [get]
func (h *ProfileHandler) GetPublicProfile(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	target, ok := pathParam(c, "userId")
	if !ok {
		return
	}

	resp, err := h.profileService.GetPublic(ctx, uid, target)
	if err != nil {
		fail(ctx, c, "获取他人资料服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// GetPresence 查询在线状态
// @Param userId path string true "用户ID"
// @Success 200 {object} dto.PresenceResponse
// @Router /api/v1/auth/presence/{userId} [get]
func (h *ProfileHandler) GetPresence(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	if _, ok := currentUser(c); !ok {
		return
	}
	target, ok := pathParam(c, "userId")
	if !ok {
		return
	}
	result.Success(c, h.presenceService.Presence(ctx, target))
}
