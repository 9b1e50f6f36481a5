package v1

import (
	"HobbyChat/apps/gateway/internal/middleware"
	"HobbyChat/apps/gateway/internal/service"
	"HobbyChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// MatchHandler 推荐接口
type MatchHandler struct {
	matchService service.MatchService
}

// NewMatchHandler 创建推荐处理器
func NewMatchHandler(matchService service.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// Recommendations 推荐列表
// @Summary 推荐用户
// @Description 按爱好相似度排序的推荐用户，内部错误时返回空列表和说明
// @Tags 匹配接口
// @Produce json
// @Success 200 {object} dto.RecommendationsResponse
// @Router /api/v1/auth/recommendations [get]
func (h *MatchHandler) Recommendations(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	result.Success(c, h.matchService.Recommendations(ctx, uid))
}

// MatchPercentage 两人匹配度
// @Summary 匹配度
// @Tags 匹配接口
// @Produce json
// @Param userId path string true "对方用户ID"
// @Success 200 {object} dto.MatchPercentageResponse
// @Router /api/v1/auth/match/{userId} [get]
func (h *MatchHandler) MatchPercentage(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	target, ok := pathParam(c, "userId")
	if !ok {
		return
	}

	resp, err := h.matchService.MatchPercentage(ctx, uid, target)
	if err != nil {
		fail(ctx, c, "计算匹配度服务内部错误", err)
		return
	}
	result.Success(c, resp)
}
