package v1

import (
	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/middleware"
	"HobbyChat/apps/gateway/internal/service"
	"HobbyChat/apps/gateway/internal/utils"
	"HobbyChat/consts"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// MessageHandler 私聊消息
type MessageHandler struct {
	messageService service.MessageService
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// History 会话历史
// @Param partnerId path string true "对方用户ID"
// @Router /api/v1/auth/messages/{partnerId} [get]
func (h *MessageHandler) History(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	partner, ok := pathParam(c, "partnerId")
	if !ok {
		return
	}

	list, err := h.messageService.History(ctx, uid, partner)
	if err != nil {
		fail(ctx, c, "获取会话历史服务内部错误", err)
		return
	}
	result.Success(c, list)
}

// Send 发送文本消息
// @Param request body dto.SendMessageRequest true "消息"
// @Success 200 {object} dto.MessageView
// @Router /api/v1/auth/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	view, err := h.messageService.Send(ctx, uid, &req)
	if err != nil {
		fail(ctx, c, "发送消息服务内部错误", err)
		return
	}
	result.Success(c, view)
}

// SendFile 发送附件消息
// 表单字段：file（必填）、receiverId（必填）、caption（可选）
// @Accept multipart/form-data
// @Router /api/v1/auth/messages/file [post]
func (h *MessageHandler) SendFile(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		result.Fail(c, nil, consts.CodeParamError)
		return
	}
	f, err := fh.Open()
	if err != nil {
		result.Fail(c, nil, consts.CodeBodyError)
		return
	}
	defer f.Close()

	view, err := h.messageService.SendFile(ctx, uid, &service.FileUpload{
		ReceiverID:  c.PostForm("receiverId"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Caption:     c.PostForm("caption"),
		Reader:      f,
	})
	if err != nil {
		// 客户端已经断开，不再写响应
		if utils.IsClientCanceled(err) || ctx.Err() != nil {
			logger.Info(ctx, "客户端中断了附件上传，不写响应")
			return
		}
		fail(ctx, c, "发送附件服务内部错误", err)
		return
	}
	result.Success(c, view)
}

// SendAI 向 AI 助手提问
// @Param request body dto.AIMessageRequest true "提问"
// @Success 200 {object} dto.AIMessageResponse
// @Router /api/v1/auth/messages/ai [post]
func (h *MessageHandler) SendAI(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.AIMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	resp, err := h.messageService.SendAI(ctx, uid, &req)
	if err != nil {
		fail(ctx, c, "AI 消息服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// Edit 编辑消息
// @Param messageId path string true "消息ID"
// @Param request body dto.EditMessageRequest true "新内容"
// @Router /api/v1/auth/messages/{messageId} [put]
func (h *MessageHandler) Edit(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathParam(c, "messageId")
	if !ok {
		return
	}

	var req dto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	view, err := h.messageService.Edit(ctx, uid, id, &req)
	if err != nil {
		fail(ctx, c, "编辑消息服务内部错误", err)
		return
	}
	result.Success(c, view)
}

// Delete 删除消息
// @Param messageId path string true "消息ID"
// @Param deleteFor query string false "me|everyone，默认 me"
// @Router /api/v1/auth/messages/{messageId} [delete]
func (h *MessageHandler) Delete(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathParam(c, "messageId")
	if !ok {
		return
	}

	var q dto.DeleteMessageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	if err := h.messageService.Delete(ctx, uid, id, q.DeleteFor); err != nil {
		fail(ctx, c, "删除消息服务内部错误", err)
		return
	}
	result.Success(c, nil)
}

// BulkDelete 批量删除
// @Param request body dto.BulkDeleteRequest true "消息ID列表"
// @Success 200 {object} dto.BulkDeleteResponse
// @Router /api/v1/auth/messages/bulk-delete [post]
func (h *MessageHandler) BulkDelete(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	resp, err := h.messageService.BulkDelete(ctx, uid, &req)
	if err != nil {
		fail(ctx, c, "批量删除消息服务内部错误", err)
		return
	}
	result.Success(c, resp)
}

// MarkRead 标记来自某人的消息已读
// @Param request body dto.MarkReadRequest true "发送方"
// @Router /api/v1/auth/messages/read [post]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	n, err := h.messageService.MarkRead(ctx, uid, req.SenderID)
	if err != nil {
		fail(ctx, c, "标记消息已读服务内部错误", err)
		return
	}
	result.Success(c, &dto.MarkReadResponse{Updated: n})
}

// UnreadCount 未读消息总数
// @Router /api/v1/auth/messages/unread-count [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	n, err := h.messageService.UnreadCount(ctx, uid)
	if err != nil {
		fail(ctx, c, "获取未读消息数服务内部错误", err)
		return
	}
	result.Success(c, &dto.CountResponse{Count: n})
}

// UnreadCountFrom 来自某人的未读消息数
// @Router /api/v1/auth/messages/unread-count/{partnerId} [get]
func (h *MessageHandler) UnreadCountFrom(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	partner, ok := pathParam(c, "partnerId")
	if !ok {
		return
	}

	n, err := h.messageService.UnreadCountFrom(ctx, uid, partner)
	if err != nil {
		fail(ctx, c, "获取未读消息数服务内部错误", err)
		return
	}
	result.Success(c, &dto.CountResponse{Count: n})
}

// ChatList 会话列表
// @Router /api/v1/auth/chats [get]
func (h *MessageHandler) ChatList(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.messageService.ChatList(ctx, uid)
	if err != nil {
		fail(ctx, c, "获取会话列表服务内部错误", err)
		return
	}
	result.Success(c, list)
}

// DeleteChat 删除整个会话（只对自己隐藏）
// @Router /api/v1/auth/chats/{partnerId} [delete]
func (h *MessageHandler) DeleteChat(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	partner, ok := pathParam(c, "partnerId")
	if !ok {
		return
	}

	n, err := h.messageService.DeleteChat(ctx, uid, partner)
	if err != nil {
		fail(ctx, c, "删除会话服务内部错误", err)
		return
	}
	result.Success(c, &dto.DeleteChatResponse{Hidden: n})
}
