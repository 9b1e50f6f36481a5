package dto

// ==================== 消息相关 DTO ====================

// 删除模式
const (
	DeleteForMe       = "me"
	DeleteForEveryone = "everyone"
)

// SendMessageRequest 发送文本消息请求 DTO
type SendMessageRequest struct {
	ReceiverID  string `json:"receiverId" binding:"required"`
	Message     string `json:"message" binding:"max=5000"`
	MessageType string `json:"messageType" binding:"omitempty,oneof=text"`
}

// AIMessageRequest AI 助手消息请求 DTO
type AIMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Prompt     string `json:"prompt" binding:"required,max=4000"`
}

// EditMessageRequest 编辑消息请求 DTO
type EditMessageRequest struct {
	Message string `json:"message" binding:"required,max=5000"`
}

// DeleteMessageQuery 删除消息参数
type DeleteMessageQuery struct {
	DeleteFor string `form:"deleteFor" binding:"omitempty,oneof=me everyone"`
}

// BulkDeleteRequest 批量删除请求 DTO
type BulkDeleteRequest struct {
	MessageIDs []string `json:"messageIds"`
	DeleteFor  string   `json:"deleteFor" binding:"omitempty,oneof=me everyone"`
}

// MarkReadRequest 标记已读请求 DTO
type MarkReadRequest struct {
	SenderID string `json:"senderId" binding:"required"`
}

// MessageView 消息 DTO（正文已解密）
type MessageView struct {
	ID           string `json:"id"`
	SenderID     string `json:"senderId"`
	ReceiverID   string `json:"receiverId"`
	Message      string `json:"message"`
	MessageType  string `json:"messageType"`
	FileURL      string `json:"fileUrl,omitempty"`
	FileName     string `json:"fileName,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty"`
	FileMime     string `json:"fileMime,omitempty"`
	Read         bool   `json:"read"`
	Edited       bool   `json:"edited"`
	OriginalText string `json:"originalText,omitempty"`
	CreatedAt    int64  `json:"createdAt"` // 毫秒时间戳
	UpdatedAt    int64  `json:"updatedAt"`
}

// BulkDeleteResponse 批量删除结果 DTO
type BulkDeleteResponse struct {
	DeletedCount int      `json:"deletedCount"`
	DeletedIDs   []string `json:"deletedIds"`
}

// AIMessageResponse AI 助手回复 DTO
type AIMessageResponse struct {
	Reply   string       `json:"reply"`
	Message *MessageView `json:"message,omitempty"` // 非 AI 会话时落库的消息
}

// ChatListItem 会话列表项 DTO
type ChatListItem struct {
	PartnerID   string       `json:"partnerId"`
	PartnerName string       `json:"partnerName"`
	LastMessage *MessageView `json:"lastMessage"`
	UnreadCount int64        `json:"unreadCount"`
	Online      bool         `json:"online"`
}

// MarkReadResponse 标记已读结果 DTO
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// DeleteChatResponse 删除会话结果 DTO
type DeleteChatResponse struct {
	Hidden int64 `json:"hidden"`
}
