package service

import (
	"context"
	"io"
	"time"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/pkg/minio"
	"HobbyChat/pkg/vectorindex"
)

// ==================== 外部协作方 ====================

// Broadcaster 实时推送通道，由 realtime.Hub 实现
type Broadcaster interface {
	// BroadcastToRoom 推送到私聊房间内的所有连接（id 为 excludeConn 的发起连接除外），返回投递的连接数
	BroadcastToRoom(roomID, event string, data any, excludeConn string) int
	// SendToUser 推送到用户个人频道（该用户的全部连接），返回投递的连接数
	SendToUser(userID, event string, data any) int
}

// PresenceReader 在线状态查询，由 realtime.Hub 实现
type PresenceReader interface {
	IsOnline(userID string) bool
}

// ObjectStorage 附件存储，由 pkg/minio 实现
type ObjectStorage interface {
	Store(ctx context.Context, reader io.Reader, size int64, contentType, fileName string) (*minio.UploadResult, error)
	Delete(ctx context.Context, objectName string) error
}

// FieldCipher 字段加密，由 pkg/fieldcrypt 实现
type FieldCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(token string) string
}

// VectorIndex 近邻索引，由 pkg/vectorindex 实现
type VectorIndex interface {
	Upsert(ctx context.Context, userID string, values []float32, metadata map[string]string) error
	Query(ctx context.Context, values []float32, topK int, excludeID string) ([]vectorindex.Match, error)
}

// Replier AI 助手，由 pkg/assistant 实现；Reply 永远返回可展示文本
type Replier interface {
	Reply(ctx context.Context, prompt string) string
}

// ==================== 业务服务接口 ====================

// EmbeddingService 维护用户向量与爱好列表一致
type EmbeddingService interface {
	// RefreshEmbedding 生成并保存整体向量，失败时保留旧向量并返回 false
	RefreshEmbedding(ctx context.Context, userID string, hobbies []string) bool

	// RefreshPerHobbyEmbeddings 逐个爱好生成向量，返回成功的个数
	RefreshPerHobbyEmbeddings(ctx context.Context, userID string, hobbies []string) int

	// Regenerate 使用当前爱好强制刷新，爱好为空返回 FailedPrecondition
	Regenerate(ctx context.Context, userID string) (*dto.SaveHobbiesResponse, error)

	// Backfill 为有爱好但缺少向量的用户补全向量，单个失败不影响整体
	Backfill(ctx context.Context, batchSize int) (*dto.BackfillResponse, error)
}

// ProfileService 用户资料
type ProfileService interface {
	Get(ctx context.Context, userID string) (*dto.ProfileResponse, error)
	UpdateBasic(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	SaveHobbies(ctx context.Context, userID string, req *dto.SaveHobbiesRequest) (*dto.SaveHobbiesResponse, error)
	GetPublic(ctx context.Context, viewerID, targetID string) (*dto.PublicProfileResponse, error)
}

// MatchService 推荐排序
type MatchService interface {
	// Recommendations 推荐列表，任何内部错误都退化为空列表加说明
	Recommendations(ctx context.Context, userID string) *dto.RecommendationsResponse

	// MatchPercentage 两人匹配度
	MatchPercentage(ctx context.Context, userID, targetID string) (*dto.MatchPercentageResponse, error)
}

// RelationService 关注与拉黑
type RelationService interface {
	FollowStatus(ctx context.Context, userID, otherID string) (string, error)
	SendFollowRequest(ctx context.Context, requesterID, targetID string) (*dto.FollowStatusResponse, error)
	AcceptFollowRequest(ctx context.Context, userID, requesterID string) error
	RejectFollowRequest(ctx context.Context, userID, requesterID string) error
	ListConnections(ctx context.Context, userID string) ([]*dto.ConnectionItem, error)
	ListPendingRequests(ctx context.Context, userID string) ([]*dto.PendingRequestItem, error)
	// ListFollowers / ListFollowing 单方向的已接受关注边；viewerID 与 userID 不同时校验用户存在且无拉黑
	ListFollowers(ctx context.Context, viewerID, userID string) ([]*dto.FollowItem, error)
	ListFollowing(ctx context.Context, viewerID, userID string) ([]*dto.FollowItem, error)
	Block(ctx context.Context, blockerID, blockedID string) error
	Unblock(ctx context.Context, blockerID, blockedID string) error
	ListBlocked(ctx context.Context, userID string) ([]*dto.BlockedItem, error)
}

// NotificationService 站内通知
type NotificationService interface {
	List(ctx context.Context, userID string, limit int) ([]*dto.NotificationItem, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	Delete(ctx context.Context, userID, notificationID string) error
	Ignore(ctx context.Context, userID, notificationID string) error
	FollowBack(ctx context.Context, userID, notificationID string) (*dto.FollowStatusResponse, error)
}

// DashboardService 首页统计
type DashboardService interface {
	Stats(ctx context.Context, userID string) (*dto.DashboardStats, error)
	// Push 异步计算统计并推送 dashboard_update
	Push(ctx context.Context, userIDs ...string)
}

// FileUpload 附件消息输入
type FileUpload struct {
	ReceiverID  string
	FileName    string
	ContentType string
	Size        int64
	Caption     string
	Reader      io.Reader
}

// MessageService 私聊消息生命周期
type MessageService interface {
	Send(ctx context.Context, senderID string, req *dto.SendMessageRequest) (*dto.MessageView, error)
	SendFile(ctx context.Context, senderID string, up *FileUpload) (*dto.MessageView, error)
	SendAI(ctx context.Context, senderID string, req *dto.AIMessageRequest) (*dto.AIMessageResponse, error)
	Edit(ctx context.Context, editorID, messageID string, req *dto.EditMessageRequest) (*dto.MessageView, error)
	Delete(ctx context.Context, actorID, messageID, mode string) error
	BulkDelete(ctx context.Context, actorID string, req *dto.BulkDeleteRequest) (*dto.BulkDeleteResponse, error)
	MarkRead(ctx context.Context, receiverID, senderID string) (int64, error)
	History(ctx context.Context, userID, partnerID string) ([]*dto.MessageView, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	UnreadCountFrom(ctx context.Context, userID, partnerID string) (int64, error)
	ChatList(ctx context.Context, userID string) ([]*dto.ChatListItem, error)
	DeleteChat(ctx context.Context, userID, partnerID string) (int64, error)
}

// PresenceService 在线状态
type PresenceService interface {
	Presence(ctx context.Context, userID string) *dto.PresenceResponse
	// RecordOffline 记录最后在线时间（尽力而为）
	RecordOffline(ctx context.Context, userID string, at time.Time)
}
