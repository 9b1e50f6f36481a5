package repository

import (
	"context"
	"time"

	"HobbyChat/model"
)

// ==================== 用户资料 Repository ====================

// ProfileBasic 可由用户自行修改的基础资料
type ProfileBasic struct {
	Name       string
	Bio        string
	Location   string
	Occupation string
	Age        int
}

// IProfileRepository 用户资料数据访问接口
type IProfileRepository interface {
	// Get 查询资料，不存在返回 ErrRecordNotFound
	Get(ctx context.Context, userID string) (*model.UserProfile, error)

	// Ensure 查询资料，不存在时创建一条空资料
	Ensure(ctx context.Context, userID string) (*model.UserProfile, error)

	// Exists 检查用户是否存在
	Exists(ctx context.Context, userID string) (bool, error)

	// BatchGet 批量查询，结果顺序不保证
	BatchGet(ctx context.Context, userIDs []string) ([]*model.UserProfile, error)

	// ListWithEmbedding 全量扫描有整体向量的用户（排除 excludeID）
	ListWithEmbedding(ctx context.Context, excludeID string) ([]*model.UserProfile, error)

	// ListMissingEmbedding 分页扫描有爱好但缺少向量的用户，按 id 升序
	ListMissingEmbedding(ctx context.Context, afterID string, limit int) ([]*model.UserProfile, error)

	// UpdateBasic 更新基础资料
	UpdateBasic(ctx context.Context, userID string, basic ProfileBasic) error

	// SaveHobbies 保存爱好；爱好为空时在同一条 UPDATE 中清空两种向量
	SaveHobbies(ctx context.Context, userID string, hobbies []string) error

	// UpdateEmbedding 写入整体向量
	UpdateEmbedding(ctx context.Context, userID string, vector []float32) error

	// UpdateHobbyEmbeddings 写入单个爱好向量列表
	UpdateHobbyEmbeddings(ctx context.Context, userID string, items []model.HobbyEmbedding) error
}

// ==================== 关注关系 Repository ====================

// IFollowRepository 关注边数据访问接口
type IFollowRepository interface {
	// ListBetween 查询两人之间任意方向的边
	ListBetween(ctx context.Context, userA, userB string) ([]*model.Follow, error)

	// CreateRequest 同一事务内创建 pending 边和 chat_request 通知
	// 唯一索引冲突返回 ErrDuplicateKey
	CreateRequest(ctx context.Context, follow *model.Follow, notification *model.Notification) error

	// Accept CAS 把 pending 边改为 accepted，删除原 chat_request 通知，写入 follow_accepted 通知
	// 返回 false 表示没有可接受的 pending 边
	Accept(ctx context.Context, followerID, followingID string, accepted *model.Notification) (bool, error)

	// DeletePending 删除 pending 边及其 chat_request 通知，返回是否删除了边
	DeletePending(ctx context.Context, followerID, followingID string) (bool, error)

	// ConnectedIDs 与该用户存在 accepted 边的对端（任一方向），走缓存
	ConnectedIDs(ctx context.Context, userID string) ([]string, error)

	// IsConnected 两人是否已连接
	IsConnected(ctx context.Context, userA, userB string) (bool, error)

	// ListFollowers 关注了 userID 且已被接受的边，按接受时间倒序
	ListFollowers(ctx context.Context, userID string) ([]*model.Follow, error)

	// ListFollowing userID 发出且已被接受的边，按接受时间倒序
	ListFollowing(ctx context.Context, userID string) ([]*model.Follow, error)

	// ListIncomingPending 发给该用户的待处理申请，新的在前
	ListIncomingPending(ctx context.Context, userID string) ([]*model.Follow, error)

	// CountIncomingPending 待处理申请数
	CountIncomingPending(ctx context.Context, userID string) (int64, error)

	// ListInvolving 该用户参与的、对端在 others 中的所有边
	ListInvolving(ctx context.Context, userID string, others []string) ([]*model.Follow, error)
}

// ==================== 拉黑 Repository ====================

// IBlockRepository 拉黑边数据访问接口
type IBlockRepository interface {
	// Block 同一事务内创建拉黑边，并删除两人之间的关注边和 chat_request 通知
	// 已拉黑返回 ErrDuplicateKey
	Block(ctx context.Context, blockerID, blockedID string) error

	// Unblock 删除拉黑边，返回是否删除
	Unblock(ctx context.Context, blockerID, blockedID string) (bool, error)

	// BlockedIDs 任一方向存在拉黑关系的对端，走缓存
	BlockedIDs(ctx context.Context, userID string) ([]string, error)

	// IsBlockedEither 两人之间任一方向是否存在拉黑
	IsBlockedEither(ctx context.Context, userA, userB string) (bool, error)

	// ListByBlocker 该用户主动拉黑的列表，新的在前
	ListByBlocker(ctx context.Context, blockerID string) ([]*model.Block, error)
}

// ==================== 通知 Repository ====================

// INotificationRepository 站内通知数据访问接口
type INotificationRepository interface {
	// Upsert 写入通知，(user, actor, type) 冲突时刷新内容并重置为未读
	Upsert(ctx context.Context, n *model.Notification) error

	// Get 查询属于 userID 的通知，不存在返回 ErrRecordNotFound
	Get(ctx context.Context, userID string, id int64) (*model.Notification, error)

	// List 通知列表，新的在前
	List(ctx context.Context, userID string, limit int) ([]*model.Notification, error)

	// CountUnread 未读数，走缓存
	CountUnread(ctx context.Context, userID string) (int64, error)

	// MarkRead 标记已读，返回是否命中
	MarkRead(ctx context.Context, userID string, id int64) (bool, error)

	// Delete 删除，返回是否命中
	Delete(ctx context.Context, userID string, id int64) (bool, error)
}

// ==================== 消息 Repository ====================

// IMessageRepository 私聊消息数据访问接口
type IMessageRepository interface {
	// Create 写入消息
	Create(ctx context.Context, m *model.Message) error

	// Get 查询消息，不存在返回 ErrRecordNotFound
	Get(ctx context.Context, id int64) (*model.Message, error)

	// BatchGet 批量查询
	BatchGet(ctx context.Context, ids []int64) ([]*model.Message, error)

	// UpdateText 发送方编辑正文；snapshot 仅在 original_text 为空时写入
	UpdateText(ctx context.Context, id int64, senderID, text, snapshot string) (bool, error)

	// HideFor 把 userID 追加到 deleted_for（已存在则跳过）
	HideFor(ctx context.Context, id int64, userID string) error

	// HideConversationFor 对 userID 隐藏与 partnerID 的整个会话
	HideConversationFor(ctx context.Context, userID, partnerID string) (int64, error)

	// Delete 物理删除
	Delete(ctx context.Context, ids ...int64) (int64, error)

	// History 会话记录（已排除 userID 隐藏的消息），按时间升序
	History(ctx context.Context, userID, partnerID string) ([]*model.Message, error)

	// MarkRead 把 senderID 发给 receiverID 的未读消息标为已读
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)

	// CountUnread 未读总数
	CountUnread(ctx context.Context, receiverID string) (int64, error)

	// CountUnreadFrom 来自某个发送方的未读数
	CountUnreadFrom(ctx context.Context, receiverID, senderID string) (int64, error)

	// UnreadBySender 按发送方分组的未读数
	UnreadBySender(ctx context.Context, receiverID string) (map[string]int64, error)

	// LatestPerPartner 每个会话对端的最后一条可见消息，新的在前
	LatestPerPartner(ctx context.Context, userID string) ([]*model.Message, error)
}

// ==================== 在线状态 Repository ====================

// IPresenceRepository 最后在线时间存储
type IPresenceRepository interface {
	// SetLastSeen 记录最后在线时间
	SetLastSeen(ctx context.Context, userID string, at time.Time) error

	// GetLastSeen 查询最后在线时间，无记录返回零值
	GetLastSeen(ctx context.Context, userID string) (time.Time, error)
}
