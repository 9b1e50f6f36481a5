package dto

// ==================== 关注/拉黑相关 DTO ====================

// FollowStatusResponse 关注状态 DTO
type FollowStatusResponse struct {
	Status string `json:"status"` // none/pending/accepted/received
}

// UserBrief 用户简要信息 DTO
type UserBrief struct {
	UserID  string   `json:"userId"`
	Name    string   `json:"name"`
	Hobbies []string `json:"hobbies"`
}

// ConnectionItem 已连接用户 DTO
type ConnectionItem struct {
	UserBrief
	Online bool `json:"online"`
}

// FollowItem 关注者/关注中列表 DTO
type FollowItem struct {
	UserBrief
	Online bool  `json:"online"`
	Since  int64 `json:"since"` // 毫秒时间戳，边被接受的时间
}

// PendingRequestItem 收到的关注申请 DTO
type PendingRequestItem struct {
	UserBrief
	RequestedAt int64 `json:"requestedAt"` // 毫秒时间戳
}

// BlockedItem 拉黑列表 DTO
type BlockedItem struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	BlockedAt int64  `json:"blockedAt"` // 毫秒时间戳
}

// DashboardStats 首页统计 DTO，同时作为 dashboard_update 推送内容
type DashboardStats struct {
	PendingRequests     int64 `json:"pendingRequests"`
	UnreadNotifications int64 `json:"unreadNotifications"`
	Connections         int64 `json:"connections"`
	UnreadMessages      int64 `json:"unreadMessages"`
}

// PresenceResponse 在线状态 DTO
type PresenceResponse struct {
	UserID   string `json:"userId"`
	Online   bool   `json:"online"`
	LastSeen int64  `json:"lastSeen"` // 毫秒时间戳，0 表示未知
}
