package dto

// ==================== 通知相关 DTO ====================

// NotificationItem 通知 DTO
type NotificationItem struct {
	ID        string `json:"id"` // snowflake id 以字符串下发，避免前端精度丢失
	Type      string `json:"type"`
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt int64  `json:"createdAt"` // 毫秒时间戳
}

// CountResponse 计数 DTO
type CountResponse struct {
	Count int64 `json:"count"`
}
