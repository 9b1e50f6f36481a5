package model

import "time"

const (
	NotificationTypeChatRequest    = "chat_request"
	NotificationTypeFollowAccepted = "follow_accepted"
	NotificationTypeSystem         = "system"
	NotificationTypeMatch          = "match"
)

// Notification 站内通知。chat_request 类型与 pending 的 Follow 一一对应。
type Notification struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false;comment:snowflake id"`
	UserID    string    `gorm:"column:user_id;type:char(36);not null;uniqueIndex:uidx_user_actor_type;index:idx_user_created;comment:接收方uuid"`
	ActorID   string    `gorm:"column:actor_id;type:char(36);not null;default:'';uniqueIndex:uidx_user_actor_type;comment:触发方uuid"`
	Type      string    `gorm:"column:type;type:varchar(32);not null;uniqueIndex:uidx_user_actor_type;comment:通知类型"`
	Message   string    `gorm:"column:message;type:varchar(512);not null;default:'';comment:展示文案"`
	Read      bool      `gorm:"column:is_read;not null;default:false;comment:是否已读"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:idx_user_created"`
}

func (Notification) TableName() string { return "notification" }
