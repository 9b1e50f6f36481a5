package model

import (
	"slices"
	"time"
)

const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeVideo    = "video"
	MessageTypeAudio    = "audio"
	MessageTypeDocument = "document"
	MessageTypeFile     = "file"
	MessageTypeAI       = "ai"
)

// Message 私聊消息。
// Text/FileName/OriginalText 落库前加密；OriginalText 仅在第一次编辑时写入。
// DeletedFor 记录“仅自己删除”的用户，不影响对方视图；“为所有人删除”直接物理删除。
type Message struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement:false;comment:snowflake id"`
	SenderID     string    `gorm:"column:sender_id;type:char(36);not null;index:idx_sender_receiver_created;comment:发送方uuid"`
	ReceiverID   string    `gorm:"column:receiver_id;type:char(36);not null;index:idx_sender_receiver_created;index:idx_receiver_read;comment:接收方uuid"`
	Text         string    `gorm:"column:text;type:text;comment:消息正文（密文）"`
	Type         string    `gorm:"column:type;type:varchar(16);not null;default:'text';comment:消息类型"`
	FileURL      string    `gorm:"column:file_url;type:varchar(1024);not null;default:'';comment:附件地址"`
	FileName     string    `gorm:"column:file_name;type:varchar(1024);not null;default:'';comment:附件名（密文）"`
	FileSize     int64     `gorm:"column:file_size;not null;default:0;comment:附件大小"`
	FileMime     string    `gorm:"column:file_mime;type:varchar(128);not null;default:'';comment:附件MIME"`
	FileHandle   string    `gorm:"column:file_handle;type:varchar(512);not null;default:'';comment:对象存储删除句柄"`
	Read         bool      `gorm:"column:is_read;not null;default:false;index:idx_receiver_read;comment:是否已读"`
	Edited       bool      `gorm:"column:edited;not null;default:false;comment:是否编辑过"`
	OriginalText string    `gorm:"column:original_text;type:text;comment:首次编辑前的正文（密文）"`
	DeletedFor   []string  `gorm:"column:deleted_for;type:json;serializer:json;comment:仅自己删除的用户列表"`
	CreatedAt    time.Time `gorm:"column:created_at;type:datetime(3);autoCreateTime;index:idx_sender_receiver_created"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Message) TableName() string { return "message" }

// IsParticipant 是否为会话双方之一
func (m *Message) IsParticipant(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// HiddenFor 是否已被该用户“仅自己删除”
func (m *Message) HiddenFor(userID string) bool {
	return slices.Contains(m.DeletedFor, userID)
}

// Counterpart 返回会话另一方
func (m *Message) Counterpart(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// AllModels 自动建表时使用
func AllModels() []any {
	return []any{&UserProfile{}, &Follow{}, &Block{}, &Notification{}, &Message{}}
}
