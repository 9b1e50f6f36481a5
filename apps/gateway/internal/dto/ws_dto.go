package dto

import "github.com/goccy/go-json"

// ==================== WebSocket 事件 ====================

// 客户端 -> 服务端
const (
	EventUserOnline         = "user_online"
	EventJoinPrivateRoom    = "join_private_room"
	EventLeavePrivateRoom   = "leave_private_room"
	EventSendPrivateMessage = "send_private_message"
	EventTypingStart        = "typing_start"
	EventTypingStop         = "typing_stop"
	EventMessageRead        = "message_read"
	EventGetOnlineUsers     = "get_online_users"
	EventHeartbeat          = "heartbeat"
)

// 服务端 -> 客户端
const (
	EventReceivePrivateMessage  = "receive_private_message"
	EventNewMessageNotification = "new_message_notification"
	EventUserTyping             = "user_typing"
	EventMessageReadReceipt     = "message_read_receipt"
	EventUserStatus             = "user_status"
	EventOnlineUsers            = "online_users"
	EventMessageEdited          = "message_edited"
	EventMessageDeletedEveryone = "message_deleted_everyone"
	EventMessagesBulkDeleted    = "messages_bulk_deleted"
	EventDashboardUpdate        = "dashboard_update"
	EventNewNotification        = "new_notification"
	EventHeartbeatAck           = "heartbeat_ack"
	EventError                  = "error"
)

// 在线状态
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// InboundFrame 客户端帧
type InboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OutboundFrame 服务端帧
type OutboundFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// UserOnlinePayload user_online
type UserOnlinePayload struct {
	UserID string `json:"userId"`
}

// RoomPayload join_private_room / leave_private_room
type RoomPayload struct {
	OtherUserID string `json:"otherUserId"`
}

// SendPrivateMessagePayload send_private_message
type SendPrivateMessagePayload struct {
	ReceiverID  string `json:"receiverId"`
	Message     string `json:"message"`
	MessageType string `json:"messageType"`
}

// TypingPayload typing_start / typing_stop
type TypingPayload struct {
	ReceiverID string `json:"receiverId"`
}

// MessageReadPayload message_read
type MessageReadPayload struct {
	SenderID  string `json:"senderId"`
	MessageID string `json:"messageId"`
}

// UserTypingEvent user_typing
type UserTypingEvent struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// UserStatusEvent user_status
type UserStatusEvent struct {
	UserID   string `json:"userId"`
	Status   string `json:"status"`
	LastSeen int64  `json:"lastSeen,omitempty"` // 毫秒时间戳，仅离线时携带
}

// OnlineUsersEvent online_users
type OnlineUsersEvent struct {
	Users []string `json:"users"`
}

// MessageReadReceiptEvent message_read_receipt
type MessageReadReceiptEvent struct {
	ReaderID  string `json:"readerId"`
	SenderID  string `json:"senderId"`
	MessageID string `json:"messageId"`
	ReadAt    int64  `json:"readAt"`
}

// NewMessageNotification new_message_notification
type NewMessageNotification struct {
	MessageID   string `json:"messageId"`
	SenderID    string `json:"senderId"`
	Preview     string `json:"preview"`
	MessageType string `json:"messageType"`
	CreatedAt   int64  `json:"createdAt"`
}

// NewNotificationEvent new_notification
type NewNotificationEvent struct {
	Type          string   `json:"type"`
	Message       string   `json:"message"`
	UserID        string   `json:"userId"` // 触发方
	SharedHobbies []string `json:"sharedHobbies,omitempty"`
}

// MessageEditedEvent message_edited
type MessageEditedEvent struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
	Edited    bool   `json:"edited"`
	EditedBy  string `json:"editedBy"`
}

// MessageDeletedEvent message_deleted_everyone
type MessageDeletedEvent struct {
	MessageID string `json:"messageId"`
	DeletedBy string `json:"deletedBy"`
}

// MessagesBulkDeletedEvent messages_bulk_deleted
type MessagesBulkDeletedEvent struct {
	MessageIDs []string `json:"messageIds"`
	DeletedBy  string   `json:"deletedBy"`
}

// ErrorEvent error
type ErrorEvent struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}
