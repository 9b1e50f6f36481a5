package realtime

import (
	"context"
	"strconv"
	"strings"
	"time"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/service"
	"HobbyChat/apps/gateway/internal/utils"
	"HobbyChat/consts"
	"HobbyChat/pkg/assistant"
	"HobbyChat/pkg/ctxmeta"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/metrics"
	"HobbyChat/pkg/roomid"

	"github.com/goccy/go-json"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultEventTimeout = 10 * time.Second

var (
	errBadPayload       = status.Error(codes.InvalidArgument, strconv.Itoa(consts.CodeParamError))
	errIdentityMismatch = status.Error(codes.PermissionDenied, strconv.Itoa(consts.CodePermissionDeny))
)

type eventHandler func(ctx context.Context, c *Client, data json.RawMessage) error

// Coordinator 连接状态机与事件路由：
// Connected(匿名) -> Identified(user_online) -> RoomMember*(join_private_room) -> Disconnected
//
// 匿名阶段只接受 user_online 和 heartbeat。消息持久化与投递交给 MessageService，
// REST 与 socket 两个入口走同一条投递路径。
type Coordinator struct {
	hub      *Hub
	messages service.MessageService
	presence service.PresenceService
	timeout  time.Duration
	handlers map[string]eventHandler
}

// NewCoordinator 创建事件协调器
func NewCoordinator(hub *Hub, messages service.MessageService, presence service.PresenceService) *Coordinator {
	co := &Coordinator{
		hub:      hub,
		messages: messages,
		presence: presence,
		timeout:  defaultEventTimeout,
	}
	co.handlers = map[string]eventHandler{
		dto.EventUserOnline:         co.onUserOnline,
		dto.EventJoinPrivateRoom:    co.onJoinRoom,
		dto.EventLeavePrivateRoom:   co.onLeaveRoom,
		dto.EventSendPrivateMessage: co.onSendMessage,
		dto.EventTypingStart:        co.onTyping(true),
		dto.EventTypingStop:         co.onTyping(false),
		dto.EventMessageRead:        co.onMessageRead,
		dto.EventGetOnlineUsers:     co.onGetOnlineUsers,
		dto.EventHeartbeat:          co.onHeartbeat,
	}
	return co
}

// HandleFrame 处理一条上行帧
func (co *Coordinator) HandleFrame(ctx context.Context, c *Client, raw []byte) {
	if !c.Allow() {
		metrics.WSEventsTotal.WithLabelValues("any", "rejected").Inc()
		co.sendError(c, consts.CodeTooManyRequests, "too many events")
		return
	}

	var frame dto.InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil || strings.TrimSpace(frame.Type) == "" {
		metrics.WSEventsTotal.WithLabelValues("invalid", "rejected").Inc()
		co.sendError(c, consts.CodeBodyError, "invalid frame format")
		return
	}
	event := strings.TrimSpace(frame.Type)

	handler, ok := co.handlers[event]
	if !ok {
		metrics.WSEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		co.sendError(c, consts.CodeParamError, "unsupported event type")
		return
	}
	if !c.Identified() && event != dto.EventUserOnline && event != dto.EventHeartbeat {
		metrics.WSEventsTotal.WithLabelValues(event, "rejected").Inc()
		co.sendError(c, consts.CodeUnauthorized, "user_online required")
		return
	}

	ectx, cancel := context.WithTimeout(ctxmeta.WithConnID(ctx, c.ID()), co.timeout)
	defer cancel()
	if err := handler(ectx, c, frame.Data); err != nil {
		metrics.WSEventsTotal.WithLabelValues(event, "error").Inc()
		co.replyError(ctx, c, event, err)
		return
	}
	metrics.WSEventsTotal.WithLabelValues(event, "ok").Inc()
}

// Disconnect 连接断开：注销连接；用户因此离线时记录最后在线时间并广播离线状态
func (co *Coordinator) Disconnect(ctx context.Context, c *Client) {
	if !co.hub.Unregister(c) {
		return
	}
	now := time.Now()
	if co.presence != nil {
		co.presence.RecordOffline(ctx, c.UserID(), now)
	}
	co.hub.BroadcastAll(dto.EventUserStatus, &dto.UserStatusEvent{
		UserID:   c.UserID(),
		Status:   dto.StatusOffline,
		LastSeen: now.UnixMilli(),
	}, nil)
	logger.Info(ctx, "用户离线", logger.String("user_uuid", c.UserID()))
}

// Shutdown 停机：关闭全部连接，并为停机前在线的用户记录最后在线时间
func (co *Coordinator) Shutdown(ctx context.Context) {
	users := co.hub.Shutdown()
	if co.presence == nil || len(users) == 0 {
		return
	}
	now := time.Now()
	for i, id := range users {
		if ctx.Err() != nil {
			logger.Warn(ctx, "停机超时，部分用户未记录最后在线时间", logger.Int("remaining", len(users)-i))
			return
		}
		co.presence.RecordOffline(ctx, id, now)
	}
	logger.Info(ctx, "停机前在线用户已记录离线", logger.Int("count", len(users)))
}

func (co *Coordinator) onUserOnline(ctx context.Context, c *Client, data json.RawMessage) error {
	var p dto.UserOnlinePayload
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &p); err != nil {
			return errBadPayload
		}
	}
	if p.UserID != "" && p.UserID != c.UserID() {
		return errIdentityMismatch
	}

	c.markIdentified()
	if co.hub.MarkOnline(c) {
		co.hub.BroadcastAll(dto.EventUserStatus, &dto.UserStatusEvent{
			UserID: c.UserID(),
			Status: dto.StatusOnline,
		}, c)
		logger.Info(ctx, "用户上线", logger.String("user_uuid", c.UserID()))
	}
	co.hub.Send(c, dto.EventOnlineUsers, &dto.OnlineUsersEvent{Users: co.hub.ListOnline()})
	return nil
}

func (co *Coordinator) onJoinRoom(_ context.Context, c *Client, data json.RawMessage) error {
	other, err := decodeOther(c, data)
	if err != nil {
		return err
	}
	co.hub.Join(roomid.For(c.UserID(), other), c)
	return nil
}

func (co *Coordinator) onLeaveRoom(_ context.Context, c *Client, data json.RawMessage) error {
	other, err := decodeOther(c, data)
	if err != nil {
		return err
	}
	co.hub.Leave(roomid.For(c.UserID(), other), c)
	return nil
}

func (co *Coordinator) onSendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var p dto.SendPrivateMessagePayload
	if err := decode(data, &p); err != nil {
		return err
	}
	view, err := co.messages.Send(ctx, c.UserID(), &dto.SendMessageRequest{
		ReceiverID:  p.ReceiverID,
		Message:     p.Message,
		MessageType: p.MessageType,
	})
	if err != nil {
		return err
	}
	// 助手回复不落库也不进房间，直接回给发送方
	if assistant.IsAssistant(view.SenderID) {
		co.hub.Send(c, dto.EventReceivePrivateMessage, view)
	}
	return nil
}

func (co *Coordinator) onTyping(typing bool) eventHandler {
	return func(_ context.Context, c *Client, data json.RawMessage) error {
		var p dto.TypingPayload
		if err := decode(data, &p); err != nil {
			return err
		}
		if p.ReceiverID == "" || p.ReceiverID == c.UserID() {
			return errBadPayload
		}
		co.hub.BroadcastToRoom(roomid.For(c.UserID(), p.ReceiverID), dto.EventUserTyping, &dto.UserTypingEvent{
			UserID:   c.UserID(),
			IsTyping: typing,
		}, c.ID())
		return nil
	}
}

// onMessageRead 只广播回执，已读状态由 REST 接口落库
func (co *Coordinator) onMessageRead(_ context.Context, c *Client, data json.RawMessage) error {
	var p dto.MessageReadPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.SenderID == "" || p.SenderID == c.UserID() {
		return errBadPayload
	}
	co.hub.BroadcastToRoom(roomid.For(c.UserID(), p.SenderID), dto.EventMessageReadReceipt, &dto.MessageReadReceiptEvent{
		ReaderID:  c.UserID(),
		SenderID:  p.SenderID,
		MessageID: p.MessageID,
		ReadAt:    time.Now().UnixMilli(),
	}, c.ID())
	return nil
}

func (co *Coordinator) onGetOnlineUsers(_ context.Context, c *Client, _ json.RawMessage) error {
	co.hub.Send(c, dto.EventOnlineUsers, &dto.OnlineUsersEvent{Users: co.hub.ListOnline()})
	return nil
}

func (co *Coordinator) onHeartbeat(_ context.Context, c *Client, _ json.RawMessage) error {
	co.hub.Send(c, dto.EventHeartbeatAck, nil)
	return nil
}

// replyError 业务错误原样回给客户端，服务端错误只返回通用错误码
func (co *Coordinator) replyError(ctx context.Context, c *Client, event string, err error) {
	code := utils.ExtractErrorCode(err)
	if !consts.IsNonServerError(code) {
		logger.Error(ctx, "处理 WebSocket 事件失败",
			logger.String("event", event),
			logger.ErrorField("error", err),
		)
		code = consts.CodeInternalError
	}
	co.sendError(c, code, consts.GetMessage(code))
}

func (co *Coordinator) sendError(c *Client, code int32, message string) {
	co.hub.Send(c, dto.EventError, &dto.ErrorEvent{Code: code, Message: message})
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errBadPayload
	}
	return nil
}

func decodeOther(c *Client, data json.RawMessage) (string, error) {
	var p dto.RoomPayload
	if err := decode(data, &p); err != nil {
		return "", err
	}
	other := strings.TrimSpace(p.OtherUserID)
	if other == "" || other == c.UserID() {
		return "", errBadPayload
	}
	return other, nil
}
