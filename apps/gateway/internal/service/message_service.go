package service

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/consts"
	"HobbyChat/model"
	"HobbyChat/pkg/assistant"
	"HobbyChat/pkg/ctxmeta"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/minio"
	"HobbyChat/pkg/roomid"
	"HobbyChat/pkg/util"

	"google.golang.org/grpc/codes"
)

const (
	previewRunes        = 80
	fileDeleteTimeout   = 10 * time.Second
	maxBulkDeleteLength = 500
)

// MessageDeps 消息服务依赖，Cipher/Storage/Bus/Presence/Assistant/Dashboard 都可以为 nil
type MessageDeps struct {
	Messages  repository.IMessageRepository
	Follows   repository.IFollowRepository
	Blocks    repository.IBlockRepository
	Profiles  repository.IProfileRepository
	Cipher    FieldCipher
	Storage   ObjectStorage
	Bus       Broadcaster
	Presence  PresenceReader
	Assistant Replier
	Dashboard DashboardService
}

// messageServiceImpl 私聊消息生命周期
type messageServiceImpl struct {
	MessageDeps
	rooms roomLocks
}

// NewMessageService 创建消息服务
func NewMessageService(deps MessageDeps) MessageService {
	if deps.Cipher == nil {
		deps.Cipher = plainCipher{}
	}
	if deps.Bus == nil {
		deps.Bus = noopBroadcaster{}
	}
	if deps.Presence == nil {
		deps.Presence = offlinePresence{}
	}
	if deps.Assistant == nil {
		deps.Assistant = assistant.New(nil, 0)
	}
	return &messageServiceImpl{MessageDeps: deps}
}

// Send 发送文本消息
// 业务流程：
//  1. 发给 AI 助手：无需连接关系，直接返回助手回复，不落库
//  2. 校验双方已连接，正文加密落库
//  3. 房间广播（排除发起请求的连接）+ 接收方个人频道通知
//
// 错误码映射：
//   - codes.InvalidArgument: 正文为空/类型不支持/发给自己
//   - codes.PermissionDenied: 双方未连接
func (s *messageServiceImpl) Send(ctx context.Context, senderID string, req *dto.SendMessageRequest) (*dto.MessageView, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, bizError(codes.InvalidArgument, consts.CodeMessageEmpty)
	}
	if req.MessageType != "" && req.MessageType != model.MessageTypeText {
		return nil, bizError(codes.InvalidArgument, consts.CodeMessageTypeNotSupport)
	}
	if req.ReceiverID == "" || req.ReceiverID == senderID {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}

	if assistant.IsAssistant(req.ReceiverID) {
		reply := s.Assistant.Reply(ctx, text)
		now := time.Now()
		return &dto.MessageView{
			SenderID:    assistant.UserID,
			ReceiverID:  senderID,
			Message:     reply,
			MessageType: model.MessageTypeAI,
			CreatedAt:   now.UnixMilli(),
			UpdatedAt:   now.UnixMilli(),
		}, nil
	}

	if err := s.requireConnected(ctx, senderID, req.ReceiverID); err != nil {
		return nil, err
	}

	return s.publish(ctx, &model.Message{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Type:       model.MessageTypeText,
	}, text, "")
}

// SendFile 发送附件消息，类型由 MIME 推断
// 请求被客户端中断时返回 codes.Canceled，Handler 不再写响应
func (s *messageServiceImpl) SendFile(ctx context.Context, senderID string, up *FileUpload) (*dto.MessageView, error) {
	if up == nil || up.Reader == nil || strings.TrimSpace(up.FileName) == "" {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}
	if up.ReceiverID == "" || up.ReceiverID == senderID || assistant.IsAssistant(up.ReceiverID) {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}
	if s.Storage == nil {
		return nil, bizError(codes.Unavailable, consts.CodeServiceUnavailable)
	}
	if err := s.requireConnected(ctx, senderID, up.ReceiverID); err != nil {
		return nil, err
	}

	res, err := s.Storage.Store(ctx, up.Reader, up.Size, up.ContentType, up.FileName)
	if err != nil {
		switch {
		case errors.Is(err, minio.ErrFileTooLarge):
			return nil, bizError(codes.InvalidArgument, consts.CodeBodyTooLarge)
		case ctx.Err() != nil:
			logger.Info(ctx, "客户端中断了附件上传", logger.String("file_name", up.FileName))
			return nil, bizError(codes.Canceled, consts.CodeTimeoutError)
		default:
			return nil, internalError(ctx, "附件上传失败", err)
		}
	}

	view, err := s.publish(ctx, &model.Message{
		SenderID:   senderID,
		ReceiverID: up.ReceiverID,
		Type:       MessageTypeForMIME(res.ContentType),
		FileURL:    res.URL,
		FileSize:   res.Size,
		FileMime:   res.ContentType,
		FileHandle: res.ObjectName,
	}, strings.TrimSpace(up.Caption), up.FileName)
	if err != nil {
		s.removeObject(ctx, res.ObjectName)
		return nil, err
	}
	return view, nil
}

// SendAI 向 AI 助手提问
// 接收方是 AI 助手时只返回回复；否则把回复作为 ai 类型消息发给接收方（需要连接关系）
func (s *messageServiceImpl) SendAI(ctx context.Context, senderID string, req *dto.AIMessageRequest) (*dto.AIMessageResponse, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, bizError(codes.InvalidArgument, consts.CodeMessageEmpty)
	}
	if assistant.IsAssistant(req.ReceiverID) {
		return &dto.AIMessageResponse{Reply: s.Assistant.Reply(ctx, prompt)}, nil
	}
	if req.ReceiverID == "" || req.ReceiverID == senderID {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}
	if err := s.requireConnected(ctx, senderID, req.ReceiverID); err != nil {
		return nil, err
	}

	reply := s.Assistant.Reply(ctx, prompt)
	view, err := s.publish(ctx, &model.Message{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Type:       model.MessageTypeAI,
	}, reply, "")
	if err != nil {
		return nil, err
	}
	return &dto.AIMessageResponse{Reply: reply, Message: view}, nil
}

// Edit 编辑消息，只有发送方可以编辑；首次编辑时保留原文快照
//
// 错误码映射：
//   - codes.NotFound: 消息不存在或已被自己隐藏
//   - codes.PermissionDenied: 不是发送方
//   - codes.InvalidArgument: 正文为空/非文本消息
func (s *messageServiceImpl) Edit(ctx context.Context, editorID, messageID string, req *dto.EditMessageRequest) (*dto.MessageView, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, bizError(codes.InvalidArgument, consts.CodeMessageEmpty)
	}
	m, err := s.load(ctx, editorID, messageID)
	if err != nil {
		return nil, err
	}
	if m.HiddenFor(editorID) {
		return nil, bizError(codes.NotFound, consts.CodeMessageNotFound)
	}
	if m.SenderID != editorID {
		return nil, bizError(codes.PermissionDenied, consts.CodeNotMessageSender)
	}
	if m.Type != model.MessageTypeText {
		return nil, bizError(codes.InvalidArgument, consts.CodeMessageTypeNotSupport)
	}

	cipherText, err := s.Cipher.Encrypt(text)
	if err != nil {
		return nil, internalError(ctx, "消息加密失败", err)
	}
	ok, err := s.Messages.UpdateText(ctx, m.ID, editorID, cipherText, m.Text)
	if err != nil {
		return nil, internalError(ctx, "编辑消息失败", err)
	}
	if !ok {
		return nil, bizError(codes.NotFound, consts.CodeMessageNotFound)
	}

	if m.OriginalText == "" {
		m.OriginalText = m.Text
	}
	m.Text = cipherText
	m.Edited = true
	m.UpdatedAt = time.Now()

	view := s.toView(m)
	s.Bus.BroadcastToRoom(roomid.For(m.SenderID, m.ReceiverID), dto.EventMessageEdited, &dto.MessageEditedEvent{
		MessageID: view.ID,
		Message:   view.Message,
		Edited:    true,
		EditedBy:  editorID,
	}, "")
	return view, nil
}

// Delete 删除单条消息
//   - me: 只对自己隐藏，任一参与方都可以操作，不广播
//   - everyone: 只有发送方可以操作，物理删除并广播；附件删除失败不影响结果
func (s *messageServiceImpl) Delete(ctx context.Context, actorID, messageID, mode string) error {
	m, err := s.load(ctx, actorID, messageID)
	if err != nil {
		return err
	}

	switch mode {
	case "", dto.DeleteForMe:
		if err := s.Messages.HideFor(ctx, m.ID, actorID); err != nil {
			return internalError(ctx, "隐藏消息失败", err)
		}
		return nil
	case dto.DeleteForEveryone:
		if m.SenderID != actorID {
			return bizError(codes.PermissionDenied, consts.CodeNotMessageSender)
		}
		n, err := s.hardDelete(ctx, []*model.Message{m})
		if err != nil {
			return internalError(ctx, "删除消息失败", err)
		}
		if n == 0 {
			return bizError(codes.NotFound, consts.CodeMessageNotFound)
		}
		s.Bus.BroadcastToRoom(roomid.For(m.SenderID, m.ReceiverID), dto.EventMessageDeletedEveryone, &dto.MessageDeletedEvent{
			MessageID: formatID(m.ID),
			DeletedBy: actorID,
		}, "")
		s.push(ctx, m.ReceiverID)
		return nil
	default:
		return bizError(codes.InvalidArgument, consts.CodeParamError)
	}
}

// BulkDelete 批量删除；everyone 模式静默跳过不是自己发送的消息，返回实际删除的条数
func (s *messageServiceImpl) BulkDelete(ctx context.Context, actorID string, req *dto.BulkDeleteRequest) (*dto.BulkDeleteResponse, error) {
	if len(req.MessageIDs) == 0 || len(req.MessageIDs) > maxBulkDeleteLength {
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}
	ids := make([]int64, 0, len(req.MessageIDs))
	for _, raw := range req.MessageIDs {
		id, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	msgs, err := s.Messages.BatchGet(ctx, ids)
	if err != nil {
		return nil, internalError(ctx, "批量查询消息失败", err)
	}

	resp := &dto.BulkDeleteResponse{DeletedIDs: []string{}}
	switch req.DeleteFor {
	case "", dto.DeleteForMe:
		for _, m := range msgs {
			if !m.IsParticipant(actorID) || m.HiddenFor(actorID) {
				continue
			}
			if err := s.Messages.HideFor(ctx, m.ID, actorID); err != nil {
				return nil, internalError(ctx, "隐藏消息失败", err)
			}
			resp.DeletedIDs = append(resp.DeletedIDs, formatID(m.ID))
		}
		resp.DeletedCount = len(resp.DeletedIDs)
	case dto.DeleteForEveryone:
		own := make([]*model.Message, 0, len(msgs))
		for _, m := range msgs {
			if m.SenderID == actorID {
				own = append(own, m)
			}
		}
		var n int64
		if len(own) > 0 {
			if n, err = s.hardDelete(ctx, own); err != nil {
				return nil, internalError(ctx, "批量删除消息失败", err)
			}
		}
		// 以实际删除的行数为准，并发删除时可能少于 own
		resp.DeletedCount = int(n)
		byRoom := make(map[string][]string)
		receivers := make([]string, 0, len(own))
		for _, m := range own {
			id := formatID(m.ID)
			room := roomid.For(m.SenderID, m.ReceiverID)
			if _, seen := byRoom[room]; !seen {
				receivers = append(receivers, m.ReceiverID)
			}
			byRoom[room] = append(byRoom[room], id)
			resp.DeletedIDs = append(resp.DeletedIDs, id)
		}
		for room, roomIDs := range byRoom {
			s.Bus.BroadcastToRoom(room, dto.EventMessagesBulkDeleted, &dto.MessagesBulkDeletedEvent{
				MessageIDs: roomIDs,
				DeletedBy:  actorID,
			}, "")
		}
		s.push(ctx, receivers...)
	default:
		return nil, bizError(codes.InvalidArgument, consts.CodeParamError)
	}

	logger.Info(ctx, "批量删除消息",
		logger.String("delete_for", req.DeleteFor),
		logger.Int("requested", len(ids)),
		logger.Int("deleted", resp.DeletedCount),
	)
	return resp, nil
}

// MarkRead 把 senderID 发来的消息全部标为已读，不广播
func (s *messageServiceImpl) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	if senderID == "" {
		return 0, bizError(codes.InvalidArgument, consts.CodeParamError)
	}
	n, err := s.Messages.MarkRead(ctx, senderID, receiverID)
	if err != nil {
		return 0, internalError(ctx, "标记消息已读失败", err)
	}
	if n > 0 {
		s.push(ctx, receiverID)
	}
	return n, nil
}

// History 会话记录，按时间升序，不含自己隐藏的消息；与 AI 助手的会话不落库，始终为空
func (s *messageServiceImpl) History(ctx context.Context, userID, partnerID string) ([]*dto.MessageView, error) {
	if assistant.IsAssistant(partnerID) {
		return []*dto.MessageView{}, nil
	}
	if err := s.requireConnected(ctx, userID, partnerID); err != nil {
		return nil, err
	}
	list, err := s.Messages.History(ctx, userID, partnerID)
	if err != nil {
		return nil, internalError(ctx, "查询会话记录失败", err)
	}
	out := make([]*dto.MessageView, 0, len(list))
	for _, m := range list {
		out = append(out, s.toView(m))
	}
	return out, nil
}

// UnreadCount 未读消息总数
func (s *messageServiceImpl) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.Messages.CountUnread(ctx, userID)
	if err != nil {
		return 0, internalError(ctx, "统计未读消息失败", err)
	}
	return n, nil
}

// UnreadCountFrom 来自某个会话对端的未读数
func (s *messageServiceImpl) UnreadCountFrom(ctx context.Context, userID, partnerID string) (int64, error) {
	n, err := s.Messages.CountUnreadFrom(ctx, userID, partnerID)
	if err != nil {
		return 0, internalError(ctx, "统计未读消息失败", err)
	}
	return n, nil
}

// ChatList 会话列表：每个对端的最后一条可见消息、未读数与在线状态；存在拉黑关系的对端不展示
func (s *messageServiceImpl) ChatList(ctx context.Context, userID string) ([]*dto.ChatListItem, error) {
	latest, err := s.Messages.LatestPerPartner(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "查询会话列表失败", err)
	}
	if len(latest) == 0 {
		return []*dto.ChatListItem{}, nil
	}
	unread, err := s.Messages.UnreadBySender(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "统计未读消息失败", err)
	}
	blocked, err := s.Blocks.BlockedIDs(ctx, userID)
	if err != nil {
		return nil, internalError(ctx, "查询拉黑关系失败", err)
	}
	blockedSet := toSet(blocked)

	partners := make([]string, 0, len(latest))
	for _, m := range latest {
		partners = append(partners, m.Counterpart(userID))
	}
	byID := map[string]*model.UserProfile{}
	if profiles, err := s.Profiles.BatchGet(ctx, partners); err != nil {
		logger.Warn(ctx, "批量查询会话对端资料失败", logger.ErrorField("error", err))
	} else {
		byID = profileIndex(profiles)
	}

	out := make([]*dto.ChatListItem, 0, len(latest))
	for _, m := range latest {
		partner := m.Counterpart(userID)
		if _, skip := blockedSet[partner]; skip {
			continue
		}
		out = append(out, &dto.ChatListItem{
			PartnerID:   partner,
			PartnerName: displayName(byID[partner]),
			LastMessage: s.toView(m),
			UnreadCount: unread[partner],
			Online:      s.Presence.IsOnline(partner),
		})
	}
	return out, nil
}

// DeleteChat 对自己隐藏整个会话，对方不受影响
func (s *messageServiceImpl) DeleteChat(ctx context.Context, userID, partnerID string) (int64, error) {
	if partnerID == "" || partnerID == userID {
		return 0, bizError(codes.InvalidArgument, consts.CodeParamError)
	}
	n, err := s.Messages.HideConversationFor(ctx, userID, partnerID)
	if err != nil {
		return 0, internalError(ctx, "删除会话失败", err)
	}
	return n, nil
}

// ==================== 内部方法 ====================

func (s *messageServiceImpl) requireConnected(ctx context.Context, userID, partnerID string) error {
	ok, err := s.Follows.IsConnected(ctx, userID, partnerID)
	if err != nil {
		return internalError(ctx, "查询连接关系失败", err)
	}
	if !ok {
		return bizError(codes.PermissionDenied, consts.CodeNotConnected)
	}
	return nil
}

// load 查询消息并校验 actor 是参与方。
// 已对自己隐藏的消息仍可被发送方“为所有人删除”，隐藏状态由调用方按需判断
func (s *messageServiceImpl) load(ctx context.Context, actorID, messageID string) (*model.Message, error) {
	id, err := parseID(messageID)
	if err != nil {
		return nil, err
	}
	m, err := s.Messages.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, bizError(codes.NotFound, consts.CodeMessageNotFound)
		}
		return nil, internalError(ctx, "查询消息失败", err)
	}
	if !m.IsParticipant(actorID) {
		return nil, bizError(codes.PermissionDenied, consts.CodeNotParticipant)
	}
	return m, nil
}

// publish 同一房间内串行执行落库和广播，房间内的接收顺序与落库顺序一致
func (s *messageServiceImpl) publish(ctx context.Context, m *model.Message, text, fileName string) (*dto.MessageView, error) {
	unlock := s.rooms.lock(roomid.For(m.SenderID, m.ReceiverID))
	defer unlock()

	m.ID = util.NextID()
	if err := s.persist(ctx, m, text, fileName); err != nil {
		return nil, err
	}
	return s.deliver(ctx, m), nil
}

// persist 加密正文和文件名后落库
func (s *messageServiceImpl) persist(ctx context.Context, m *model.Message, text, fileName string) error {
	var err error
	if m.Text, err = s.Cipher.Encrypt(text); err != nil {
		return internalError(ctx, "消息加密失败", err)
	}
	if m.FileName, err = s.Cipher.Encrypt(fileName); err != nil {
		return internalError(ctx, "文件名加密失败", err)
	}
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	if err := s.Messages.Create(ctx, m); err != nil {
		logger.Error(ctx, "消息落库失败", logger.ErrorField("error", err))
		return bizError(codes.Internal, consts.CodeMessageSendFail)
	}
	return nil
}

// deliver 房间广播（排除发起请求的连接）+ 接收方个人频道的轻量通知
func (s *messageServiceImpl) deliver(ctx context.Context, m *model.Message) *dto.MessageView {
	view := s.toView(m)
	room := roomid.For(m.SenderID, m.ReceiverID)

	delivered := s.Bus.BroadcastToRoom(room, dto.EventReceivePrivateMessage, view, ctxmeta.ConnID(ctx))
	s.Bus.SendToUser(m.ReceiverID, dto.EventNewMessageNotification, &dto.NewMessageNotification{
		MessageID:   view.ID,
		SenderID:    view.SenderID,
		Preview:     preview(view),
		MessageType: view.MessageType,
		CreatedAt:   view.CreatedAt,
	})
	s.push(ctx, m.ReceiverID)

	logger.Debug(ctx, "消息已投递",
		logger.String("room", room),
		logger.Int("room_connections", delivered),
	)
	return view
}

// hardDelete 尽力删除附件后物理删除记录
func (s *messageServiceImpl) hardDelete(ctx context.Context, msgs []*model.Message) (int64, error) {
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
		s.removeObject(ctx, m.FileHandle)
	}
	return s.Messages.Delete(ctx, ids...)
}

func (s *messageServiceImpl) removeObject(ctx context.Context, handle string) {
	if handle == "" || s.Storage == nil {
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fileDeleteTimeout)
	defer cancel()
	if err := s.Storage.Delete(dctx, handle); err != nil {
		logger.Warn(ctx, "删除附件失败，忽略",
			logger.String("object", handle),
			logger.ErrorField("error", err),
		)
	}
}

func (s *messageServiceImpl) push(ctx context.Context, userIDs ...string) {
	if s.Dashboard != nil {
		s.Dashboard.Push(ctx, userIDs...)
	}
}

func (s *messageServiceImpl) toView(m *model.Message) *dto.MessageView {
	v := &dto.MessageView{
		ID:          formatID(m.ID),
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		Message:     s.Cipher.Decrypt(m.Text),
		MessageType: m.Type,
		FileURL:     m.FileURL,
		FileName:    s.Cipher.Decrypt(m.FileName),
		FileSize:    m.FileSize,
		FileMime:    m.FileMime,
		Read:        m.Read,
		Edited:      m.Edited,
		CreatedAt:   unixMilli(m.CreatedAt),
		UpdatedAt:   unixMilli(m.UpdatedAt),
	}
	if m.OriginalText != "" {
		v.OriginalText = s.Cipher.Decrypt(m.OriginalText)
	}
	return v
}

func preview(v *dto.MessageView) string {
	if v.MessageType != model.MessageTypeText && v.MessageType != model.MessageTypeAI {
		if v.FileName != "" {
			return "[" + v.MessageType + "] " + v.FileName
		}
		return "[" + v.MessageType + "]"
	}
	if utf8.RuneCountInString(v.Message) <= previewRunes {
		return v.Message
	}
	r := []rune(v.Message)
	return string(r[:previewRunes]) + "..."
}

// MessageTypeForMIME 根据 MIME 推断附件消息类型
func MessageTypeForMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case strings.HasPrefix(mime, "image/"):
		return model.MessageTypeImage
	case strings.HasPrefix(mime, "video/"):
		return model.MessageTypeVideo
	case strings.HasPrefix(mime, "audio/"):
		return model.MessageTypeAudio
	case mime == "application/pdf",
		strings.HasPrefix(mime, "text/"),
		strings.Contains(mime, "msword"),
		strings.Contains(mime, "wordprocessingml"),
		strings.Contains(mime, "ms-excel"),
		strings.Contains(mime, "spreadsheetml"),
		strings.Contains(mime, "ms-powerpoint"),
		strings.Contains(mime, "presentationml"):
		return model.MessageTypeDocument
	default:
		return model.MessageTypeFile
	}
}

// plainCipher 未配置加密时的透传实现
type plainCipher struct{}

func (plainCipher) Encrypt(plain string) (string, error) { return plain, nil }
func (plainCipher) Decrypt(token string) string          { return token }

const roomLockShards = 64

// roomLocks 按房间 id 哈希分片的互斥锁，不同房间可能共用一把锁
type roomLocks struct {
	shards [roomLockShards]sync.Mutex
}

func (l *roomLocks) lock(roomID string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(roomID))
	mu := &l.shards[h.Sum32()%roomLockShards]
	mu.Lock()
	return mu.Unlock
}
