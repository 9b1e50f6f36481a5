package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/config"
	"HobbyChat/model"
	"HobbyChat/pkg/assistant"
	"HobbyChat/pkg/ctxmeta"
	"HobbyChat/pkg/minio"
	"HobbyChat/pkg/roomid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func sendText(t *testing.T, env *testEnv, from, to, text string) *dto.MessageView {
	t.Helper()
	view, err := env.messages.Send(context.Background(), from, &dto.SendMessageRequest{ReceiverID: to, Message: text})
	require.NoError(t, err)
	return view
}

func storedMessage(t *testing.T, env *testEnv, id string) *model.Message {
	t.Helper()
	n, err := parseID(id)
	require.NoError(t, err)
	m, err := memMessages{env.store}.Get(context.Background(), n)
	require.NoError(t, err)
	return m
}

func TestMessageService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("requires_connection", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.messages.Send(ctx, "alice", &dto.SendMessageRequest{ReceiverID: "bob", Message: "hi"})
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
		assert.Zero(t, env.store.messageCount())
	})

	t.Run("validates_input", func(t *testing.T) {
		env := newTestEnv()
		env.connect("alice", "bob")

		_, err := env.messages.Send(ctx, "alice", &dto.SendMessageRequest{ReceiverID: "bob", Message: "   "})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		_, err = env.messages.Send(ctx, "alice", &dto.SendMessageRequest{ReceiverID: "bob", Message: "x", MessageType: "image"})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		_, err = env.messages.Send(ctx, "alice", &dto.SendMessageRequest{ReceiverID: "alice", Message: "x"})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("encrypts_and_delivers", func(t *testing.T) {
		env := newTestEnv()
		env.connect("alice", "bob")

		view := sendText(t, env, "alice", "bob", "  hello bob ")
		assert.Equal(t, "hello bob", view.Message)
		assert.Equal(t, model.MessageTypeText, view.MessageType)
		assert.Equal(t, "enc:hello bob", storedMessage(t, env, view.ID).Text)

		room := env.bus.roomEvents(dto.EventReceivePrivateMessage)
		require.Len(t, room, 1)
		assert.Equal(t, roomid.For("alice", "bob"), room[0].Target)
		assert.Empty(t, room[0].Exclude, "REST sends reach every connection in the room")

		notes := env.bus.userEvents(dto.EventNewMessageNotification)
		require.Len(t, notes, 1)
		assert.Equal(t, "bob", notes[0].Target)
		assert.Equal(t, "hello bob", notes[0].Data.(*dto.NewMessageNotification).Preview)
		assert.True(t, env.dashboard.pushedTo("bob"))
	})

	t.Run("socket_send_excludes_origin_connection_only", func(t *testing.T) {
		env := newTestEnv()
		env.connect("alice", "bob")

		_, err := env.messages.Send(ctxmeta.WithConnID(ctx, "conn-phone"), "alice", &dto.SendMessageRequest{ReceiverID: "bob", Message: "hi"})
		require.NoError(t, err)
		room := env.bus.roomEvents(dto.EventReceivePrivateMessage)
		require.Len(t, room, 1)
		assert.Equal(t, "conn-phone", room[0].Exclude)
	})

	t.Run("assistant_reply_is_not_persisted", func(t *testing.T) {
		env := newTestEnv()
		view, err := env.messages.Send(ctx, "alice", &dto.SendMessageRequest{ReceiverID: assistant.UserID, Message: "hello?"})
		require.NoError(t, err)
		assert.Equal(t, "ok", view.Message)
		assert.Equal(t, assistant.UserID, view.SenderID)
		assert.Equal(t, model.MessageTypeAI, view.MessageType)
		assert.Zero(t, env.store.messageCount())

		history, err := env.messages.History(ctx, "alice", assistant.UserID)
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestMessageService_SendAI(t *testing.T) {
	ctx := context.Background()

	t.Run("to_assistant", func(t *testing.T) {
		env := newTestEnv()
		resp, err := env.messages.SendAI(ctx, "alice", &dto.AIMessageRequest{ReceiverID: assistant.UserID, Prompt: "tell a joke"})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Reply)
		assert.Nil(t, resp.Message)
		assert.Zero(t, env.store.messageCount())
	})

	t.Run("shared_with_connection", func(t *testing.T) {
		env := newTestEnv()
		env.connect("alice", "bob")
		resp, err := env.messages.SendAI(ctx, "alice", &dto.AIMessageRequest{ReceiverID: "bob", Prompt: "suggest a board game"})
		require.NoError(t, err)
		require.NotNil(t, resp.Message)
		assert.Equal(t, model.MessageTypeAI, resp.Message.MessageType)
		assert.Equal(t, 1, env.store.messageCount())
	})
}

func TestMessageService_SendFile(t *testing.T) {
	ctx := context.Background()

	upload := func(mime string) *FileUpload {
		return &FileUpload{ReceiverID: "bob", FileName: "cat.png", ContentType: mime, Size: 3, Reader: strings.NewReader("png")}
	}

	t.Run("stores_and_maps_type", func(t *testing.T) {
		env := newTestEnv()
		env.connect("alice", "bob")
		env.storage.storeFn = func(_ context.Context, r io.Reader, size int64, contentType, fileName string) (*minio.UploadResult, error) {
			body, _ := io.ReadAll(r)
			assert.Equal(t, "png", string(body))
			assert.Equal(t, "cat.png", fileName)
			return &minio.UploadResult{ObjectName: "2026/10/obj.png", URL: "http://files/obj.png", Size: size, ContentType: contentType}, nil
		}

		view, err := env.messages.SendFile(ctx, "alice", upload("image/png"))
		require.NoError(t, err)
		assert.Equal(t, model.MessageTypeImage, view.MessageType)
		assert.Equal(t, "cat.png", view.FileName)
		assert.Equal(t, "http://files/obj.png", view.FileURL)
		assert.Equal(t, "enc:cat.png", storedMessage(t, env, view.ID).FileName)

		t.Run("delete_for_everyone_ignores_storage_error", func(t *testing.T) {
			env.storage.deleteFn = func(context.Context, string) error { return errors.New("bucket gone") }
			require.NoError(t, env.messages.Delete(ctx, "alice", view.ID, dto.DeleteForEveryone))
			assert.Equal(t, []string{"2026/10/obj.png"}, env.storage.deleted)
			assert.Zero(t, env.store.messageCount())
		})
	})

	t.Run("too_large", func(t *testing.T) {
		env := newTestEnv()
		env.connect("alice", "bob")
		env.storage.storeFn = func(context.Context, io.Reader, int64, string, string) (*minio.UploadResult, error) {
			return nil, minio.ErrFileTooLarge
		}
		_, err := env.messages.SendFile(ctx, "alice", upload("image/png"))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("client_abort", func(t *testing.T) {
		env := newTestEnv()
		env.connect("alice", "bob")
		cctx, cancel := context.WithCancel(ctx)
		env.storage.storeFn = func(ctx context.Context, _ io.Reader, _ int64, _, _ string) (*minio.UploadResult, error) {
			cancel()
			return nil, ctx.Err()
		}
		_, err := env.messages.SendFile(cctx, "alice", upload("image/png"))
		assert.Equal(t, codes.Canceled, status.Code(err))
		assert.Zero(t, env.store.messageCount())
	})

	t.Run("not_connected_skips_upload", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.messages.SendFile(ctx, "alice", upload("image/png"))
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})
}

func TestMessageTypeForMIME(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":               model.MessageTypeImage,
		"IMAGE/PNG":                model.MessageTypeImage,
		"video/mp4":                model.MessageTypeVideo,
		"audio/ogg; codecs=opus":   model.MessageTypeAudio,
		"application/pdf":          model.MessageTypeDocument,
		"text/plain; charset=utf8": model.MessageTypeDocument,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": model.MessageTypeDocument,
		"application/zip": model.MessageTypeFile,
		"":                model.MessageTypeFile,
	}
	for mime, want := range tests {
		assert.Equal(t, want, MessageTypeForMIME(mime), mime)
	}
}

func TestMessageService_Edit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.connect("alice", "bob")
	msg := sendText(t, env, "alice", "bob", "first")

	t.Run("keeps_first_snapshot", func(t *testing.T) {
		v, err := env.messages.Edit(ctx, "alice", msg.ID, &dto.EditMessageRequest{Message: "second"})
		require.NoError(t, err)
		assert.Equal(t, "second", v.Message)
		assert.Equal(t, "first", v.OriginalText)
		assert.True(t, v.Edited)

		v, err = env.messages.Edit(ctx, "alice", msg.ID, &dto.EditMessageRequest{Message: "third"})
		require.NoError(t, err)
		assert.Equal(t, "third", v.Message)
		assert.Equal(t, "first", v.OriginalText)

		stored := storedMessage(t, env, msg.ID)
		assert.Equal(t, "enc:third", stored.Text)
		assert.Equal(t, "enc:first", stored.OriginalText)
		assert.Len(t, env.bus.roomEvents(dto.EventMessageEdited), 2)
	})

	t.Run("only_sender", func(t *testing.T) {
		_, err := env.messages.Edit(ctx, "bob", msg.ID, &dto.EditMessageRequest{Message: "hacked"})
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("outsider", func(t *testing.T) {
		_, err := env.messages.Edit(ctx, "carol", msg.ID, &dto.EditMessageRequest{Message: "x"})
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("hidden_for_editor", func(t *testing.T) {
		require.NoError(t, env.messages.Delete(ctx, "alice", msg.ID, dto.DeleteForMe))
		_, err := env.messages.Edit(ctx, "alice", msg.ID, &dto.EditMessageRequest{Message: "x"})
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("unknown_message", func(t *testing.T) {
		_, err := env.messages.Edit(ctx, "alice", "12345", &dto.EditMessageRequest{Message: "x"})
		assert.Equal(t, codes.NotFound, status.Code(err))
	})
}

func TestMessageService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("for_me_is_private", func(t *testing.T) {
		env := newTestEnv()
		env.connect("alice", "bob")
		msg := sendText(t, env, "alice", "bob", "hi")

		require.NoError(t, env.messages.Delete(ctx, "bob", msg.ID, dto.DeleteForMe))

		bobView, err := env.messages.History(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Empty(t, bobView)
		aliceView, err := env.messages.History(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Len(t, aliceView, 1)
		assert.Empty(t, env.bus.roomEvents(dto.EventMessageDeletedEveryone))
	})

	t.Run("for_everyone_needs_sender", func(t *testing.T) {
		env := newTestEnv()
		env.connect("alice", "bob")
		msg := sendText(t, env, "alice", "bob", "hi")

		err := env.messages.Delete(ctx, "bob", msg.ID, dto.DeleteForEveryone)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
		assert.Equal(t, 1, env.store.messageCount())

		require.NoError(t, env.messages.Delete(ctx, "alice", msg.ID, dto.DeleteForEveryone))
		assert.Zero(t, env.store.messageCount())
		events := env.bus.roomEvents(dto.EventMessageDeletedEveryone)
		require.Len(t, events, 1)
		assert.Equal(t, msg.ID, events[0].Data.(*dto.MessageDeletedEvent).MessageID)
	})

	t.Run("unknown_mode", func(t *testing.T) {
		env := newTestEnv()
		env.connect("alice", "bob")
		msg := sendText(t, env, "alice", "bob", "hi")
		err := env.messages.Delete(ctx, "alice", msg.ID, "nobody")
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestMessageService_BulkDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.connect("alice", "bob")
	m1 := sendText(t, env, "alice", "bob", "one")
	m2 := sendText(t, env, "alice", "bob", "two")
	m3 := sendText(t, env, "bob", "alice", "three")

	t.Run("everyone_skips_foreign", func(t *testing.T) {
		resp, err := env.messages.BulkDelete(ctx, "alice", &dto.BulkDeleteRequest{
			MessageIDs: []string{m1.ID, m2.ID, m3.ID},
			DeleteFor:  dto.DeleteForEveryone,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.DeletedCount)
		assert.ElementsMatch(t, []string{m1.ID, m2.ID}, resp.DeletedIDs)

		events := env.bus.roomEvents(dto.EventMessagesBulkDeleted)
		require.Len(t, events, 1)
		assert.Equal(t, roomid.For("alice", "bob"), events[0].Target)
		assert.Equal(t, 1, env.store.messageCount())
	})

	t.Run("for_me", func(t *testing.T) {
		resp, err := env.messages.BulkDelete(ctx, "alice", &dto.BulkDeleteRequest{MessageIDs: []string{m3.ID}})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.DeletedCount)

		history, err := env.messages.History(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("everyone_reports_rows_actually_deleted", func(t *testing.T) {
		env := newTestEnv()
		env.connect("alice", "bob")
		a := sendText(t, env, "alice", "bob", "a")
		b := sendText(t, env, "alice", "bob", "b")
		raced, err := parseID(b.ID)
		require.NoError(t, err)

		svc := NewMessageService(MessageDeps{
			Messages: racedDeleteMessages{memMessages: memMessages{env.store}, raced: raced},
			Follows:  memFollows{env.store},
			Profiles: env.store,
			Bus:      env.bus,
		})
		resp, err := svc.BulkDelete(ctx, "alice", &dto.BulkDeleteRequest{
			MessageIDs: []string{a.ID, b.ID},
			DeleteFor:  dto.DeleteForEveryone,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.DeletedCount)
		assert.Zero(t, env.store.messageCount())
	})

	t.Run("rejects_bad_ids", func(t *testing.T) {
		_, err := env.messages.BulkDelete(ctx, "alice", &dto.BulkDeleteRequest{MessageIDs: []string{"abc"}})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		_, err = env.messages.BulkDelete(ctx, "alice", &dto.BulkDeleteRequest{})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

// racedDeleteMessages 模拟另一个请求抢先删除了其中一条
type racedDeleteMessages struct {
	memMessages
	raced int64
}

func (r racedDeleteMessages) Delete(ctx context.Context, ids ...int64) (int64, error) {
	if _, err := r.memMessages.Delete(ctx, r.raced); err != nil {
		return 0, err
	}
	return r.memMessages.Delete(ctx, ids...)
}

// orderedMessages 记录落库顺序
type orderedMessages struct {
	memMessages
	mu      *sync.Mutex
	created *[]int64
}

func (o orderedMessages) Create(ctx context.Context, m *model.Message) error {
	o.mu.Lock()
	*o.created = append(*o.created, m.ID)
	o.mu.Unlock()
	return o.memMessages.Create(ctx, m)
}

func TestMessageService_RoomOrderMatchesStoreOrder(t *testing.T) {
	env := newTestEnv()
	env.connect("alice", "bob")

	var mu sync.Mutex
	var created []int64
	svc := NewMessageService(MessageDeps{
		Messages: orderedMessages{memMessages: memMessages{env.store}, mu: &mu, created: &created},
		Follows:  memFollows{env.store},
		Profiles: env.store,
		Bus:      env.bus,
	})

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		from, to := "alice", "bob"
		if i%2 == 1 {
			from, to = to, from
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Send(context.Background(), from, &dto.SendMessageRequest{ReceiverID: to, Message: "m"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	events := env.bus.roomEvents(dto.EventReceivePrivateMessage)
	require.Len(t, events, 40)
	require.Len(t, created, 40)
	for i, e := range events {
		assert.Equal(t, formatID(created[i]), e.Data.(*dto.MessageView).ID)
	}
}

func TestMessageService_ChatListAndUnread(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.store.addUser("alice", "Alice")
	env.store.addUser("bob", "Bob")
	env.store.addUser("carol", "Carol")
	env.connect("alice", "bob")
	env.connect("carol", "alice")
	env.presence.online["bob"] = true

	sendText(t, env, "bob", "alice", "hey")
	sendText(t, env, "bob", "alice", "you there?")
	sendText(t, env, "carol", "alice", "lunch?")

	n, err := env.messages.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	list, err := env.messages.ChatList(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "carol", list[0].PartnerID)
	assert.Equal(t, "Bob", list[1].PartnerName)
	assert.EqualValues(t, 2, list[1].UnreadCount)
	assert.True(t, list[1].Online)
	assert.Equal(t, "you there?", list[1].LastMessage.Message)

	updated, err := env.messages.MarkRead(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)
	n, err = env.messages.UnreadCountFrom(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, env.relations.Block(ctx, "alice", "carol"))
	list, err = env.messages.ChatList(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].PartnerID)

	hidden, err := env.messages.DeleteChat(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 2, hidden)
	list, err = env.messages.ChatList(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

// 两个用户从填写爱好到互相删除消息的完整流程
func TestHobbyChatFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	profiles := newProfileService(env, &fakeProvider{})
	matcher := NewMatchService(env.store, memFollows{env.store}, memBlocks{env.store}, nil, config.DefaultMatchConfig())

	_, err := profiles.SaveHobbies(ctx, "alice", &dto.SaveHobbiesRequest{Hobbies: []string{"Chess", "Reading"}})
	require.NoError(t, err)
	_, err = profiles.SaveHobbies(ctx, "bob", &dto.SaveHobbiesRequest{Hobbies: []string{"chess", "reading"}})
	require.NoError(t, err)

	recs := matcher.Recommendations(ctx, "alice")
	require.Len(t, recs.Recommendations, 1)
	assert.Equal(t, "bob", recs.Recommendations[0].UserID)
	assert.Equal(t, 100, recs.Recommendations[0].MatchPercentage)
	assert.True(t, recs.Recommendations[0].ExactMatch)

	_, err = env.messages.Send(ctx, "alice", &dto.SendMessageRequest{ReceiverID: "bob", Message: "hi"})
	require.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = env.relations.SendFollowRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, env.relations.AcceptFollowRequest(ctx, "bob", "alice"))

	recs = matcher.Recommendations(ctx, "alice")
	assert.Empty(t, recs.Recommendations)

	msg := sendText(t, env, "alice", "bob", "hi bob")
	edited, err := env.messages.Edit(ctx, "alice", msg.ID, &dto.EditMessageRequest{Message: "hi bob, chess tonight?"})
	require.NoError(t, err)
	assert.Equal(t, "hi bob", edited.OriginalText)

	bobHistory, err := env.messages.History(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, bobHistory, 1)
	assert.Equal(t, "hi bob, chess tonight?", bobHistory[0].Message)

	require.NoError(t, env.messages.Delete(ctx, "alice", msg.ID, dto.DeleteForMe))
	require.NoError(t, env.messages.Delete(ctx, "alice", msg.ID, dto.DeleteForEveryone))

	bobHistory, err = env.messages.History(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Empty(t, bobHistory)
}
