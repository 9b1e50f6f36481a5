package service

import (
	"context"
	"errors"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/model"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/minio"
	"HobbyChat/pkg/util"
	"HobbyChat/pkg/vectorindex"

	"go.uber.org/zap"
)

var svcLoggerOnce sync.Once

func initSvcTestLogger() {
	svcLoggerOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
		_ = util.InitSnowflake(1)
	})
}

// ==================== 内存仓储 ====================

// memStore 按仓储接口约定实现的内存存储，所有仓储共用一份数据
type memStore struct {
	mu            sync.Mutex
	profiles      map[string]*model.UserProfile
	follows       []*model.Follow
	blocks        []*model.Block
	notifications map[int64]*model.Notification
	messages      map[int64]*model.Message
	lastSeen      map[string]time.Time
	nextEdgeID    int64

	connectedErr error
}

var (
	_ repository.IProfileRepository      = (*memStore)(nil)
	_ repository.IBlockRepository        = memBlocks{}
	_ repository.IFollowRepository       = memFollows{}
	_ repository.INotificationRepository = memNotifications{}
	_ repository.IMessageRepository      = memMessages{}
	_ repository.IPresenceRepository     = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		profiles:      map[string]*model.UserProfile{},
		notifications: map[int64]*model.Notification{},
		messages:      map[int64]*model.Message{},
		lastSeen:      map[string]time.Time{},
	}
}

func (s *memStore) addUser(id, name string, hobbies ...string) *model.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.UserProfile{ID: id, Name: name, Hobbies: hobbies}
	s.profiles[id] = p
	return p
}

func (s *memStore) profile(id string) *model.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[id]
}

func copyProfile(p *model.UserProfile) *model.UserProfile {
	c := *p
	c.Hobbies = slices.Clone(p.Hobbies)
	c.Embedding = slices.Clone(p.Embedding)
	c.HobbyEmbeddings = slices.Clone(p.HobbyEmbeddings)
	return &c
}

// ---------- profile ----------

func (s *memStore) Get(_ context.Context, userID string) (*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return copyProfile(p), nil
}

func (s *memStore) Ensure(ctx context.Context, userID string) (*model.UserProfile, error) {
	s.mu.Lock()
	if _, ok := s.profiles[userID]; !ok {
		s.profiles[userID] = &model.UserProfile{ID: userID}
	}
	s.mu.Unlock()
	return s.Get(ctx, userID)
}

func (s *memStore) Exists(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.profiles[userID]
	return ok, nil
}

func (s *memStore) BatchGet(_ context.Context, userIDs []string) ([]*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.UserProfile, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			out = append(out, copyProfile(p))
		}
	}
	return out, nil
}

func (s *memStore) ListWithEmbedding(_ context.Context, excludeID string) ([]*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.UserProfile, 0)
	for id, p := range s.profiles {
		if id != excludeID && len(p.Embedding) > 0 {
			out = append(out, copyProfile(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListMissingEmbedding(_ context.Context, afterID string, limit int) ([]*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.UserProfile, 0)
	for id, p := range s.profiles {
		if id > afterID && len(p.Hobbies) > 0 && len(p.Embedding) == 0 {
			out = append(out, copyProfile(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) UpdateBasic(_ context.Context, userID string, b repository.ProfileBasic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrRecordNotFound
	}
	p.Name, p.Bio, p.Location, p.Occupation, p.Age = b.Name, b.Bio, b.Location, b.Occupation, b.Age
	return nil
}

func (s *memStore) SaveHobbies(_ context.Context, userID string, hobbies []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrRecordNotFound
	}
	p.Hobbies = slices.Clone(hobbies)
	if len(hobbies) == 0 {
		p.Hobbies, p.Embedding, p.HobbyEmbeddings, p.EmbeddingUpdatedAt = nil, nil, nil, nil
	}
	return nil
}

func (s *memStore) UpdateEmbedding(_ context.Context, userID string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrRecordNotFound
	}
	now := time.Now()
	p.Embedding, p.EmbeddingUpdatedAt = slices.Clone(vector), &now
	return nil
}

func (s *memStore) UpdateHobbyEmbeddings(_ context.Context, userID string, items []model.HobbyEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrRecordNotFound
	}
	p.HobbyEmbeddings = slices.Clone(items)
	return nil
}

// ---------- follow ----------

func (s *memStore) findFollow(follower, following string) *model.Follow {
	for _, f := range s.follows {
		if f.FollowerID == follower && f.FollowingID == following {
			return f
		}
	}
	return nil
}

func (s *memStore) upsertNotification(n *model.Notification) {
	for _, old := range s.notifications {
		if old.UserID == n.UserID && old.ActorID == n.ActorID && old.Type == n.Type {
			old.Message, old.Read, old.CreatedAt = n.Message, false, time.Now()
			return
		}
	}
	c := *n
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.notifications[c.ID] = &c
}

func (s *memStore) deleteNotifications(userID, actorID, typ string) {
	for id, n := range s.notifications {
		if n.UserID == userID && n.ActorID == actorID && n.Type == typ {
			delete(s.notifications, id)
		}
	}
}

// memFollows follow 仓储视图
type memFollows struct{ *memStore }

func (s memFollows) ListFollowers(_ context.Context, userID string) ([]*model.Follow, error) {
	return s.accepted(func(f *model.Follow) bool { return f.FollowingID == userID }), nil
}

func (s memFollows) ListFollowing(_ context.Context, userID string) ([]*model.Follow, error) {
	return s.accepted(func(f *model.Follow) bool { return f.FollowerID == userID }), nil
}

func (s memFollows) accepted(match func(*model.Follow) bool) []*model.Follow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Follow, 0)
	for _, f := range s.follows {
		if f.Status == model.FollowStatusAccepted && match(f) {
			c := *f
			out = append(out, &c)
		}
	}
	return out
}

func (s *memStore) followsInvolving(userID string) []*model.Follow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Follow, 0)
	for _, f := range s.follows {
		if f.FollowerID == userID || f.FollowingID == userID {
			c := *f
			out = append(out, &c)
		}
	}
	return out
}

func (s memFollows) ListBetween(_ context.Context, a, b string) ([]*model.Follow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Follow, 0, 2)
	for _, f := range s.follows {
		if (f.FollowerID == a && f.FollowingID == b) || (f.FollowerID == b && f.FollowingID == a) {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s memFollows) CreateRequest(_ context.Context, follow *model.Follow, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findFollow(follow.FollowerID, follow.FollowingID) != nil {
		return repository.ErrDuplicateKey
	}
	s.nextEdgeID++
	c := *follow
	c.ID, c.CreatedAt, c.UpdatedAt = s.nextEdgeID, time.Now(), time.Now()
	s.follows = append(s.follows, &c)
	s.upsertNotification(n)
	return nil
}

func (s memFollows) Accept(_ context.Context, followerID, followingID string, accepted *model.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.findFollow(followerID, followingID)
	if f == nil || f.Status != model.FollowStatusPending {
		return false, nil
	}
	f.Status = model.FollowStatusAccepted
	s.deleteNotifications(followingID, followerID, model.NotificationTypeChatRequest)
	s.upsertNotification(accepted)
	return true, nil
}

func (s memFollows) DeletePending(_ context.Context, followerID, followingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID && f.Status == model.FollowStatusPending {
			s.follows = append(s.follows[:i], s.follows[i+1:]...)
			s.deleteNotifications(followingID, followerID, model.NotificationTypeChatRequest)
			return true, nil
		}
	}
	return false, nil
}

func (s memFollows) ConnectedIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectedErr != nil {
		return nil, s.connectedErr
	}
	out := make([]string, 0)
	for _, f := range s.follows {
		if f.Status != model.FollowStatusAccepted {
			continue
		}
		if f.FollowerID == userID {
			out = append(out, f.FollowingID)
		} else if f.FollowingID == userID {
			out = append(out, f.FollowerID)
		}
	}
	return out, nil
}

func (s memFollows) IsConnected(ctx context.Context, a, b string) (bool, error) {
	ids, err := s.ConnectedIDs(ctx, a)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, b), nil
}

func (s memFollows) ListIncomingPending(_ context.Context, userID string) ([]*model.Follow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Follow, 0)
	for _, f := range s.follows {
		if f.FollowingID == userID && f.Status == model.FollowStatusPending {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s memFollows) CountIncomingPending(ctx context.Context, userID string) (int64, error) {
	list, _ := s.ListIncomingPending(ctx, userID)
	return int64(len(list)), nil
}

func (s memFollows) ListInvolving(_ context.Context, userID string, others []string) ([]*model.Follow, error) {
	set := toSet(others)
	out := make([]*model.Follow, 0)
	for _, f := range s.followsInvolving(userID) {
		if _, ok := set[f.Counterpart(userID)]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// ---------- presence ----------

func (s *memStore) SetLastSeen(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen[userID] = at
	return nil
}

func (s *memStore) GetLastSeen(_ context.Context, userID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen[userID], nil
}

// ---------- block（方法名与 follow 冲突，用视图类型区分）----------

type memBlocks struct{ *memStore }

func (b memBlocks) Block(_ context.Context, blockerID, blockedID string) error {
	s := b.memStore
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.blocks {
		if x.BlockerID == blockerID && x.BlockedID == blockedID {
			return repository.ErrDuplicateKey
		}
	}
	s.nextEdgeID++
	s.blocks = append(s.blocks, &model.Block{ID: s.nextEdgeID, BlockerID: blockerID, BlockedID: blockedID, CreatedAt: time.Now()})
	kept := s.follows[:0]
	for _, f := range s.follows {
		if (f.FollowerID == blockerID && f.FollowingID == blockedID) || (f.FollowerID == blockedID && f.FollowingID == blockerID) {
			continue
		}
		kept = append(kept, f)
	}
	s.follows = kept
	s.deleteNotifications(blockerID, blockedID, model.NotificationTypeChatRequest)
	s.deleteNotifications(blockedID, blockerID, model.NotificationTypeChatRequest)
	return nil
}

func (b memBlocks) Unblock(_ context.Context, blockerID, blockedID string) (bool, error) {
	s := b.memStore
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, x := range s.blocks {
		if x.BlockerID == blockerID && x.BlockedID == blockedID {
			s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (b memBlocks) BlockedIDs(_ context.Context, userID string) ([]string, error) {
	s := b.memStore
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0)
	for _, x := range s.blocks {
		if x.BlockerID == userID {
			out = append(out, x.BlockedID)
		} else if x.BlockedID == userID {
			out = append(out, x.BlockerID)
		}
	}
	return out, nil
}

func (b memBlocks) IsBlockedEither(ctx context.Context, a, c string) (bool, error) {
	ids, _ := b.BlockedIDs(ctx, a)
	return slices.Contains(ids, c), nil
}

func (b memBlocks) ListByBlocker(_ context.Context, blockerID string) ([]*model.Block, error) {
	s := b.memStore
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Block, 0)
	for _, x := range s.blocks {
		if x.BlockerID == blockerID {
			c := *x
			out = append(out, &c)
		}
	}
	return out, nil
}

// ---------- notification ----------

type memNotifications struct{ *memStore }

func (n memNotifications) Upsert(_ context.Context, x *model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.upsertNotification(x)
	return nil
}

func (n memNotifications) Get(_ context.Context, userID string, id int64) (*model.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	x, ok := n.notifications[id]
	if !ok || x.UserID != userID {
		return nil, repository.ErrRecordNotFound
	}
	c := *x
	return &c, nil
}

func (n memNotifications) List(_ context.Context, userID string, limit int) ([]*model.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*model.Notification, 0)
	for _, x := range n.notifications {
		if x.UserID == userID {
			c := *x
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (n memNotifications) CountUnread(_ context.Context, userID string) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var c int64
	for _, x := range n.notifications {
		if x.UserID == userID && !x.Read {
			c++
		}
	}
	return c, nil
}

func (n memNotifications) MarkRead(_ context.Context, userID string, id int64) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	x, ok := n.notifications[id]
	if !ok || x.UserID != userID {
		return false, nil
	}
	x.Read = true
	return true, nil
}

func (n memNotifications) Delete(_ context.Context, userID string, id int64) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	x, ok := n.notifications[id]
	if !ok || x.UserID != userID {
		return false, nil
	}
	delete(n.notifications, id)
	return true, nil
}

func (s *memStore) notificationsFor(userID string) []*model.Notification {
	list, _ := memNotifications{s}.List(context.Background(), userID, 1000)
	return list
}

// ---------- message ----------

type memMessages struct{ *memStore }

func copyMessage(m *model.Message) *model.Message {
	c := *m
	c.DeletedFor = slices.Clone(m.DeletedFor)
	return &c
}

func (m memMessages) Create(_ context.Context, x *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[x.ID] = copyMessage(x)
	return nil
}

func (m memMessages) Get(_ context.Context, id int64) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	x, ok := m.messages[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return copyMessage(x), nil
}

func (m memMessages) BatchGet(_ context.Context, ids []int64) ([]*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Message, 0, len(ids))
	for _, id := range ids {
		if x, ok := m.messages[id]; ok {
			out = append(out, copyMessage(x))
		}
	}
	return out, nil
}

func (m memMessages) UpdateText(_ context.Context, id int64, senderID, text, snapshot string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	x, ok := m.messages[id]
	if !ok || x.SenderID != senderID {
		return false, nil
	}
	if x.OriginalText == "" {
		x.OriginalText = snapshot
	}
	x.Text, x.Edited = text, true
	return true, nil
}

func (m memMessages) HideFor(_ context.Context, id int64, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if x, ok := m.messages[id]; ok && !slices.Contains(x.DeletedFor, userID) {
		x.DeletedFor = append(x.DeletedFor, userID)
	}
	return nil
}

func (m memMessages) HideConversationFor(_ context.Context, userID, partnerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, x := range m.messages {
		if x.IsParticipant(userID) && x.IsParticipant(partnerID) && !slices.Contains(x.DeletedFor, userID) {
			x.DeletedFor = append(x.DeletedFor, userID)
			n++
		}
	}
	return n, nil
}

func (m memMessages) Delete(_ context.Context, ids ...int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.messages[id]; ok {
			delete(m.messages, id)
			n++
		}
	}
	return n, nil
}

func (m memMessages) History(_ context.Context, userID, partnerID string) ([]*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Message, 0)
	for _, x := range m.messages {
		if x.IsParticipant(userID) && x.IsParticipant(partnerID) && !slices.Contains(x.DeletedFor, userID) {
			out = append(out, copyMessage(x))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memMessages) MarkRead(_ context.Context, senderID, receiverID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, x := range m.messages {
		if x.SenderID == senderID && x.ReceiverID == receiverID && !x.Read {
			x.Read = true
			n++
		}
	}
	return n, nil
}

func (m memMessages) CountUnread(_ context.Context, receiverID string) (int64, error) {
	by, _ := m.UnreadBySender(context.Background(), receiverID)
	var n int64
	for _, c := range by {
		n += c
	}
	return n, nil
}

func (m memMessages) CountUnreadFrom(_ context.Context, receiverID, senderID string) (int64, error) {
	by, _ := m.UnreadBySender(context.Background(), receiverID)
	return by[senderID], nil
}

func (m memMessages) UnreadBySender(_ context.Context, receiverID string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for _, x := range m.messages {
		if x.ReceiverID == receiverID && !x.Read {
			out[x.SenderID]++
		}
	}
	return out, nil
}

func (m memMessages) LatestPerPartner(_ context.Context, userID string) ([]*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := map[string]*model.Message{}
	for _, x := range m.messages {
		if !x.IsParticipant(userID) || slices.Contains(x.DeletedFor, userID) {
			continue
		}
		p := x.Counterpart(userID)
		if cur, ok := latest[p]; !ok || x.ID > cur.ID {
			latest[p] = x
		}
	}
	out := make([]*model.Message, 0, len(latest))
	for _, x := range latest {
		out = append(out, copyMessage(x))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// ==================== 协作方 fake ====================

type sentEvent struct {
	Target  string // 房间 id 或用户 id
	Event   string
	Data    any
	Exclude string
}

// recordingBus 记录所有推送
type recordingBus struct {
	mu   sync.Mutex
	room []sentEvent
	user []sentEvent
}

var _ Broadcaster = (*recordingBus)(nil)

func (b *recordingBus) BroadcastToRoom(roomID, event string, data any, excludeConn string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.room = append(b.room, sentEvent{Target: roomID, Event: event, Data: data, Exclude: excludeConn})
	return 1
}

func (b *recordingBus) SendToUser(userID, event string, data any) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.user = append(b.user, sentEvent{Target: userID, Event: event, Data: data})
	return 1
}

func (b *recordingBus) roomEvents(event string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.room {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (b *recordingBus) userEvents(event string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentEvent
	for _, e := range b.user {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// recordingDashboard 同步记录 Push，避免测试依赖异步时序
type recordingDashboard struct {
	mu     sync.Mutex
	pushed []string
}

var _ DashboardService = (*recordingDashboard)(nil)

func (d *recordingDashboard) Stats(context.Context, string) (*dto.DashboardStats, error) {
	return &dto.DashboardStats{}, nil
}

func (d *recordingDashboard) Push(_ context.Context, userIDs ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushed = append(d.pushed, userIDs...)
}

func (d *recordingDashboard) pushedTo(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Contains(d.pushed, userID)
}

type fakePresence struct {
	online map[string]bool
}

var _ PresenceReader = (*fakePresence)(nil)

func (p *fakePresence) IsOnline(userID string) bool { return p.online[userID] }

// prefixCipher 可逆的假加密，便于断言落库内容是密文
type prefixCipher struct{}

var _ FieldCipher = prefixCipher{}

func (prefixCipher) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	return "enc:" + plain, nil
}

func (prefixCipher) Decrypt(token string) string { return strings.TrimPrefix(token, "enc:") }

type fakeStorage struct {
	storeFn  func(ctx context.Context, r io.Reader, size int64, contentType, fileName string) (*minio.UploadResult, error)
	deleteFn func(ctx context.Context, objectName string) error

	mu      sync.Mutex
	deleted []string
}

var _ ObjectStorage = (*fakeStorage)(nil)

func (f *fakeStorage) Store(ctx context.Context, r io.Reader, size int64, contentType, fileName string) (*minio.UploadResult, error) {
	if f.storeFn == nil {
		return nil, errors.New("unexpected Store call")
	}
	return f.storeFn(ctx, r, size, contentType, fileName)
}

func (f *fakeStorage) Delete(ctx context.Context, objectName string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, objectName)
	f.mu.Unlock()
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, objectName)
}

type fakeReplier struct {
	replyFn func(ctx context.Context, prompt string) string
}

var _ Replier = (*fakeReplier)(nil)

func (f *fakeReplier) Reply(ctx context.Context, prompt string) string {
	if f.replyFn == nil {
		return "ok"
	}
	return f.replyFn(ctx, prompt)
}

// fakeProvider 按文本返回固定向量
type fakeProvider struct {
	mu      sync.Mutex
	vectors map[string][]float32
	errFor  map[string]error
	calls   []string
}

func (f *fakeProvider) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if err, ok := f.errFor[text]; ok {
		return nil, err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

type fakeIndex struct {
	upsertFn func(ctx context.Context, userID string, values []float32, metadata map[string]string) error
	queryFn  func(ctx context.Context, values []float32, topK int, excludeID string) ([]vectorindex.Match, error)
}

var _ VectorIndex = (*fakeIndex)(nil)

func (f *fakeIndex) Upsert(ctx context.Context, userID string, values []float32, metadata map[string]string) error {
	if f.upsertFn == nil {
		return nil
	}
	return f.upsertFn(ctx, userID, values, metadata)
}

func (f *fakeIndex) Query(ctx context.Context, values []float32, topK int, excludeID string) ([]vectorindex.Match, error) {
	if f.queryFn == nil {
		return nil, errors.New("unexpected Query call")
	}
	return f.queryFn(ctx, values, topK, excludeID)
}

// ==================== 组装 ====================

type testEnv struct {
	store     *memStore
	bus       *recordingBus
	dashboard *recordingDashboard
	presence  *fakePresence
	storage   *fakeStorage
	relations RelationService
	messages  MessageService
	notify    NotificationService
}

func newTestEnv() *testEnv {
	initSvcTestLogger()
	store := newMemStore()
	env := &testEnv{
		store:     store,
		bus:       &recordingBus{},
		dashboard: &recordingDashboard{},
		presence:  &fakePresence{online: map[string]bool{}},
		storage:   &fakeStorage{},
	}
	env.relations = NewRelationService(store, memFollows{store}, memBlocks{store}, env.presence, env.dashboard)
	env.messages = NewMessageService(MessageDeps{
		Messages:  memMessages{store},
		Follows:   memFollows{store},
		Blocks:    memBlocks{store},
		Profiles:  store,
		Cipher:    prefixCipher{},
		Storage:   env.storage,
		Bus:       env.bus,
		Presence:  env.presence,
		Assistant: &fakeReplier{},
		Dashboard: env.dashboard,
	})
	env.notify = NewNotificationService(memNotifications{store}, store, env.relations, env.dashboard)
	return env
}

// connect 直接写入一条 accepted 边
func (e *testEnv) connect(a, b string) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.nextEdgeID++
	e.store.follows = append(e.store.follows, &model.Follow{
		ID: e.store.nextEdgeID, FollowerID: a, FollowingID: b, Status: model.FollowStatusAccepted,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
}
