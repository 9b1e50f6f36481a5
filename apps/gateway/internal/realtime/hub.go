package realtime

import (
	"sort"
	"sync"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/service"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/metrics"
	"HobbyChat/pkg/roomid"

	"github.com/goccy/go-json"
)

var (
	_ service.Broadcaster    = (*Hub)(nil)
	_ service.PresenceReader = (*Hub)(nil)
)

// Hub 进程内的在线状态与房间成员关系。
// 维护三套索引：
//   - clients:  所有已建立的连接
//   - presence: user -> 在线句柄，同一用户并发上线时后到者覆盖
//   - rooms:    房间 -> 连接集合；个人通知频道也是一个房间
//
// 状态只存在于内存，进程重启后客户端需要重新 user_online / join。
// 多实例部署需要替换为共享的存储与广播通道。
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	presence map[string]*Client
	rooms    map[string]map[*Client]struct{}
	joined   map[*Client]map[string]struct{}
	shutdown bool
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		presence: make(map[string]*Client),
		rooms:    make(map[string]map[*Client]struct{}),
		joined:   make(map[*Client]map[string]struct{}),
	}
}

// Register 登记新连接；停机后返回 false
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shutdown {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.WSConnections.Set(float64(len(h.clients)))
	return true
}

// Unregister 注销连接并退出它加入的所有房间。
// 只有该连接是用户当前的在线句柄、且用户没有其他已上线连接时，才返回 wentOffline=true
func (h *Hub) Unregister(c *Client) (wentOffline bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	for room := range h.joined[c] {
		h.leaveLocked(room, c)
	}
	delete(h.joined, c)

	if h.presence[c.UserID()] == c {
		delete(h.presence, c.UserID())
		wentOffline = true
		for other := range h.clients {
			if other.UserID() == c.UserID() && other.Identified() {
				h.presence[c.UserID()] = other
				wentOffline = false
				break
			}
		}
	}

	metrics.WSConnections.Set(float64(len(h.clients)))
	metrics.OnlineUsers.Set(float64(len(h.presence)))
	return wentOffline
}

// MarkOnline 把连接设为用户的在线句柄并加入个人通知频道；返回用户此前是否离线
func (h *Hub) MarkOnline(c *Client) (cameOnline bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	_, wasOnline := h.presence[c.UserID()]
	h.presence[c.UserID()] = c
	h.joinLocked(roomid.PersonalChannel(c.UserID()), c)

	metrics.OnlineUsers.Set(float64(len(h.presence)))
	return !wasOnline
}

// IsOnline 用户是否在线
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.presence[userID]
	return ok
}

// ListOnline 在线用户列表（有序）
func (h *Hub) ListOnline() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.presence))
	for id := range h.presence {
		out = append(out, id)
	}
	h.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Join 加入房间，已经在房间内时返回 false
func (h *Hub) Join(roomID string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	return h.joinLocked(roomID, c)
}

// Leave 离开房间，不在房间内时返回 false
func (h *Hub) Leave(roomID string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leaveLocked(roomID, c)
}

// BroadcastToRoom 向房间内的连接广播，跳过 id 为 excludeConn 的发起连接；返回成功入队的连接数。
// 同一用户的其他连接照常收到。入队在读锁内完成，但并发调用之间没有先后保证，
// 需要顺序的调用方自行按房间串行
func (h *Hub) BroadcastToRoom(roomID, event string, data any, excludeConn string) int {
	payload, ok := encodeFrame(event, data)
	if !ok {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.rooms[roomID] {
		if excludeConn != "" && c.ID() == excludeConn {
			continue
		}
		if c.Enqueue(payload) {
			sent++
		}
	}
	return sent
}

// SendToUser 发送到用户的个人通知频道（用户所有已上线的连接）
func (h *Hub) SendToUser(userID, event string, data any) int {
	return h.BroadcastToRoom(roomid.PersonalChannel(userID), event, data, "")
}

// BroadcastAll 向除 exclude 以外的所有连接广播
func (h *Hub) BroadcastAll(event string, data any, exclude *Client) int {
	payload, ok := encodeFrame(event, data)
	if !ok {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.clients {
		if c == exclude {
			continue
		}
		if c.Enqueue(payload) {
			sent++
		}
	}
	return sent
}

// Send 只发给一个连接
func (h *Hub) Send(c *Client, event string, data any) bool {
	payload, ok := encodeFrame(event, data)
	if !ok {
		return false
	}
	return c.Enqueue(payload)
}

// Count 当前连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown 关闭全部连接并拒绝后续注册，返回停机前在线的用户（有序）。
// 状态在这里一次性清空，之后的 Unregister 都返回 false，最后在线时间由调用方按返回值记录
func (h *Hub) Shutdown() []string {
	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return nil
	}
	h.shutdown = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	online := make([]string, 0, len(h.presence))
	for id := range h.presence {
		online = append(online, id)
	}
	h.clients = make(map[*Client]struct{})
	h.presence = make(map[string]*Client)
	h.rooms = make(map[string]map[*Client]struct{})
	h.joined = make(map[*Client]map[string]struct{})
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	metrics.OnlineUsers.Set(0)
	for _, c := range clients {
		c.Close()
	}
	sort.Strings(online)
	return online
}

func (h *Hub) joinLocked(roomID string, c *Client) bool {
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[roomID] = members
	}
	if _, in := members[c]; in {
		return false
	}
	members[c] = struct{}{}

	rooms, ok := h.joined[c]
	if !ok {
		rooms = make(map[string]struct{})
		h.joined[c] = rooms
	}
	rooms[roomID] = struct{}{}
	return true
}

func (h *Hub) leaveLocked(roomID string, c *Client) bool {
	members, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	if _, in := members[c]; !in {
		return false
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
	delete(h.joined[c], roomID)
	return true
}

func encodeFrame(event string, data any) ([]byte, bool) {
	payload, err := json.Marshal(dto.OutboundFrame{Type: event, Data: data})
	if err != nil {
		logger.L().Warn("下行帧序列化失败", logger.String("event", event), logger.ErrorField("error", err))
		return nil, false
	}
	return payload, true
}
