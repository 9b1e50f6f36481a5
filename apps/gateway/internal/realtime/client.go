package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"HobbyChat/pkg/util"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	defaultSendQueueSize = 64
	wsWriteTimeout       = 5 * time.Second
	wsPongWait           = 60 * time.Second
	wsPingPeriod         = wsPongWait * 9 / 10
	wsMaxFrameBytes      = 64 << 10
)

// MessageHandler 上行帧回调，raw 为客户端原始 JSON
type MessageHandler func(raw []byte)

// CloseHandler 读写循环退出后的清理回调
type CloseHandler func()

// ClientOptions 单连接参数
type ClientOptions struct {
	SendQueueSize int
	EventRate     float64 // 每秒上行事件数，<=0 不限流
	EventBurst    int
}

// Client 单条 WebSocket 连接。
// userID 来自握手时的令牌；identified 在收到 user_online 后置位。
// Client 不持有房间信息，成员关系全部在 Hub.rooms / Hub.joined 中。
type Client struct {
	id         string
	conn       *websocket.Conn
	userID     string
	identified atomic.Bool
	limiter    *rate.Limiter

	send chan []byte
	done chan struct{}
	once sync.Once

	dropped atomic.Int64
}

// NewClient 创建连接包装；conn 为 nil 时只有发送队列可用（用于测试 Hub）
func NewClient(conn *websocket.Conn, userID string, opts ClientOptions) *Client {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = defaultSendQueueSize
	}
	c := &Client{
		id:     util.NewUUID(),
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, opts.SendQueueSize),
		done:   make(chan struct{}),
	}
	if opts.EventRate > 0 {
		burst := opts.EventBurst
		if burst <= 0 {
			burst = int(opts.EventRate)
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.EventRate), max(burst, 1))
	}
	return c
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// Identified 是否已经发送过 user_online
func (c *Client) Identified() bool { return c.identified.Load() }

func (c *Client) markIdentified() bool { return c.identified.CompareAndSwap(false, true) }

// Done 连接关闭信号
func (c *Client) Done() <-chan struct{} { return c.done }

// Allow 上行事件限流
func (c *Client) Allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// Enqueue 投递下行帧。
// 队列满时只丢弃这一帧，不影响同房间的其他连接，也不断开当前连接。
func (c *Client) Enqueue(msg []byte) bool {
	if len(msg) == 0 {
		return true
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// Dropped 因队列满被丢弃的帧数
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Run 启动读写循环，阻塞到 readLoop 退出；退出时保证调用 Close 和 onClose
func (c *Client) Run(ctx context.Context, onMessage MessageHandler, onClose CloseHandler) {
	defer func() {
		c.Close()
		if onClose != nil {
			onClose()
		}
	}()

	go c.writeLoop(ctx)
	c.readLoop(ctx, onMessage)
}

// Close 幂等关闭
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) readLoop(ctx context.Context, onMessage MessageHandler) {
	c.conn.SetReadLimit(wsMaxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		if onMessage != nil {
			onMessage(raw)
		}
	}
}

// writeLoop 单协程写，保证同一连接上的帧按入队顺序发出
func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
