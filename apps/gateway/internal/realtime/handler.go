package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"HobbyChat/consts"
	"HobbyChat/pkg/ctxmeta"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/result"
	"HobbyChat/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler /ws 接入
type WSHandler struct {
	hub         *Hub
	coordinator *Coordinator
	opts        ClientOptions
	upgrader    websocket.Upgrader
}

// NewWSHandler 创建 WebSocket 入口；allowedOrigins 为空时不校验 Origin
func NewWSHandler(hub *Hub, coordinator *Coordinator, opts ClientOptions, allowedOrigins []string) *WSHandler {
	h := &WSHandler{hub: hub, coordinator: coordinator, opts: opts}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// ServeWS 握手与接入
// 执行流程：
//  1. 从 ?token= 或 Authorization 头读取令牌并校验
//  2. 构建连接级 context（trace/user/ip）
//  3. 升级协议，登记连接，进入读写循环
func (h *WSHandler) ServeWS(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	}
	if token == "" {
		result.Abort(c, http.StatusUnauthorized, consts.CodeUnauthorized)
		return
	}
	claims, err := util.ParseToken(token)
	if err != nil {
		code := int32(consts.CodeInvalidToken)
		if errors.Is(err, util.ErrTokenExpired) {
			code = consts.CodeTokenExpired
		}
		result.Abort(c, http.StatusUnauthorized, code)
		return
	}

	connCtx := context.Background()
	if traceID := ctxmeta.TraceIDFromGin(c); traceID != "" {
		connCtx = ctxmeta.WithTraceID(connCtx, traceID)
	}
	connCtx = ctxmeta.WithUserUUID(connCtx, claims.UserUUID)
	connCtx = ctxmeta.WithClientIP(connCtx, c.ClientIP())

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(connCtx, "WebSocket 升级失败", logger.ErrorField("error", err))
		return
	}

	client := NewClient(conn, claims.UserUUID, h.opts)
	if !h.hub.Register(client) {
		client.Close()
		return
	}
	logger.Info(connCtx, "WebSocket 连接已建立",
		logger.String("conn_id", client.ID()),
		logger.Int("online_count", h.hub.Count()),
	)

	client.Run(connCtx, func(raw []byte) {
		h.coordinator.HandleFrame(connCtx, client, raw)
	}, func() {
		h.coordinator.Disconnect(connCtx, client)
		logger.Info(connCtx, "WebSocket 连接已断开",
			logger.String("conn_id", client.ID()),
			logger.Int64("dropped_frames", client.Dropped()),
			logger.Int("online_count", h.hub.Count()),
		)
	})
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}
