package router

import (
	"net/http"
	"time"

	"HobbyChat/apps/gateway/internal/middleware"
	v1 "HobbyChat/apps/gateway/internal/router/v1"
	rediskey "HobbyChat/consts/redisKey"
	"HobbyChat/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Match        *v1.MatchHandler
	Profile      *v1.ProfileHandler
	Relation     *v1.RelationHandler
	Notification *v1.NotificationHandler
	Message      *v1.MessageHandler
	// WS WebSocket 握手入口，为 nil 时不注册 /ws
	WS gin.HandlerFunc
}

// Options 路由级参数
type Options struct {
	AllowedOrigins []string
	IPLimiter      *middleware.RateLimiter
	UserLimiter    *middleware.RateLimiter
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
}

// InitRouter 初始化路由
func InitRouter(h *Handlers, opts Options) *gin.Engine {
	middleware.RegisterValidators()

	r := gin.New()

	// 恢复中间件
	r.Use(middleware.GinRecovery(true))

	// 追踪中间件 (生成 trace_id)
	r.Use(util.TraceLogger())

	// 客户端 IP 中间件
	r.Use(middleware.ClientIPMiddleware())

	// 日志中间件
	r.Use(middleware.GinLogger())

	// Prometheus 监控中间件
	r.Use(middleware.PrometheusMiddleware())

	// 跨域中间件
	r.Use(middleware.CorsMiddleware(opts.AllowedOrigins))

	// 健康检查（无需认证）
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus 指标暴露接口
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket 在握手时自行校验令牌，不走 JWT 中间件和超时中间件
	if h.WS != nil {
		ws := []gin.HandlerFunc{}
		if opts.IPLimiter != nil {
			ws = append(ws, middleware.IPRateLimitMiddleware(opts.IPLimiter, rediskey.GatewayIPBlacklistKey()))
		}
		r.GET("/ws", append(ws, h.WS)...)
	}

	api := r.Group("/api/v1")
	if opts.IPLimiter != nil {
		api.Use(middleware.IPRateLimitMiddleware(opts.IPLimiter, rediskey.GatewayIPBlacklistKey()))
	}

	// 需要认证的接口
	auth := api.Group("/auth")
	auth.Use(middleware.JWTAuthMiddleware())
	if opts.UserLimiter != nil {
		auth.Use(middleware.UserRateLimitMiddleware(opts.UserLimiter))
	}

	// 附件上传单独放宽超时
	auth.POST("/messages/file", middleware.TimeoutMiddleware(opts.UploadTimeout), h.Message.SendFile)

	rest := auth.Group("")
	rest.Use(middleware.TimeoutMiddleware(opts.RequestTimeout))
	{
		// 匹配推荐
		rest.GET("/recommendations", h.Match.Recommendations)
		rest.GET("/match/:userId", h.Match.MatchPercentage)

		// 资料
		rest.GET("/profile", h.Profile.GetProfile)
		rest.PUT("/profile", h.Profile.UpdateProfile)
		rest.PUT("/profile/hobbies", h.Profile.SaveHobbies)
		rest.POST("/profile/embedding/regenerate", h.Profile.RegenerateEmbedding)
		rest.GET("/users/:userId", h.Profile.GetPublicProfile)
		rest.GET("/presence/:userId", h.Profile.GetPresence)

		// 关注与拉黑
		rest.GET("/follows/pending", h.Relation.ListPendingRequests)
		rest.POST("/follows/:userId", h.Relation.SendFollowRequest)
		rest.POST("/follows/:userId/accept", h.Relation.AcceptFollowRequest)
		rest.POST("/follows/:userId/reject", h.Relation.RejectFollowRequest)
		rest.GET("/follows/:userId/status", h.Relation.FollowStatus)
		rest.GET("/connections", h.Relation.ListConnections)
		rest.GET("/followers", h.Relation.ListFollowers)
		rest.GET("/following", h.Relation.ListFollowing)
		rest.GET("/users/:userId/followers", h.Relation.ListFollowers)
		rest.GET("/users/:userId/following", h.Relation.ListFollowing)
		rest.GET("/blocks", h.Relation.ListBlocked)
		rest.POST("/blocks/:userId", h.Relation.Block)
		rest.DELETE("/blocks/:userId", h.Relation.Unblock)
		rest.GET("/dashboard", h.Relation.Dashboard)

		// 通知
		rest.GET("/notifications", h.Notification.List)
		rest.GET("/notifications/unread-count", h.Notification.UnreadCount)
		rest.POST("/notifications/:id/read", h.Notification.MarkRead)
		rest.DELETE("/notifications/:id", h.Notification.Delete)
		rest.POST("/notifications/:id/ignore", h.Notification.Ignore)
		rest.POST("/notifications/:id/follow-back", h.Notification.FollowBack)

		// 消息
		rest.POST("/messages", h.Message.Send)
		rest.POST("/messages/ai", h.Message.SendAI)
		rest.POST("/messages/bulk-delete", h.Message.BulkDelete)
		rest.POST("/messages/read", h.Message.MarkRead)
		rest.GET("/messages/unread-count", h.Message.UnreadCount)
		rest.GET("/messages/unread-count/:partnerId", h.Message.UnreadCountFrom)
		rest.GET("/messages/:partnerId", h.Message.History)
		rest.PUT("/messages/:messageId", h.Message.Edit)
		rest.DELETE("/messages/:messageId", h.Message.Delete)
		rest.GET("/chats", h.Message.ChatList)
		rest.DELETE("/chats/:partnerId", h.Message.DeleteChat)
	}

	return r
}
