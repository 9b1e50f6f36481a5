// Package metrics Prometheus 指标定义。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal HTTP 请求计数
	// Labels: method, path(路由模板), status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hobbychat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hobbychat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// WSConnections 当前 WebSocket 连接数
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hobbychat_ws_connections",
		Help: "Current number of open WebSocket connections",
	})

	// OnlineUsers 当前在线用户数
	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hobbychat_online_users",
		Help: "Current number of users marked online",
	})

	// WSEventsTotal 收到的 WebSocket 事件
	// Labels: event, outcome("ok", "rejected", "error")
	WSEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hobbychat_ws_events_total",
			Help: "Total number of inbound WebSocket events",
		},
		[]string{"event", "outcome"},
	)

	// RecommendationsTotal 推荐请求
	// Labels: path("index", "scan", "none"), outcome("ok", "empty", "error")
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hobbychat_recommendations_total",
			Help: "Total number of match recommendation requests",
		},
		[]string{"path", "outcome"},
	)

	// EmbeddingFailuresTotal 向量化失败次数
	// Labels: kind("combined", "per_hobby", "index_upsert")
	EmbeddingFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hobbychat_embedding_failures_total",
			Help: "Total number of embedding generation or indexing failures",
		},
		[]string{"kind"},
	)

	// RedisRetryTasksTotal Redis 补偿任务
	// Labels: outcome("queued", "replayed", "dropped")
	RedisRetryTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hobbychat_redis_retry_tasks_total",
			Help: "Total number of Redis compensation tasks",
		},
		[]string{"outcome"},
	)
)
