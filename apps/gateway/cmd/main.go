package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"HobbyChat/apps/gateway/internal/middleware"
	"HobbyChat/apps/gateway/internal/mq"
	"HobbyChat/apps/gateway/internal/realtime"
	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/apps/gateway/internal/router"
	v1 "HobbyChat/apps/gateway/internal/router/v1"
	"HobbyChat/apps/gateway/internal/service"
	"HobbyChat/config"
	"HobbyChat/model"
	"HobbyChat/pkg/assistant"
	"HobbyChat/pkg/async"
	"HobbyChat/pkg/ctxmeta"
	"HobbyChat/pkg/embedding"
	"HobbyChat/pkg/fieldcrypt"
	"HobbyChat/pkg/kafka"
	"HobbyChat/pkg/logger"
	pkgminio "HobbyChat/pkg/minio"
	pkgmysql "HobbyChat/pkg/mysql"
	pkgredis "HobbyChat/pkg/redis"
	"HobbyChat/pkg/util"
	"HobbyChat/pkg/vectorindex"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	ctx := ctxmeta.WithTraceID(context.Background(), "0")

	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	l, err := logger.Build(cfg.Logger)
	if err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	logger.ReplaceGlobal(l)
	defer func() {
		// Sync 对 os.Stdout 可能返回错误，忽略
		_ = logger.L().Sync()
	}()
	logger.Info(ctx, "Gateway 服务初始化中...")

	// 3. 初始化 MySQL（必需）
	db, err := pkgmysql.Build(cfg.MySQL)
	if err != nil {
		logger.Fatal(ctx, "初始化 MySQL 失败", logger.ErrorField("error", err))
	}
	pkgmysql.ReplaceGlobal(db)
	if err := pkgmysql.AutoMigrate(db, model.AllModels()...); err != nil {
		logger.Fatal(ctx, "数据库迁移失败", logger.ErrorField("error", err))
	}
	logger.Info(ctx, "MySQL 初始化完成")

	// 4. 初始化 Redis
	// Redis 初始化失败不阻塞启动：缓存直接回源，限流降级为本地令牌桶
	var redisClient *redis.Client
	if rc, err := pkgredis.Build(cfg.Redis); err != nil {
		logger.Error(ctx, "初始化 Redis 失败，缓存与分布式限流降级", logger.ErrorField("error", err))
	} else {
		redisClient = rc
		pkgredis.ReplaceGlobal(rc)
		logger.Info(ctx, "Redis 初始化成功", logger.String("addr", cfg.Redis.Addr))
	}

	// 5. 初始化协程池与 ID 生成器
	if err := async.Init(cfg.Async); err != nil {
		logger.Fatal(ctx, "初始化协程池失败", logger.ErrorField("error", err))
	}
	async.SetContextPropagator(ctxmeta.Detach)
	if err := util.InitSnowflake(1); err != nil {
		logger.Fatal(ctx, "初始化 Snowflake 失败", logger.ErrorField("error", err))
	}
	util.InitJWT(cfg.JWT)

	// 6. 初始化 Kafka 重试队列
	// 只有 Redis 可用时重试才有意义
	var retryConsumer *mq.RedisRetryConsumer
	var retryProducer *kafka.Producer
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if cfg.Kafka.Enabled && redisClient != nil {
		retryProducer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.RedisRetryTopic)
		mq.SetGlobalProducer(retryProducer)
		source := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.RedisRetryTopic, logger.L())
		retryConsumer = mq.NewRedisRetryConsumer(source, retryProducer, redisClient)
		go func() {
			if err := retryConsumer.Start(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(ctx, "Redis 重试消费者退出", logger.ErrorField("error", err))
			}
		}()
		logger.Info(ctx, "Kafka 重试队列已启动", logger.String("topic", cfg.Kafka.RedisRetryTopic))
	}

	// 7. 初始化外部依赖：对象存储 / 字段加密 / 向量化 / 向量索引 / AI 助手
	var storage service.ObjectStorage
	if mc, err := pkgminio.Build(cfg.MinIO); err != nil {
		logger.Error(ctx, "初始化 MinIO 失败，附件上传不可用", logger.ErrorField("error", err))
	} else {
		pkgminio.ReplaceGlobal(mc)
		storage = mc
	}

	cipher, err := fieldcrypt.New(cfg.Crypto.Key)
	if err != nil {
		logger.Fatal(ctx, "消息加密密钥无效", logger.ErrorField("error", err))
	}
	if !cipher.Enabled() {
		logger.Warn(ctx, "未配置消息加密密钥，消息以明文存储")
	}

	provider, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "初始化向量化服务失败", logger.ErrorField("error", err))
	}
	defer func() { _ = embedding.Close(provider) }()
	logger.Info(ctx, "向量化服务初始化完成", logger.String("provider", cfg.Embedding.Provider))

	var index service.VectorIndex
	if ic, err := vectorindex.New(cfg.VectorIndex); err != nil {
		if !errors.Is(err, vectorindex.ErrNotConfigured) {
			logger.Fatal(ctx, "初始化向量索引失败", logger.ErrorField("error", err))
		}
		logger.Info(ctx, "未接入向量索引，推荐使用全量扫描")
	} else {
		index = ic
		if err := ic.Health(ctx); err != nil {
			logger.Warn(ctx, "向量索引健康检查失败", logger.ErrorField("error", err))
		}
	}

	var gen assistant.Generator
	if g, err := assistant.NewGemini(ctx, cfg.Assistant); err != nil {
		logger.Error(ctx, "初始化 AI 助手失败，使用兜底回复", logger.ErrorField("error", err))
	} else if g != nil {
		gen = g
		defer func() { _ = g.Close() }()
	}
	bot := assistant.New(gen, cfg.Assistant.Timeout)

	// 8. 初始化 Repository 层
	profileRepo := repository.NewProfileRepository(db)
	followRepo := repository.NewFollowRepository(db, redisClient)
	blockRepo := repository.NewBlockRepository(db, redisClient)
	notificationRepo := repository.NewNotificationRepository(db, redisClient)
	messageRepo := repository.NewMessageRepository(db)
	presenceRepo := repository.NewPresenceRepository(redisClient)

	// 9. 初始化 Service 层
	// Hub 不依赖任何服务，先创建以便作为推送通道注入
	hub := realtime.NewHub()

	dashboardService := service.NewDashboardService(followRepo, notificationRepo, messageRepo, hub, hub)
	presenceService := service.NewPresenceService(hub, presenceRepo)
	embeddingService := service.NewEmbeddingService(profileRepo, provider, index, cfg.Embedding.Timeout)
	relationService := service.NewRelationService(profileRepo, followRepo, blockRepo, hub, dashboardService)
	matchService := service.NewMatchService(profileRepo, followRepo, blockRepo, index, cfg.Match)
	profileService := service.NewProfileService(profileRepo, blockRepo, relationService, embeddingService, hub,
		matchService, notificationRepo, hub)
	notificationService := service.NewNotificationService(notificationRepo, profileRepo, relationService, dashboardService)
	messageService := service.NewMessageService(service.MessageDeps{
		Messages:  messageRepo,
		Follows:   followRepo,
		Blocks:    blockRepo,
		Profiles:  profileRepo,
		Cipher:    cipher,
		Storage:   storage,
		Bus:       hub,
		Presence:  hub,
		Assistant: bot,
		Dashboard: dashboardService,
	})
	logger.Info(ctx, "Service 层初始化完成")

	// 10. 初始化 Handler 层
	coordinator := realtime.NewCoordinator(hub, messageService, presenceService)
	wsHandler := realtime.NewWSHandler(hub, coordinator, realtime.ClientOptions{
		SendQueueSize: 256,
		EventRate:     cfg.Server.WSEventRate,
		EventBurst:    cfg.Server.WSEventBurst,
	}, cfg.Server.AllowedOrigins)

	handlers := &router.Handlers{
		Match:        v1.NewMatchHandler(matchService),
		Profile:      v1.NewProfileHandler(profileService, embeddingService, presenceService),
		Relation:     v1.NewRelationHandler(relationService, dashboardService),
		Notification: v1.NewNotificationHandler(notificationService),
		Message:      v1.NewMessageHandler(messageService),
		WS:           wsHandler.ServeWS,
	}

	// 11. 初始化路由
	// Gin 模式设置: ReleaseMode/DebugMode/TestMode
	gin.SetMode(cfg.Server.Mode)
	r := router.InitRouter(handlers, router.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IPLimiter:      middleware.NewRateLimiter(redisClient, cfg.Server.IPRate, cfg.Server.IPBurst),
		UserLimiter:    middleware.NewRateLimiter(redisClient, cfg.Server.UserRate, cfg.Server.UserBurst),
		RequestTimeout: cfg.Server.RequestTimeout,
		UploadTimeout:  cfg.Server.UploadTimeout,
	})
	logger.Info(ctx, "路由初始化完成",
		logger.Float64("ip_rate", cfg.Server.IPRate),
		logger.Int("ip_burst", cfg.Server.IPBurst),
	)

	// 12. 启动 HTTP / WebSocket 服务
	// WebSocket 是长连接，不设置整体读写超时
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		MaxHeaderBytes:    1 << 20, // 最大请求头 1MB
	}
	go func() {
		logger.Info(ctx, "Gateway 服务器启动中", logger.String("address", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "服务器启动失败", logger.ErrorField("error", err))
		}
	}()

	// 13. 启动 gRPC 健康检查
	var grpcServer *grpc.Server
	healthServer := health.NewServer()
	if cfg.Server.HealthGRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.HealthGRPCAddr)
		if err != nil {
			logger.Fatal(ctx, "监听健康检查端口失败", logger.ErrorField("error", err))
		}
		grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				logger.Error(ctx, "健康检查服务退出", logger.ErrorField("error", err))
			}
		}()
		logger.Info(ctx, "gRPC 健康检查已启动", logger.String("address", cfg.Server.HealthGRPCAddr))
	}

	logger.Info(ctx, "Gateway 服务器启动成功，按 Ctrl+C 关闭")

	// 14. 优雅停机
	quit := make(chan os.Signal, 1)
	// 监听中断信号：Ctrl+C (SIGINT) 和 kill 命令 (SIGTERM)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info(ctx, "收到关闭信号，开始优雅停机...", logger.String("signal", sig.String()))

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// 先断开长连接；Hub 状态此时已清空，由 coordinator 为停机前在线的用户写入最后在线时间
	coordinator.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "服务器强制关闭", logger.ErrorField("error", err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	stopConsumer()
	if retryConsumer != nil {
		if err := retryConsumer.Close(); err != nil {
			logger.Warn(ctx, "关闭 Redis 重试消费者失败", logger.ErrorField("error", err))
		}
	}
	if retryProducer != nil {
		if err := retryProducer.Close(); err != nil {
			logger.Warn(ctx, "关闭 Kafka 生产者失败", logger.ErrorField("error", err))
		}
	}
	if err := async.Release(); err != nil {
		logger.Warn(ctx, "协程池释放超时", logger.ErrorField("error", err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info(ctx, "Gateway 服务器已优雅退出", logger.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))
}
