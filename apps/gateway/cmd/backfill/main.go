package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/apps/gateway/internal/service"
	"HobbyChat/config"
	"HobbyChat/pkg/ctxmeta"
	"HobbyChat/pkg/embedding"
	"HobbyChat/pkg/logger"
	pkgmysql "HobbyChat/pkg/mysql"
	"HobbyChat/pkg/util"
	"HobbyChat/pkg/vectorindex"
)

// 为有爱好但缺少向量的存量用户补全向量，执行一次后退出
func main() {
	batchSize := flag.Int("batch", 100, "每批处理的用户数")
	timeout := flag.Duration("timeout", 30*time.Minute, "整体超时")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	l, err := logger.Build(cfg.Logger)
	if err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	logger.ReplaceGlobal(l)
	defer func() { _ = logger.L().Sync() }()

	ctx := ctxmeta.WithTraceID(context.Background(), util.NewUUID())
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := pkgmysql.Build(cfg.MySQL)
	if err != nil {
		logger.Fatal(ctx, "初始化 MySQL 失败", logger.ErrorField("error", err))
	}

	provider, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "初始化向量化服务失败", logger.ErrorField("error", err))
	}
	defer func() { _ = embedding.Close(provider) }()

	var index service.VectorIndex
	if ic, err := vectorindex.New(cfg.VectorIndex); err == nil {
		index = ic
	}

	svc := service.NewEmbeddingService(repository.NewProfileRepository(db), provider, index, cfg.Embedding.Timeout)
	start := time.Now()
	resp, err := svc.Backfill(ctx, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "补全向量中断",
			logger.Int("processed", resp.Processed),
			logger.Int("failed", resp.Failed),
			logger.ErrorField("error", err),
		)
	}
	logger.Info(ctx, "补全向量完成",
		logger.Int("processed", resp.Processed),
		logger.Int("failed", resp.Failed),
		logger.Duration("cost", time.Since(start)),
	)
}
