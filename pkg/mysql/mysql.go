package mysql

import (
	"fmt"

	"HobbyChat/config"
	"HobbyChat/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

var global *gorm.DB

// DB 返回全局 gorm 实例。
func DB() *gorm.DB { return global }

// ReplaceGlobal 设置全局 gorm 实例。
func ReplaceGlobal(db *gorm.DB) { global = db }

// Build 创建 gorm 连接。
// - 配置了 Replicas 时注册 dbresolver，读走从库、写和事务走主库；
// - TranslateError 打开后唯一键冲突会被转换成 gorm.ErrDuplicatedKey，仓储层据此识别并发重复写入。
func Build(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	resolver := dbresolver.Register(dbresolver.Config{
		Replicas: replicaDialectors(cfg.Replicas),
		Policy:   dbresolver.RandomPolicy{},
	}).
		SetMaxOpenConns(cfg.MaxOpenConns).
		SetMaxIdleConns(cfg.MaxIdleConns).
		SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := db.Use(resolver); err != nil {
		return nil, fmt.Errorf("register dbresolver: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// AutoMigrate 自动建表
func AutoMigrate(db *gorm.DB, models ...any) error {
	return db.AutoMigrate(models...)
}

func replicaDialectors(dsns []string) []gorm.Dialector {
	if len(dsns) == 0 {
		return nil
	}
	out := make([]gorm.Dialector, 0, len(dsns))
	for _, dsn := range dsns {
		out = append(out, mysql.Open(dsn))
	}
	return out
}

// newGormLogger 把 gorm 的日志接到 zap，只输出慢查询与错误
func newGormLogger(cfg config.MySQLConfig) gormlogger.Interface {
	return gormlogger.New(zapPrintf{l: logger.L()}, gormlogger.Config{
		SlowThreshold:             cfg.SlowThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

type zapPrintf struct{ l *zap.Logger }

func (p zapPrintf) Printf(format string, args ...interface{}) {
	p.l.Warn(fmt.Sprintf(format, args...))
}
