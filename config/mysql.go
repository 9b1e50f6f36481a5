package config

import "time"

// MySQLConfig MySQL 配置。
// Replicas 非空时通过 dbresolver 做读写分离，写请求始终走 DSN。
type MySQLConfig struct {
	DSN             string        `json:"dsn" yaml:"dsn"`
	Replicas        []string      `json:"replicas" yaml:"replicas"`
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
	SlowThreshold   time.Duration `json:"slowThreshold" yaml:"slowThreshold"` // 慢查询阈值
	AutoMigrate     bool          `json:"autoMigrate" yaml:"autoMigrate"`     // 启动时自动建表
}

// DefaultMySQLConfig 返回本地开发的默认配置（与 docker-compose.yml 对齐）。
func DefaultMySQLConfig() MySQLConfig {
	return MySQLConfig{
		DSN:             "root:root@tcp(mysql:3306)/hobbychat?charset=utf8mb4&parseTime=True&loc=Local",
		MaxOpenConns:    100,
		MaxIdleConns:    20,
		ConnMaxLifetime: time.Hour,
		SlowThreshold:   200 * time.Millisecond,
		AutoMigrate:     true,
	}
}
