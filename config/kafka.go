package config

import "time"

// KafkaConfig Kafka 配置。
// 当前仅用于 Redis 写失败后的重试队列。
type KafkaConfig struct {
	Brokers         []string      `json:"brokers" yaml:"brokers"`
	RedisRetryTopic string        `json:"redisRetryTopic" yaml:"redisRetryTopic"`
	ConsumerGroup   string        `json:"consumerGroup" yaml:"consumerGroup"`
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
	BatchTimeout    time.Duration `json:"batchTimeout" yaml:"batchTimeout"`
	Enabled         bool          `json:"enabled" yaml:"enabled"`
}

// DefaultKafkaConfig 返回本地开发的默认配置。
func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Brokers:         []string{"kafka:9092"},
		RedisRetryTopic: "hobbychat.redis.retry",
		ConsumerGroup:   "hobbychat-redis-retry",
		WriteTimeout:    2 * time.Second,
		BatchTimeout:    10 * time.Millisecond,
		Enabled:         true,
	}
}
