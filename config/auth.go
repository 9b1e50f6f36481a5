package config

import "time"

// JWTConfig 身份令牌配置。
// 令牌由外部身份服务签发，本服务只做校验；Issuer 为空时不校验签发方。
type JWTConfig struct {
	Secret   string        `json:"secret" yaml:"secret"`
	Issuer   string        `json:"issuer" yaml:"issuer"`
	TokenTTL time.Duration `json:"tokenTTL" yaml:"tokenTTL"` // 仅用于测试/工具签发
}

// DefaultJWTConfig 返回本地开发的默认配置。
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:   "hobbychat-dev-secret",
		Issuer:   "hobbychat",
		TokenTTL: 24 * time.Hour,
	}
}
