package config

// CryptoConfig 消息字段加密配置。
// Key 为 64 位十六进制字符串（32 字节），为空时加密退化为明文透传。
type CryptoConfig struct {
	Key string `json:"key" yaml:"key"`
}

// DefaultCryptoConfig 返回本地开发的默认配置。
func DefaultCryptoConfig() CryptoConfig {
	return CryptoConfig{}
}
