package config

import "time"

// ServerConfig HTTP/WebSocket 服务配置。
type ServerConfig struct {
	Addr              string        `json:"addr" yaml:"addr"`
	HealthGRPCAddr    string        `json:"healthGrpcAddr" yaml:"healthGrpcAddr"` // gRPC health 探针地址，为空则不启动
	Mode              string        `json:"mode" yaml:"mode"`                     // gin 模式 release/debug/test
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
	RequestTimeout    time.Duration `json:"requestTimeout" yaml:"requestTimeout"` // 普通 REST 接口超时
	ShutdownTimeout   time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
	UploadTimeout     time.Duration `json:"uploadTimeout" yaml:"uploadTimeout"`   // 附件上传接口超时
	AllowedOrigins    []string      `json:"allowedOrigins" yaml:"allowedOrigins"` // CORS 与 WebSocket Origin 白名单，为空不校验

	// 限流
	IPRate    float64 `json:"ipRate" yaml:"ipRate"`
	IPBurst   int     `json:"ipBurst" yaml:"ipBurst"`
	UserRate  float64 `json:"userRate" yaml:"userRate"`
	UserBurst int     `json:"userBurst" yaml:"userBurst"`

	// WebSocket
	WSEventRate  float64 `json:"wsEventRate" yaml:"wsEventRate"`   // 单连接每秒上行事件数
	WSEventBurst int     `json:"wsEventBurst" yaml:"wsEventBurst"` // 单连接突发上行事件数
}

// DefaultServerConfig 返回本地开发的默认配置。
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:              ":8080",
		HealthGRPCAddr:    ":9090",
		Mode:              "release",
		ReadHeaderTimeout: 5 * time.Second,
		RequestTimeout:    10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		UploadTimeout:     60 * time.Second,
		IPRate:            10,
		IPBurst:           20,
		UserRate:          20,
		UserBurst:         40,
		WSEventRate:       20,
		WSEventBurst:      40,
	}
}
