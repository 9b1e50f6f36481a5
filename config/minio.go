package config

import "time"

// MinIOConfig 聊天附件对象存储配置
type MinIOConfig struct {
	// 连接配置
	Endpoint        string `json:"endpoint" yaml:"endpoint"`               // MinIO 服务地址，如: localhost:9000
	AccessKeyID     string `json:"accessKeyId" yaml:"accessKeyId"`         // Access Key
	SecretAccessKey string `json:"secretAccessKey" yaml:"secretAccessKey"` // Secret Key
	UseSSL          bool   `json:"useSSL" yaml:"useSSL"`                   // 是否使用 HTTPS

	// Bucket 配置
	BucketName string `json:"bucketName" yaml:"bucketName"` // 附件存储桶
	Location   string `json:"location" yaml:"location"`     // Bucket 区域，如: us-east-1
	PathPrefix string `json:"pathPrefix" yaml:"pathPrefix"` // 对象名前缀，如: chat

	// 上传配置
	MaxFileSize   int64         `json:"maxFileSize" yaml:"maxFileSize"`     // 单个附件最大字节数
	UploadTimeout time.Duration `json:"uploadTimeout" yaml:"uploadTimeout"` // 上传超时时间

	// 访问配置
	BaseURL string `json:"baseUrl" yaml:"baseUrl"` // 外部访问的基础 URL，用于拼接返回给客户端的文件地址
}

// DefaultMinIOConfig 返回本地开发的默认配置
func DefaultMinIOConfig() MinIOConfig {
	return MinIOConfig{
		Endpoint:        "minio:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		UseSSL:          false,

		BucketName: "hobbychat",
		Location:   "us-east-1",
		PathPrefix: "chat",

		MaxFileSize:   50 * 1024 * 1024, // 视频附件需要更大的上限
		UploadTimeout: 60 * time.Second,

		BaseURL: "http://localhost:9000",
	}
}
