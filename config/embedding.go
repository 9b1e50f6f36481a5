package config

import "time"

// EmbeddingConfig 文本向量化服务配置。
// Provider: http（自建 NLP 服务，POST /embeddings）/ gemini / 空（禁用，所有用户走无向量降级）。
type EmbeddingConfig struct {
	Provider  string        `json:"provider" yaml:"provider"`
	URL       string        `json:"url" yaml:"url"`
	APIKey    string        `json:"apiKey" yaml:"apiKey"`
	Model     string        `json:"model" yaml:"model"`         // gemini 模型名
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`     // 单次调用超时
	CacheSize int           `json:"cacheSize" yaml:"cacheSize"` // 进程内文本向量 LRU 容量，0 表示关闭
}

// DefaultEmbeddingConfig 返回本地开发的默认配置。
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:  "http",
		URL:       "http://nlp:5000",
		Model:     "text-embedding-004",
		Timeout:   5 * time.Second,
		CacheSize: 4096,
	}
}

// VectorIndexConfig 向量近邻索引服务配置。URL 为空表示未接入，推荐走全量扫描。
type VectorIndexConfig struct {
	URL       string        `json:"url" yaml:"url"`
	APIKey    string        `json:"apiKey" yaml:"apiKey"`
	Namespace string        `json:"namespace" yaml:"namespace"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultVectorIndexConfig 返回本地开发的默认配置。
func DefaultVectorIndexConfig() VectorIndexConfig {
	return VectorIndexConfig{
		URL:       "",
		Namespace: "hobbies",
		Timeout:   3 * time.Second,
	}
}

// AssistantConfig AI 助手配置。APIKey 为空时助手只返回兜底回复。
type AssistantConfig struct {
	APIKey       string        `json:"apiKey" yaml:"apiKey"`
	Model        string        `json:"model" yaml:"model"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	SystemPrompt string        `json:"systemPrompt" yaml:"systemPrompt"`
}

// DefaultAssistantConfig 返回本地开发的默认配置。
func DefaultAssistantConfig() AssistantConfig {
	return AssistantConfig{
		Model:   "gemini-1.5-flash",
		Timeout: 15 * time.Second,
		SystemPrompt: "You are a friendly assistant inside a hobby matching chat app. " +
			"Keep answers short and help users talk about their interests.",
	}
}
