package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix 环境变量前缀，层级用双下划线分隔：HOBBYCHAT_REDIS__ADDR -> redis.addr
	EnvPrefix = "HOBBYCHAT_"
	// EnvConfigPath 指定 YAML 配置文件路径的环境变量
	EnvConfigPath = "CONFIG_PATH"
)

// Config 进程级配置汇总。
type Config struct {
	Server      ServerConfig      `json:"server" yaml:"server"`
	Logger      LoggerConfig      `json:"logger" yaml:"logger"`
	MySQL       MySQLConfig       `json:"mysql" yaml:"mysql"`
	Redis       RedisConfig       `json:"redis" yaml:"redis"`
	Kafka       KafkaConfig       `json:"kafka" yaml:"kafka"`
	MinIO       MinIOConfig       `json:"minio" yaml:"minio"`
	Async       AsyncConfig       `json:"async" yaml:"async"`
	JWT         JWTConfig         `json:"jwt" yaml:"jwt"`
	Crypto      CryptoConfig      `json:"crypto" yaml:"crypto"`
	Embedding   EmbeddingConfig   `json:"embedding" yaml:"embedding"`
	VectorIndex VectorIndexConfig `json:"vectorIndex" yaml:"vectorIndex"`
	Assistant   AssistantConfig   `json:"assistant" yaml:"assistant"`
	Match       MatchConfig       `json:"match" yaml:"match"`
}

// Default 返回全部模块的默认配置。
func Default() Config {
	return Config{
		Server:      DefaultServerConfig(),
		Logger:      DefaultLoggerConfig(),
		MySQL:       DefaultMySQLConfig(),
		Redis:       DefaultRedisConfig(),
		Kafka:       DefaultKafkaConfig(),
		MinIO:       DefaultMinIOConfig(),
		Async:       DefaultAsyncConfig(),
		JWT:         DefaultJWTConfig(),
		Crypto:      DefaultCryptoConfig(),
		Embedding:   DefaultEmbeddingConfig(),
		VectorIndex: DefaultVectorIndexConfig(),
		Assistant:   DefaultAssistantConfig(),
		Match:       DefaultMatchConfig(),
	}
}

// Load 按 默认值 -> YAML 文件 -> 环境变量 的顺序合并配置。
// path 为空时读取 CONFIG_PATH；两者都为空则跳过文件层。
// 当前目录存在 .env 时会先加载到进程环境变量。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "yaml"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyMapper(k)), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKeyMapper 把 HOBBYCHAT_MYSQL__MAX_OPEN_CONNS 映射成已知的 mysql.maxOpenConns。
// 匹配时忽略大小写和单下划线，未知 key 原样保留（小写点分）。
func envKeyMapper(k *koanf.Koanf) func(string) string {
	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[normalizeKey(key)] = key
	}
	return func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		if mapped, ok := known[normalizeKey(key)]; ok {
			return mapped
		}
		return key
	}
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "")
}

// Validate 校验必填项与取值范围。
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	for name, v := range map[string]int{
		"match.indexThreshold":       c.Match.IndexThreshold,
		"match.scanThreshold":        c.Match.ScanThreshold,
		"match.hobbyAcceptThreshold": c.Match.HobbyAcceptThreshold,
		"match.defaultScore":         c.Match.DefaultScore,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("%s must be within [0,100], got %d", name, v))
		}
	}
	if c.Match.Limit <= 0 {
		errs = append(errs, errors.New("match.limit must be positive"))
	}
	if c.Crypto.Key != "" && len(c.Crypto.Key) != 64 {
		errs = append(errs, errors.New("crypto.key must be 64 hex characters"))
	}
	switch c.Embedding.Provider {
	case "", "http", "gemini":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q is not supported", c.Embedding.Provider))
	}
	return errors.Join(errs...)
}
