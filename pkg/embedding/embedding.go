// Package embedding 文本向量化。
//
// 支持两种后端：自建 NLP 服务（POST {url}/embeddings，请求 {"text": ...}，响应 {"embedding": [...]}）
// 与 Gemini EmbeddingModel。两者都可以再套一层进程内 LRU 缓存，单个爱好文本的向量在不同用户之间复用。
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"HobbyChat/config"
)

var (
	// ErrDisabled 未配置向量化服务
	ErrDisabled = errors.New("embedding: provider disabled")
	// ErrEmptyText 输入为空
	ErrEmptyText = errors.New("embedding: empty text")
	// ErrEmptyVector 服务返回了空向量
	ErrEmptyVector = errors.New("embedding: empty vector returned")
)

// Provider 文本向量化接口
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Closer 需要释放资源的 Provider
type Closer interface {
	Close() error
}

// New 根据配置创建 Provider，CacheSize > 0 时自动包一层 LRU
func New(ctx context.Context, cfg config.EmbeddingConfig) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none", "disabled":
		return Disabled{}, nil
	case "http":
		p, err = NewHTTPProvider(cfg)
	case "gemini":
		p, err = NewGeminiProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCached(p, cfg.CacheSize)
	}
	return p, nil
}

// Disabled 始终返回 ErrDisabled
type Disabled struct{}

// Embed implements Provider
func (Disabled) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrDisabled
}

// Close 释放 Provider 持有的资源（若有）
func Close(p Provider) error {
	if c, ok := p.(Closer); ok {
		return c.Close()
	}
	return nil
}
