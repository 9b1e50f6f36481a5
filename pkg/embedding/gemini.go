package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"HobbyChat/config"
	"HobbyChat/pkg/breaker"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"
)

const defaultGeminiEmbeddingModel = "text-embedding-004"

// GeminiProvider 使用 Gemini EmbeddingModel
type GeminiProvider struct {
	client  *genai.Client
	model   *genai.EmbeddingModel
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

// NewGeminiProvider 创建 Gemini 向量化客户端
func NewGeminiProvider(ctx context.Context, cfg config.EmbeddingConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding: gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("embedding: create genai client: %w", err)
	}
	name := cfg.Model
	if name == "" {
		name = defaultGeminiEmbeddingModel
	}
	em := client.EmbeddingModel(name)
	em.TaskType = genai.TaskTypeSemanticSimilarity
	return &GeminiProvider{
		client:  client,
		model:   em,
		timeout: cfg.Timeout,
		cb:      breaker.New("embedding-gemini"),
	}, nil
}

// Embed implements Provider
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return breaker.Do(p.cb, func() ([]float32, error) {
		res, err := p.model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, fmt.Errorf("gemini embedding request failed: %w", err)
		}
		if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
			return nil, ErrEmptyVector
		}
		return res.Embedding.Values, nil
	})
}

// Close 关闭底层连接
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
