package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"HobbyChat/config"
	"HobbyChat/pkg/breaker"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
)

// HTTPProvider 调用自建 NLP 服务
type HTTPProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// NewHTTPProvider 创建 HTTP 向量化客户端
func NewHTTPProvider(cfg config.EmbeddingConfig) (*HTTPProvider, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("embedding: url is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		endpoint: base + "/embeddings",
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		cb:       breaker.New("embedding-http"),
	}, nil
}

// Embed implements Provider
func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	return breaker.Do(p.cb, func() ([]float32, error) {
		return p.do(ctx, text)
	})
}

func (p *HTTPProvider) do(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("embedding read body: %w", err)
	}

	var out embedResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("embedding decode (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service status %d: %s", resp.StatusCode, out.Error)
	}
	if len(out.Embedding) == 0 {
		return nil, ErrEmptyVector
	}
	return out.Embedding, nil
}
