// Package vectorindex 近邻向量索引客户端（Pinecone 兼容 REST 接口）。
package vectorindex

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

// ErrNotConfigured 未配置索引地址
var ErrNotConfigured = errors.New("vectorindex: not configured")

// Match 近邻结果
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Client 索引客户端
type Client struct {
	baseURL   string
	apiKey    string
	namespace string
	http      *http.Client
	cb        *gobreaker.CircuitBreaker
}

// New 创建客户端；URL 为空时返回 ErrNotConfigured
func New(cfg config.VectorIndexConfig) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		http:      &http.Client{Timeout: timeout},
		cb:        breaker.New("vector-index"),
	}, nil
}

type vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Upsert 写入或覆盖用户的组合向量
func (c *Client) Upsert(ctx context.Context, userID string, values []float32, metadata map[string]string) error {
	body := upsertRequest{
		Vectors:   []vector{{ID: userID, Values: values, Metadata: metadata}},
		Namespace: c.namespace,
	}
	_, err := breaker.Do(c.cb, func() (struct{}, error) {
		return struct{}{}, c.post(ctx, "/vectors/upsert", body, nil)
	})
	return err
}

// Query 查询与 values 最相近的 topK 个用户，结果中剔除 excludeID
func (c *Client) Query(ctx context.Context, values []float32, topK int, excludeID string) ([]Match, error) {
	k := topK
	if excludeID != "" {
		k++
	}
	req := queryRequest{Vector: values, TopK: k, Namespace: c.namespace}

	resp, err := breaker.Do(c.cb, func() (queryResponse, error) {
		var out queryResponse
		err := c.post(ctx, "/query", req, &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m.ID == excludeID {
			continue
		}
		matches = append(matches, m)
		if len(matches) == topK {
			break
		}
	}
	return matches, nil
}

// Health 探测索引是否可用
func (c *Client) Health(ctx context.Context) error {
	return c.post(ctx, "/describe_index_stats", struct{}{}, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("vectorindex %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("vectorindex %s read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vectorindex %s status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("vectorindex %s decode: %w", path, err)
	}
	return nil
}
