package embedding

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached 为 Provider 加一层 LRU，key 为去空白、小写后的文本
type Cached struct {
	next  Provider
	cache *lru.Cache[string, []float32]
}

// NewCached 创建带缓存的 Provider
func NewCached(next Provider, size int) (*Cached, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: c}, nil
}

// Embed implements Provider
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if v, ok := c.cache.Get(key); ok {
		return clone(v), nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, clone(v))
	return v, nil
}

// Len 当前缓存条目数
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Close 关闭被包装的 Provider
func (c *Cached) Close() error {
	return Close(c.next)
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
