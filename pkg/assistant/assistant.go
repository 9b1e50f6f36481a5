// Package assistant 聊天内置 AI 助手（Gemini）。
// 助手永远返回一段可展示的文本：未配置、超时、配额耗尽等情况都退化为固定提示，调用方不需要处理错误分支。
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"HobbyChat/config"
	"HobbyChat/pkg/logger"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// UserID AI 助手的保留用户 id，不对应任何真实用户
const UserID = "ai-assistant"

// 兜底回复
const (
	ReplyNotConfigured = "The assistant is not configured yet. Please try again later."
	ReplyBusy          = "I'm currently experiencing high traffic. Please try again in a few minutes!"
	ReplyBlocked       = "I can't respond to that message due to safety guidelines. Please try a different question."
	ReplyUnavailable   = "Sorry, I'm having trouble responding right now. Please try again later!"
	ReplyEmpty         = "I received an empty response, please try rephrasing your question."
)

// IsAssistant 判断 id 是否为 AI 助手
func IsAssistant(userID string) bool {
	return userID == UserID
}

// Generator 文本生成接口，便于测试替换
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Assistant AI 助手
type Assistant struct {
	gen     Generator
	timeout time.Duration
}

// New 使用任意 Generator 创建助手；gen 为 nil 时所有请求返回 ReplyNotConfigured
func New(gen Generator, timeout time.Duration) *Assistant {
	return &Assistant{gen: gen, timeout: timeout}
}

// Reply 生成回复，不返回错误
func (a *Assistant) Reply(ctx context.Context, prompt string) string {
	if a == nil || a.gen == nil {
		return ReplyNotConfigured
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		logger.Warn(ctx, "AI 助手生成回复失败", logger.ErrorField("error", err))
		return fallback(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ReplyEmpty
	}
	return text
}

func fallback(err error) string {
	msg := strings.ToUpper(err.Error())
	switch {
	case strings.Contains(msg, "QUOTA") || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429"):
		return ReplyBusy
	case strings.Contains(msg, "SAFETY") || strings.Contains(msg, "BLOCKED"):
		return ReplyBlocked
	default:
		return ReplyUnavailable
	}
}

// Gemini 基于 genai.GenerativeModel 的 Generator
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini 创建 Gemini 生成器；APIKey 为空时返回 nil, nil
func NewGemini(ctx context.Context, cfg config.AssistantConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("assistant: create genai client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	if cfg.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(cfg.SystemPrompt)}}
	}
	temp := float32(0.7)
	maxTokens := int32(512)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     &temp,
		MaxOutputTokens: &maxTokens,
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate implements Generator
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

// Close 关闭底层连接
func (g *Gemini) Close() error {
	return g.client.Close()
}
