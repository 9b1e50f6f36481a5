package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/consts"
	"HobbyChat/model"
	"HobbyChat/pkg/embedding"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/metrics"

	"google.golang.org/grpc/codes"
)

const (
	defaultEmbedTimeout = 5 * time.Second
	defaultBackfillSize = 100
)

// embeddingServiceImpl 用户向量缓存
type embeddingServiceImpl struct {
	profiles repository.IProfileRepository
	provider embedding.Provider
	index    VectorIndex
	timeout  time.Duration
}

// NewEmbeddingService 创建向量缓存服务
// index 可以为 nil（未接入近邻索引）
func NewEmbeddingService(
	profiles repository.IProfileRepository,
	provider embedding.Provider,
	index VectorIndex,
	timeout time.Duration,
) EmbeddingService {
	if provider == nil {
		provider = embedding.Disabled{}
	}
	if timeout <= 0 {
		timeout = defaultEmbedTimeout
	}
	return &embeddingServiceImpl{
		profiles: profiles,
		provider: provider,
		index:    index,
		timeout:  timeout,
	}
}

// hobbyText 把爱好拼成一段文本作为整体向量的输入
func hobbyText(hobbies []string) string {
	return strings.Join(NormalizeHobbies(hobbies), ", ")
}

func (s *embeddingServiceImpl) embed(ctx context.Context, text, kind string) ([]float32, error) {
	ectx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vec, err := s.provider.Embed(ectx, text)
	if err != nil {
		if !errors.Is(err, embedding.ErrDisabled) {
			metrics.EmbeddingFailuresTotal.WithLabelValues(kind).Inc()
		}
		return nil, err
	}
	return vec, nil
}

// RefreshEmbedding 生成整体向量
// 业务流程：
//  1. 爱好拼接为文本，调用向量化服务（有超时）
//  2. 成功则写库，并尽力同步到近邻索引
//
// 向量化失败不返回错误，保留原向量，由调用方提示“已保存但未生成向量”
func (s *embeddingServiceImpl) RefreshEmbedding(ctx context.Context, userID string, hobbies []string) bool {
	text := hobbyText(hobbies)
	if text == "" {
		return false
	}

	vec, err := s.embed(ctx, text, "combined")
	if err != nil {
		logger.Warn(ctx, "生成爱好向量失败，保留原向量",
			logger.String("user_uuid", userID),
			logger.ErrorField("error", err),
		)
		return false
	}

	if err := s.profiles.UpdateEmbedding(ctx, userID, vec); err != nil {
		logger.Error(ctx, "保存爱好向量失败",
			logger.String("user_uuid", userID),
			logger.ErrorField("error", err),
		)
		return false
	}

	if s.index != nil {
		if err := s.index.Upsert(ctx, userID, vec, map[string]string{"hobbies": text}); err != nil {
			logger.Warn(ctx, "同步近邻索引失败",
				logger.String("user_uuid", userID),
				logger.ErrorField("error", err),
			)
		}
	}
	return true
}

// RefreshPerHobbyEmbeddings 逐个爱好生成向量，失败的爱好直接跳过
func (s *embeddingServiceImpl) RefreshPerHobbyEmbeddings(ctx context.Context, userID string, hobbies []string) int {
	hobbies = NormalizeHobbies(hobbies)
	if len(hobbies) == 0 {
		return 0
	}

	items := make([]model.HobbyEmbedding, 0, len(hobbies))
	for _, h := range hobbies {
		if ctx.Err() != nil {
			break
		}
		vec, err := s.embed(ctx, h, "hobby")
		if err != nil {
			logger.Debug(ctx, "单个爱好向量生成失败",
				logger.String("hobby", h),
				logger.ErrorField("error", err),
			)
			continue
		}
		items = append(items, model.HobbyEmbedding{Hobby: h, Vector: vec})
	}
	if len(items) == 0 {
		return 0
	}

	if err := s.profiles.UpdateHobbyEmbeddings(ctx, userID, items); err != nil {
		logger.Error(ctx, "保存单个爱好向量失败",
			logger.String("user_uuid", userID),
			logger.ErrorField("error", err),
		)
		return 0
	}
	return len(items)
}

// Regenerate 使用当前爱好重新生成向量
//
// 错误码映射：
//   - codes.NotFound: 用户资料不存在
//   - codes.FailedPrecondition: 尚未填写爱好
func (s *embeddingServiceImpl) Regenerate(ctx context.Context, userID string) (*dto.SaveHobbiesResponse, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, bizError(codes.NotFound, consts.CodeUserNotFound)
		}
		return nil, internalError(ctx, "查询用户资料失败", err)
	}
	hobbies := NormalizeHobbies(profile.Hobbies)
	if len(hobbies) == 0 {
		return nil, bizError(codes.FailedPrecondition, consts.CodeNoHobbies)
	}

	embedded := s.RefreshEmbedding(ctx, userID, hobbies)
	n := s.RefreshPerHobbyEmbeddings(ctx, userID, hobbies)

	logger.Info(ctx, "重新生成爱好向量",
		logger.String("user_uuid", userID),
		logger.Bool("embedded", embedded),
		logger.Int("hobby_embeddings", n),
	)
	return &dto.SaveHobbiesResponse{
		Hobbies:         hobbies,
		Embedded:        embedded,
		HobbyEmbeddings: n,
		Message:         embeddingMessage(embedded),
	}, nil
}

// Backfill 按 id 游标分批扫描缺少向量的用户
// 单个用户失败只计数；列表查询失败时返回已处理的计数和错误
func (s *embeddingServiceImpl) Backfill(ctx context.Context, batchSize int) (*dto.BackfillResponse, error) {
	if batchSize <= 0 {
		batchSize = defaultBackfillSize
	}
	resp := &dto.BackfillResponse{}
	afterID := ""

	for {
		if err := ctx.Err(); err != nil {
			return resp, err
		}
		batch, err := s.profiles.ListMissingEmbedding(ctx, afterID, batchSize)
		if err != nil {
			logger.Error(ctx, "扫描缺少向量的用户失败", logger.ErrorField("error", err))
			return resp, err
		}

		for _, p := range batch {
			resp.Processed++
			if !s.RefreshEmbedding(ctx, p.ID, p.Hobbies) {
				resp.Failed++
				continue
			}
			s.RefreshPerHobbyEmbeddings(ctx, p.ID, p.Hobbies)
		}

		if len(batch) < batchSize {
			break
		}
		afterID = batch[len(batch)-1].ID
	}

	logger.Info(ctx, "向量补全完成",
		logger.Int("processed", resp.Processed),
		logger.Int("failed", resp.Failed),
	)
	return resp, nil
}

func embeddingMessage(embedded bool) string {
	if embedded {
		return "Hobbies saved"
	}
	return "Hobbies saved without embedding"
}
