package service

import (
	"context"
	"fmt"
	"sort"

	"HobbyChat/apps/gateway/internal/dto"
	"HobbyChat/apps/gateway/internal/repository"
	"HobbyChat/config"
	"HobbyChat/consts"
	"HobbyChat/model"
	"HobbyChat/pkg/logger"
	"HobbyChat/pkg/metrics"

	"google.golang.org/grpc/codes"
)

// 推荐结果说明文案
const (
	MsgNoHobbies      = "Add some hobbies to your profile to get recommendations"
	MsgBelowThreshold = "No users found with similar interests above the quality threshold"
	MsgRecommendFail  = "Failed to get recommendations"
)

// 候选池来源
const (
	poolIndex = "index"
	poolScan  = "scan"
)

// matchServiceImpl 推荐排序
type matchServiceImpl struct {
	profiles repository.IProfileRepository
	follows  repository.IFollowRepository
	blocks   repository.IBlockRepository
	index    VectorIndex
	cfg      config.MatchConfig
	scorer   scorer
}

// NewMatchService 创建推荐服务，index 为 nil 时始终走全量扫描
func NewMatchService(
	profiles repository.IProfileRepository,
	follows repository.IFollowRepository,
	blocks repository.IBlockRepository,
	index VectorIndex,
	cfg config.MatchConfig,
) MatchService {
	def := config.DefaultMatchConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	return &matchServiceImpl{
		profiles: profiles,
		follows:  follows,
		blocks:   blocks,
		index:    index,
		cfg:      cfg,
		scorer:   newScorer(cfg.HobbyAcceptThreshold, cfg.DefaultScore),
	}
}

type scoredCandidate struct {
	profile *model.UserProfile
	pct     int
	exact   bool
}

// Recommendations 推荐列表
// 业务流程：
//  1. 没有爱好直接返回空列表
//  2. 候选池：优先近邻索引召回，不可用/无结果/无向量时退化为全量扫描
//  3. 逐个打分，按来源对应的阈值过滤
//  4. 排除已连接与任一方向拉黑的用户
//  5. 完全一致优先，其次按匹配度降序，截断后标注关注状态
//
// 推荐是尽力而为的功能：任何错误（包括向量长度不一致的 panic）都退化为空列表
func (s *matchServiceImpl) Recommendations(ctx context.Context, userID string) (resp *dto.RecommendationsResponse) {
	path := poolScan
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "推荐计算 panic", logger.Any("panic", r))
			metrics.RecommendationsTotal.WithLabelValues(path, "error").Inc()
			resp = failedRecommendations()
		}
	}()

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil && !isNotFound(err) {
		logger.Error(ctx, "查询用户资料失败", logger.ErrorField("error", err))
		metrics.RecommendationsTotal.WithLabelValues(path, "error").Inc()
		return failedRecommendations()
	}
	if profile == nil || len(lowerSet(profile.Hobbies)) == 0 {
		metrics.RecommendationsTotal.WithLabelValues("none", "empty").Inc()
		return &dto.RecommendationsResponse{Recommendations: []*dto.MatchCandidate{}, Message: MsgNoHobbies}
	}

	pool, path, err := s.candidatePool(ctx, profile)
	if err != nil {
		logger.Error(ctx, "构建候选池失败", logger.ErrorField("error", err))
		metrics.RecommendationsTotal.WithLabelValues(path, "error").Inc()
		return failedRecommendations()
	}

	excluded, err := s.excludedIDs(ctx, userID)
	if err != nil {
		logger.Error(ctx, "查询关系过滤集合失败", logger.ErrorField("error", err))
		metrics.RecommendationsTotal.WithLabelValues(path, "error").Inc()
		return failedRecommendations()
	}

	threshold := s.cfg.ScanThreshold
	if path == poolIndex {
		threshold = s.cfg.IndexThreshold
	}

	ranked := make([]scoredCandidate, 0, len(pool))
	for _, cand := range pool {
		if cand == nil || cand.ID == userID {
			continue
		}
		pct, exact := s.scorer.score(profile, cand)
		if pct < threshold {
			continue
		}
		if _, skip := excluded[cand.ID]; skip {
			continue
		}
		ranked = append(ranked, scoredCandidate{profile: cand, pct: pct, exact: exact})
	}

	if len(ranked) == 0 {
		metrics.RecommendationsTotal.WithLabelValues(path, "empty").Inc()
		return &dto.RecommendationsResponse{Recommendations: []*dto.MatchCandidate{}, Message: MsgBelowThreshold}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].exact != ranked[j].exact {
			return ranked[i].exact
		}
		if ranked[i].pct != ranked[j].pct {
			return ranked[i].pct > ranked[j].pct
		}
		return ranked[i].profile.ID < ranked[j].profile.ID
	})
	if len(ranked) > s.cfg.Limit {
		ranked = ranked[:s.cfg.Limit]
	}

	statuses := s.followStatuses(ctx, userID, ranked)
	out := make([]*dto.MatchCandidate, 0, len(ranked))
	for _, c := range ranked {
		status := statuses[c.profile.ID]
		if status == "" {
			status = dto.FollowStatusNone
		}
		out = append(out, &dto.MatchCandidate{
			UserID:          c.profile.ID,
			Name:            c.profile.Name,
			Bio:             c.profile.Bio,
			Location:        c.profile.Location,
			Occupation:      c.profile.Occupation,
			Age:             c.profile.Age,
			Hobbies:         nonNil(c.profile.Hobbies),
			MatchPercentage: c.pct,
			SharedHobbies:   SharedHobbies(profile.Hobbies, c.profile.Hobbies),
			ExactMatch:      c.exact,
			FollowStatus:    status,
		})
	}

	metrics.RecommendationsTotal.WithLabelValues(path, "ok").Inc()
	logger.Info(ctx, "推荐计算完成",
		logger.String("path", path),
		logger.Int("pool", len(pool)),
		logger.Int("returned", len(out)),
	)
	return &dto.RecommendationsResponse{Recommendations: out}
}

// candidatePool 返回候选用户及其来源
func (s *matchServiceImpl) candidatePool(ctx context.Context, profile *model.UserProfile) ([]*model.UserProfile, string, error) {
	if s.index != nil && profile.HasEmbedding() {
		matches, err := s.index.Query(ctx, profile.Embedding, s.cfg.TopK, profile.ID)
		switch {
		case err != nil:
			logger.Warn(ctx, "近邻索引查询失败，降级为全量扫描", logger.ErrorField("error", err))
		case len(matches) > 0:
			ids := make([]string, 0, len(matches))
			for _, m := range matches {
				ids = append(ids, m.ID)
			}
			pool, err := s.profiles.BatchGet(ctx, ids)
			if err != nil {
				return nil, poolIndex, err
			}
			if len(pool) > 0 {
				return pool, poolIndex, nil
			}
		}
	}

	pool, err := s.profiles.ListWithEmbedding(ctx, profile.ID)
	return pool, poolScan, err
}

// excludedIDs 已连接 + 任一方向拉黑
func (s *matchServiceImpl) excludedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	connected, err := s.follows.ConnectedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("connected ids: %w", err)
	}
	blocked, err := s.blocks.BlockedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("blocked ids: %w", err)
	}
	set := toSet(connected)
	for _, id := range blocked {
		set[id] = struct{}{}
	}
	return set, nil
}

// followStatuses 关注状态标注失败只影响展示，按 none 处理
func (s *matchServiceImpl) followStatuses(ctx context.Context, userID string, ranked []scoredCandidate) map[string]string {
	ids := make([]string, 0, len(ranked))
	for _, c := range ranked {
		ids = append(ids, c.profile.ID)
	}
	edges, err := s.follows.ListInvolving(ctx, userID, ids)
	if err != nil {
		logger.Warn(ctx, "查询关注状态失败", logger.ErrorField("error", err))
		return map[string]string{}
	}

	byPeer := make(map[string][]*model.Follow, len(edges))
	for _, e := range edges {
		peer := e.Counterpart(userID)
		byPeer[peer] = append(byPeer[peer], e)
	}
	out := make(map[string]string, len(byPeer))
	for peer, list := range byPeer {
		out[peer] = FollowStatusOf(userID, list)
	}
	return out
}

// MatchPercentage 两人匹配度，没有任何可用数据时为默认分
//
// 错误码映射：
//   - codes.NotFound: 目标用户不存在
//   - codes.PermissionDenied: 存在拉黑关系
func (s *matchServiceImpl) MatchPercentage(ctx context.Context, userID, targetID string) (resp *dto.MatchPercentageResponse, err error) {
	target, err := s.profiles.Get(ctx, targetID)
	if err != nil {
		if isNotFound(err) {
			return nil, bizError(codes.NotFound, consts.CodeUserNotFound)
		}
		return nil, internalError(ctx, "查询目标用户资料失败", err)
	}
	blocked, err := s.blocks.IsBlockedEither(ctx, userID, targetID)
	if err != nil {
		return nil, internalError(ctx, "查询拉黑关系失败", err)
	}
	if blocked {
		return nil, bizError(codes.PermissionDenied, consts.CodeBlockedRelation)
	}

	me, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if !isNotFound(err) {
			return nil, internalError(ctx, "查询用户资料失败", err)
		}
		me = &model.UserProfile{ID: userID}
	}

	shared := SharedHobbies(me.Hobbies, target.Hobbies)
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "匹配度计算 panic", logger.Any("panic", r))
			resp, err = &dto.MatchPercentageResponse{MatchPercentage: s.scorer.defaultScore, SharedHobbies: shared}, nil
		}
	}()

	pct, _ := s.scorer.score(me, target)
	return &dto.MatchPercentageResponse{MatchPercentage: pct, SharedHobbies: shared}, nil
}

func failedRecommendations() *dto.RecommendationsResponse {
	return &dto.RecommendationsResponse{Recommendations: []*dto.MatchCandidate{}, Message: MsgRecommendFail}
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
