package service

import (
	"strings"

	"HobbyChat/model"
	"HobbyChat/pkg/similarity"
)

// 匹配度区间
const (
	scoreFullMatch    = 100
	scorePartialBase  = 85
	scorePartialStep  = 5
	scoreVectorFloor  = 60
	scoreVectorCeil   = 95
	coverageBonusMax  = 20
	defaultMatchScore = 60
)

// scorer 按固定优先级计算两人匹配度：
// 完全一致 > 部分一致加成 > 单个爱好向量 > 整体向量 > 默认值
type scorer struct {
	hobbyAccept  int
	defaultScore int
}

func newScorer(hobbyAccept, defaultScore int) scorer {
	if hobbyAccept <= 0 {
		hobbyAccept = 70
	}
	if defaultScore <= 0 {
		defaultScore = defaultMatchScore
	}
	return scorer{hobbyAccept: hobbyAccept, defaultScore: defaultScore}
}

// score 返回匹配度以及是否存在完全一致的爱好
func (sc scorer) score(req, cand *model.UserProfile) (int, bool) {
	reqSet := lowerSet(req.Hobbies)
	candSet := lowerSet(cand.Hobbies)

	exact := 0
	for h := range reqSet {
		if _, ok := candSet[h]; ok {
			exact++
		}
	}

	if exact > 0 && exact == len(reqSet) && exact == len(candSet) {
		return scoreFullMatch, true
	}
	if exact > 0 {
		return min(scoreFullMatch, max(scorePartialBase, scorePartialBase+scorePartialStep*exact)), true
	}

	if pct, ok := sc.perHobby(req, cand); ok {
		return pct, false
	}

	if req.HasEmbedding() && cand.HasEmbedding() {
		sim, ok := similarity.Cosine(req.Embedding, cand.Embedding)
		if !ok {
			return sc.defaultScore, false
		}
		return similarity.Clamp(similarity.Percent(sim), scoreVectorFloor, scoreVectorCeil), false
	}
	return sc.defaultScore, false
}

// perHobby 对请求方每个爱好取对方爱好中的最佳相似度，超过接受阈值才计入；
// 平均分加覆盖率奖励后截断到 [60,95]。没有任何爱好被接受时返回 false，交给整体向量规则
func (sc scorer) perHobby(req, cand *model.UserProfile) (int, bool) {
	if len(req.HobbyEmbeddings) == 0 || len(cand.HobbyEmbeddings) == 0 {
		return 0, false
	}

	accepted := 0
	total := 0
	for _, mine := range req.HobbyEmbeddings {
		best, found := 0.0, false
		for _, theirs := range cand.HobbyEmbeddings {
			if len(mine.Vector) != len(theirs.Vector) {
				continue
			}
			sim, ok := similarity.Cosine(mine.Vector, theirs.Vector)
			if !ok {
				continue
			}
			if !found || sim > best {
				best, found = sim, true
			}
		}
		// 阈值比较用原始相似度，取整后的百分比会把 0.700~0.705 误判为不达标
		if found && best > float64(sc.hobbyAccept)/100 {
			accepted++
			total += similarity.Percent(best)
		}
	}
	if accepted == 0 {
		return 0, false
	}

	denom := max(hobbyCount(req), hobbyCount(cand))
	avg := float64(total) / float64(accepted)
	bonus := float64(accepted) / float64(denom) * coverageBonusMax
	return similarity.Clamp(int(avg+bonus+0.5), scoreVectorFloor, scoreVectorCeil), true
}

func hobbyCount(p *model.UserProfile) int {
	if n := len(lowerSet(p.Hobbies)); n > 0 {
		return n
	}
	return max(1, len(p.HobbyEmbeddings))
}

// SharedHobbies 大小写不敏感的子串重叠，仅用于展示，与匹配度无关
func SharedHobbies(mine, theirs []string) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, h := range mine {
		lh := strings.ToLower(strings.TrimSpace(h))
		if lh == "" {
			continue
		}
		if _, dup := seen[lh]; dup {
			continue
		}
		for _, t := range theirs {
			lt := strings.ToLower(strings.TrimSpace(t))
			if lt == "" {
				continue
			}
			if strings.Contains(lt, lh) || strings.Contains(lh, lt) {
				seen[lh] = struct{}{}
				out = append(out, strings.TrimSpace(h))
				break
			}
		}
	}
	return out
}

func lowerSet(hobbies []string) map[string]struct{} {
	m := make(map[string]struct{}, len(hobbies))
	for _, h := range hobbies {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			m[h] = struct{}{}
		}
	}
	return m
}
