package repository

import (
	"math/rand"
	"time"

	rediskey "HobbyChat/consts/redisKey"
)

// hiddenForClause 排除被 ? 仅自己删除的消息
const hiddenForClause = "(deleted_for IS NULL OR NOT JSON_CONTAINS(deleted_for, JSON_QUOTE(?)))"

// getRandomExpireTime 生成带随机抖动的过期时间（±10%），避免缓存同时失效
func getRandomExpireTime(baseExpire time.Duration) time.Duration {
	jitterRange := float64(baseExpire) * 0.1
	jitter := time.Duration(rand.Float64()*jitterRange*2 - jitterRange)
	return baseExpire + jitter
}

// getRandomBool 以 probability 的概率返回 true
func getRandomBool(probability float64) bool {
	return rand.Float64() < probability
}

// stripEmpty 去掉空集合占位成员
func stripEmpty(members []string) []string {
	out := members[:0:0]
	for _, m := range members {
		if m != rediskey.EmptyMember && m != "" {
			out = append(out, m)
		}
	}
	return out
}

// uniqueStrings 去重并保持首次出现顺序
func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
