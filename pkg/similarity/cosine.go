// Package similarity 向量相似度计算。
package similarity

import (
	"fmt"
	"math"
)

// Cosine 计算两个等长向量的余弦相似度。
// 任一向量模长为 0 时返回 ok=false，由调用方套用默认分；长度不一致属于上游向量服务契约错误，直接 panic。
func Cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) {
		panic(fmt.Sprintf("similarity: vector length mismatch %d != %d", len(a), len(b)))
	}
	if len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, false
	}
	// 浮点误差可能略微越界
	return math.Max(-1, math.Min(1, sim)), true
}

// Percent 把相似度换算为四舍五入的百分比整数
func Percent(sim float64) int {
	return int(math.Round(sim * 100))
}

// Clamp 把分数限制在 [lo, hi]
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
