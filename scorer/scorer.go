package scorer

import (
	"context"
	"math"

	"github.com/rushteam/recfuse/core"
)

// 打分器名称常量（集成权重配置的 key）
const (
	NameCF      = "cf"
	NameContent = "content"
	NameDeep    = "deep"
)

// Scorer 是打分策略的最小抽象：能力集 = {是否适用, 对候选集打分}。
// 集成合并只面向此接口编写，新增策略无需改动合并器。
//
// 约定：
//   - Score 只读快照与画像，不写共享状态，请求取消随时安全
//   - 返回 map 中缺失的候选表示该打分器对它不可用（缺失物品参数等）
//   - 所有分值都压缩到 [0,1]
type Scorer interface {
	Name() string

	// Applicable 判断打分器对该请求是否适用。
	// 冷启动/数据不足返回 false，而不是给出低置信度分数；
	// 调用方必须处理部分打分器不可用的情况。
	Applicable(rctx *core.RecommendContext, user *core.UserProfile, snapshot *core.ModelSnapshot) bool

	// Score 对候选集打分，返回 物品 ID → [0,1] 分值。
	Score(ctx context.Context, rctx *core.RecommendContext, user *core.UserProfile, candidates []string, snapshot *core.ModelSnapshot) (map[string]float64, error)
}

// sigmoid 把任意实数单调压缩到 (0,1)。
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// dotProduct 计算两个向量的点积，长度不一致时返回 0。
func dotProduct(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// cosineSparse 计算两个稀疏特征向量（map 形式）的余弦相似度。
func cosineSparse(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for k, va := range a {
		normA += va * va
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
