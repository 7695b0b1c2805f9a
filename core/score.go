package core

import "sort"

// ScoreVector 是单个候选物品上 "打分器名称 → 原始分" 的映射。
// 所有分值都是 [0,1] 的概率型量；key 缺失表示该打分器对此候选不可用。
// 请求内产生、合并后即丢弃，不做持久化。
type ScoreVector map[string]float64

// Clone 返回副本，重排阶段在副本上调整，避免影响原始打分。
func (v ScoreVector) Clone() ScoreVector {
	out := make(ScoreVector, len(v))
	for k, s := range v {
		out[k] = s
	}
	return out
}

// Clamp01 把 x 截断到 [0,1]。
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// ScoredItem 是最终排序结果中的一项：物品、终分与各打分器的贡献明细。
type ScoredItem struct {
	ItemID string `json:"item_id"`

	// Score 是集成后的终分，严格在 [0,1]
	Score float64 `json:"score"`

	// Breakdown 是参与合并的各打分器分值（重排调整后），用于 explain
	Breakdown map[string]float64 `json:"breakdown"`

	// Popularity 是排序时使用的热度值（tie-break 依据）
	Popularity float64 `json:"popularity"`
}

// 结果原因常量
const (
	// ReasonNoRecommendation 表示所有打分器与画像来源都不可用，显式返回空结果
	ReasonNoRecommendation = "no_recommendation"

	// ReasonDegraded 表示部分打分器不可用或画像退化，结果质量降级
	ReasonDegraded = "degraded"
)

// RecommendationResult 是一次请求的最终输出：有序物品序列 + 可解释明细。
type RecommendationResult struct {
	Items []ScoredItem `json:"items"`

	// SnapshotVersion 是本次请求使用的模型快照版本
	SnapshotVersion uint64 `json:"snapshot_version"`

	// Reason 为空表示正常；否则为 degraded / no_recommendation
	Reason string `json:"reason,omitempty"`
}

// SortItems 对结果做严格全序排序：终分降序 → 热度降序 → 物品 ID 升序。
// 确定性排序是可复现测试与分页的前提。
func SortItems(items []ScoredItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].Popularity != items[j].Popularity {
			return items[i].Popularity > items[j].Popularity
		}
		return items[i].ItemID < items[j].ItemID
	})
}
