package ensemble

import (
	"github.com/rushteam/recfuse/core"
)

// Combiner 把多个打分器的输出合并为一个有序列表。
//
// 关键正确性约定：终分 = 可用打分器的加权平均，权重在可用子集上
// 重归一化到和为 1。某个打分器不可用绝不能静默地把结果拉向 0，
// 它的权重按比例分摊给其余打分器。
//
// 排序是严格全序：终分降序 → 热度降序 → 物品 ID 升序，
// 相同输入的两次运行产出完全相同的顺序（可复现测试与分页的前提）。
type Combiner struct {
	// Weights 是配置的各打分器集成权重（scorer name → weight）
	Weights map[string]float64
}

func NewCombiner(weights map[string]float64) *Combiner {
	return &Combiner{Weights: weights}
}

// Combine 合并打分结果。
//
// 参数：
//   - vectors: 候选物品 → ScoreVector（key 缺失表示该打分器对此候选不可用）
//   - popularity: 物品热度（tie-break 依据），缺失按 0
//
// 无任何可用打分的候选被剔除；返回结果已排序。
func (c *Combiner) Combine(vectors map[string]core.ScoreVector, popularity map[string]float64) []core.ScoredItem {
	items := make([]core.ScoredItem, 0, len(vectors))

	for itemID, vector := range vectors {
		var weightSum float64
		for name := range vector {
			if w, ok := c.Weights[name]; ok && w > 0 {
				weightSum += w
			}
		}
		if weightSum == 0 {
			continue
		}

		// 在可用子集上重归一化后的加权平均
		var final float64
		breakdown := make(map[string]float64, len(vector))
		for name, score := range vector {
			w, ok := c.Weights[name]
			if !ok || w <= 0 {
				continue
			}
			final += score * (w / weightSum)
			breakdown[name] = score
		}

		items = append(items, core.ScoredItem{
			ItemID:     itemID,
			Score:      core.Clamp01(final),
			Breakdown:  breakdown,
			Popularity: popularity[itemID],
		})
	}

	core.SortItems(items)
	return items
}
