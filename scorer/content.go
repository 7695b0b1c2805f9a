package scorer

import (
	"context"
	"sort"

	"github.com/rushteam/recfuse/core"
)

// ContentScorer 是基于内容的打分器（Content-Based Scoring）。
//
// 核心思想："用户喜欢具有某些特征的物品，相似特征的候选分高"。
// 种子物品的特征向量与候选特征向量做余弦相似度，
// 取 top-k 最相似种子的均值作为候选终分。
//
// 确定性：相同快照 + 相同种子集 → 相同输出，无任何随机性。
// 冷启动友好：零交互用户只要带显式种子就能得到非空结果。
type ContentScorer struct {
	// TopKSeeds 聚合时取的最相似种子数
	TopKSeeds int
}

func (s *ContentScorer) Name() string { return NameContent }

// Applicable 需要种子来源（显式种子优先，否则用户最近交互历史）和内容索引。
func (s *ContentScorer) Applicable(rctx *core.RecommendContext, user *core.UserProfile, snapshot *core.ModelSnapshot) bool {
	if snapshot == nil || len(snapshot.ContentIndex) == 0 {
		return false
	}
	return len(s.seedItems(rctx, user)) > 0
}

func (s *ContentScorer) Score(
	_ context.Context,
	rctx *core.RecommendContext,
	user *core.UserProfile,
	candidates []string,
	snapshot *core.ModelSnapshot,
) (map[string]float64, error) {
	seeds := s.seedItems(rctx, user)

	// 取出种子的特征向量（索引缺失的种子跳过）
	seedVectors := make([]map[string]float64, 0, len(seeds))
	for _, id := range seeds {
		if features, ok := snapshot.ContentIndex[id]; ok && len(features) > 0 {
			seedVectors = append(seedVectors, features)
		}
	}
	if len(seedVectors) == 0 {
		return nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeNotApplicable, "content: no seed features in snapshot")
	}

	topK := s.TopKSeeds
	if topK <= 0 {
		topK = 5
	}

	scores := make(map[string]float64, len(candidates))
	for _, itemID := range candidates {
		features, ok := snapshot.ContentIndex[itemID]
		if !ok || len(features) == 0 {
			continue
		}

		sims := make([]float64, 0, len(seedVectors))
		for _, seed := range seedVectors {
			sim := cosineSparse(seed, features)
			if sim < 0 {
				sim = 0
			}
			sims = append(sims, sim)
		}

		// top-k 相似种子的均值
		sort.Sort(sort.Reverse(sort.Float64Slice(sims)))
		k := topK
		if k > len(sims) {
			k = len(sims)
		}
		var sum float64
		for i := 0; i < k; i++ {
			sum += sims[i]
		}
		scores[itemID] = core.Clamp01(sum / float64(k))
	}
	return scores, nil
}

// seedItems 返回种子物品：显式种子优先，否则退回用户最近交互历史。
func (s *ContentScorer) seedItems(rctx *core.RecommendContext, user *core.UserProfile) []string {
	if rctx != nil && len(rctx.SeedItems) > 0 {
		return rctx.SeedItems
	}
	if user != nil && len(user.RecentItems) > 0 {
		return user.RecentItems
	}
	return nil
}
