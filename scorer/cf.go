package scorer

import (
	"context"

	"github.com/rushteam/recfuse/core"
)

// CFScorer 是基于矩阵分解（Matrix Factorization）的协同过滤打分器。
//
// 核心思想：用户-物品交互矩阵分解为用户隐向量和物品隐向量，
// 亲和度 = 用户隐向量 · 物品隐向量，经 logistic 压缩到 [0,1]。
//
// 工程特征：
//   - 实时性：好（离线训练，在线查表 + 点积）
//   - 计算复杂度：低
//   - 冷启动：差。历史交互少于 MinInteractions 的用户直接 not-applicable，
//     由集成合并的权重重归一化兜底，绝不返回低置信度分数
type CFScorer struct {
	// MinInteractions 是适用所需的最小历史交互数
	MinInteractions int
}

func (s *CFScorer) Name() string { return NameCF }

// Applicable 要求快照里有该用户的隐向量，且训练时的交互数达到门槛。
// 快照缺少用户因子（冷启动）同样是 not-applicable，绝不是致命错误。
func (s *CFScorer) Applicable(rctx *core.RecommendContext, _ *core.UserProfile, snapshot *core.ModelSnapshot) bool {
	if snapshot == nil || rctx == nil || rctx.UserID == "" {
		return false
	}
	if _, ok := snapshot.UserFactors[rctx.UserID]; !ok {
		return false
	}
	return snapshot.UserInteractions[rctx.UserID] >= s.MinInteractions
}

func (s *CFScorer) Score(
	_ context.Context,
	rctx *core.RecommendContext,
	_ *core.UserProfile,
	candidates []string,
	snapshot *core.ModelSnapshot,
) (map[string]float64, error) {
	userVector, ok := snapshot.UserFactors[rctx.UserID]
	if !ok || len(userVector) == 0 {
		return nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeNotApplicable, "cf: no user factor in snapshot")
	}

	scores := make(map[string]float64, len(candidates))
	for _, itemID := range candidates {
		itemVector, ok := snapshot.ItemFactors[itemID]
		if !ok {
			// 物品因子缺失：该候选在 CF 侧不可用，交给其他打分器
			continue
		}
		scores[itemID] = sigmoid(dotProduct(userVector, itemVector))
	}
	return scores, nil
}
