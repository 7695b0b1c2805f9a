package scorer

import (
	"context"

	"github.com/rushteam/recfuse/core"
)

// DeepScorer 是深度嵌入打分器：小前馈打分头在 [用户嵌入 ‖ 物品嵌入] 上
// 学到的非线性亲和度，输出经 logistic 压缩到 [0,1]。
//
// 工程特征：
//   - 单候选成本最高：编排器把全部候选合成一次批量调用，
//     且超过 candidate_cap_for_deep_scorer 的候选集先用廉价打分器预筛，
//     这是显式的性能契约而不是实现自由裁量
//   - 可解释性：弱（黑盒）
type DeepScorer struct{}

func (s *DeepScorer) Name() string { return NameDeep }

// Applicable 需要打分头参数、物品嵌入表，以及用户侧嵌入
// （画像嵌入优先，否则查快照嵌入表）。
func (s *DeepScorer) Applicable(rctx *core.RecommendContext, user *core.UserProfile, snapshot *core.ModelSnapshot) bool {
	if snapshot == nil || snapshot.Head == nil || len(snapshot.ItemEmbeddings) == 0 {
		return false
	}
	return len(s.userEmbedding(rctx, user, snapshot)) > 0
}

// Score 是批量求值：一次调用对全部候选做前向传播。
func (s *DeepScorer) Score(
	_ context.Context,
	rctx *core.RecommendContext,
	user *core.UserProfile,
	candidates []string,
	snapshot *core.ModelSnapshot,
) (map[string]float64, error) {
	userEmb := s.userEmbedding(rctx, user, snapshot)
	if len(userEmb) == 0 {
		return nil, core.NewDomainError(core.ModuleScorer, core.ErrorCodeNotApplicable, "deep: no user embedding")
	}

	head := snapshot.Head
	scores := make(map[string]float64, len(candidates))
	for _, itemID := range candidates {
		itemEmb, ok := snapshot.ItemEmbeddings[itemID]
		if !ok || len(itemEmb) == 0 {
			continue
		}
		input := make([]float64, 0, len(userEmb)+len(itemEmb))
		input = append(input, userEmb...)
		input = append(input, itemEmb...)
		scores[itemID] = sigmoid(forward(head, input))
	}
	return scores, nil
}

func (s *DeepScorer) userEmbedding(rctx *core.RecommendContext, user *core.UserProfile, snapshot *core.ModelSnapshot) []float64 {
	if user != nil && len(user.Embedding) > 0 {
		return user.Embedding
	}
	if rctx != nil {
		if emb, ok := snapshot.UserEmbeddings[rctx.UserID]; ok {
			return emb
		}
	}
	return nil
}

// forward 做一次前向传播：隐层 ReLU，输出层线性（压缩由调用方做）。
// 输入维度与权重不符时按权重维度截断/补零。
func forward(head *core.ScoringHead, input []float64) float64 {
	hidden := make([]float64, len(head.W1))
	for j, weights := range head.W1 {
		sum := head.B1[j]
		for k, w := range weights {
			if k < len(input) {
				sum += w * input[k]
			}
		}
		if sum < 0 {
			sum = 0 // ReLU
		}
		hidden[j] = sum
	}

	out := head.B2
	for j, w := range head.W2 {
		if j < len(hidden) {
			out += w * hidden[j]
		}
	}
	return out
}
