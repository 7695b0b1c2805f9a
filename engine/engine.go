package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/recfuse/core"
	"github.com/rushteam/recfuse/ensemble"
	"github.com/rushteam/recfuse/learning"
	"github.com/rushteam/recfuse/pkg/conv"
	"github.com/rushteam/recfuse/profile"
	"github.com/rushteam/recfuse/rerank"
	"github.com/rushteam/recfuse/scorer"
)

// Ack 是反馈提交的回执。
type Ack struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"` // 拒绝时的错误代码（如 INVALID_INPUT）
}

// Options 是编排器的依赖注入面。
type Options struct {
	Profiles *profile.Store
	Learner  *learning.Engine
	ReRanker *rerank.ContextReRanker // nil 表示无上下文调权
	Scorers  []scorer.Scorer         // nil 则按配置构建默认三件套
	Logger   zerolog.Logger
}

// Engine 是推荐编排器（门面）。
//
// 服务流（单向）：请求 → 画像解析 → 适用打分器并发打分 → 上下文调权
// → 集成合并 → 截断返回。打分只读当前 active 快照，无共享写，天然可并行。
//
// 学习流（单向）：反馈 → 持续学习引擎 → 新快照 → 打分器。
// 两条流只在快照换代这一个点上耦合。
type Engine struct {
	cfg      core.EngineConfig
	profiles *profile.Store
	learner  *learning.Engine
	reranker *rerank.ContextReRanker
	scorers  []scorer.Scorer
	combiner *ensemble.Combiner
	logger   zerolog.Logger
}

// New 创建编排器。cfg 在此处定格，之后不再变化。
func New(cfg core.EngineConfig, opts Options) *Engine {
	cfg = cfg.Normalize()
	e := &Engine{
		cfg:      cfg,
		profiles: opts.Profiles,
		learner:  opts.Learner,
		reranker: opts.ReRanker,
		scorers:  opts.Scorers,
		combiner: ensemble.NewCombiner(cfg.EnsembleWeights),
		logger:   opts.Logger,
	}
	if e.learner == nil {
		e.learner = learning.NewEngine(cfg, learning.Options{
			Profiles: opts.Profiles,
			Logger:   opts.Logger,
		})
	}
	if e.scorers == nil {
		e.scorers = []scorer.Scorer{
			&scorer.CFScorer{MinInteractions: cfg.MinInteractionsForCF},
			&scorer.ContentScorer{TopKSeeds: cfg.TopKSeeds},
			&scorer.DeepScorer{},
		}
	}
	return e
}

// Recommend 处理一次推荐请求。
//
// 降级语义：画像缺失用退化画像，打分器不适用就跳过（权重重归一化兜底），
// 除非所有打分器都不可用，否则总是返回结果；全不可用时返回显式的
// no_recommendation 空结果而不是报错。
func (e *Engine) Recommend(ctx context.Context, rctx *core.RecommendContext) (*core.RecommendationResult, error) {
	if rctx == nil || len(rctx.Candidates) == 0 {
		return &core.RecommendationResult{Reason: core.ReasonNoRecommendation}, nil
	}

	// 请求全程使用开始时的快照引用：换代只影响之后开始的请求
	snap := e.learner.Active()

	user := e.resolveUser(ctx, rctx.UserID)
	if user.Stale {
		e.logger.Debug().Str("user_id", rctx.UserID).Msg("stale user profile, degraded quality")
	}

	popularity := e.resolvePopularity(ctx, rctx.Candidates, snap)

	// 深度打分器最贵，单列到预筛之后；其余打分器并发执行
	var deep scorer.Scorer
	cheap := make([]scorer.Scorer, 0, len(e.scorers))
	for _, s := range e.scorers {
		if s.Name() == scorer.NameDeep {
			deep = s
			continue
		}
		cheap = append(cheap, s)
	}

	var (
		mu      sync.Mutex
		vectors = make(map[string]core.ScoreVector, len(rctx.Candidates))
		applied int
	)
	merge := func(name string, scores map[string]float64) {
		mu.Lock()
		defer mu.Unlock()
		applied++
		for itemID, sc := range scores {
			if vectors[itemID] == nil {
				vectors[itemID] = make(core.ScoreVector, len(e.scorers))
			}
			vectors[itemID][name] = core.Clamp01(sc)
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, s := range cheap {
		if !s.Applicable(rctx, user, snap) {
			continue
		}
		sc := s
		eg.Go(func() error {
			scores, err := sc.Score(egCtx, rctx, user, rctx.Candidates, snap)
			if err != nil {
				// 打分失败按不可用处理，不中断其余打分器
				e.logger.Warn().Err(err).Str("scorer", sc.Name()).Msg("scorer unavailable")
				return nil
			}
			merge(sc.Name(), scores)
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		// 超时/取消：打分只读，放弃在途调用无副作用
		return nil, err
	}

	if deep != nil && deep.Applicable(rctx, user, snap) {
		cands := e.prefilterForDeep(rctx.Candidates, vectors, popularity)
		scores, err := deep.Score(ctx, rctx, user, cands, snap)
		if err != nil {
			e.logger.Warn().Err(err).Str("scorer", deep.Name()).Msg("scorer unavailable")
		} else {
			merge(deep.Name(), scores)
		}
	}

	if applied == 0 {
		return &core.RecommendationResult{
			SnapshotVersion: snap.Version,
			Reason:          core.ReasonNoRecommendation,
		}, nil
	}

	if e.reranker != nil {
		vectors = e.reranker.Apply(rctx, vectors, popularity)
	}

	items := e.combinerFor(rctx).Combine(vectors, popularity)
	if len(items) == 0 {
		// 打分器都适用却没有一个候选拿到分数，集成结果为空
		return &core.RecommendationResult{SnapshotVersion: snap.Version, Reason: core.ReasonNoRecommendation}, nil
	}
	if rctx.Size > 0 && len(items) > rctx.Size {
		items = items[:rctx.Size]
	}

	result := &core.RecommendationResult{
		Items:           items,
		SnapshotVersion: snap.Version,
	}
	if applied < len(e.scorers) || user.Missing || user.Stale {
		result.Reason = core.ReasonDegraded
	}
	return result, nil
}

// Feedback 验证事件形状后转交持续学习引擎，立即返回回执。
// 重训练在后台进行，提交方永不被阻塞。
func (e *Engine) Feedback(ctx context.Context, ev core.InteractionEvent) Ack {
	if err := e.learner.Submit(ctx, ev); err != nil {
		reason := core.ErrorCodeInternalError
		if domainErr := core.GetDomainError(err); domainErr != nil {
			reason = domainErr.Code
		}
		return Ack{Accepted: false, Reason: reason}
	}
	return Ack{Accepted: true}
}

// combinerFor 返回本次请求使用的集成器。请求参数中携带
// ensemble_weights 覆盖时（实验分流场景）构建请求级集成器，否则复用默认。
func (e *Engine) combinerFor(rctx *core.RecommendContext) *ensemble.Combiner {
	raw := conv.ConfigGet[map[string]any](rctx.Params, "ensemble_weights", nil)
	if len(raw) == 0 {
		return e.combiner
	}
	weights := conv.MapToFloat64(raw)
	if len(weights) == 0 {
		return e.combiner
	}
	return ensemble.NewCombiner(weights)
}

// Run 启动持续学习引擎的后台评估循环，直到 ctx 取消。
// 通常在独立协程里调用：go eng.Run(ctx, 30*time.Second)。
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	e.learner.Run(ctx, interval)
}

// Close 优雅停机：刷写持续学习引擎的交互日志。
func (e *Engine) Close(ctx context.Context) error {
	return e.learner.Close(ctx)
}

// resolveUser 解析用户画像；存储不可用时退回退化画像（服务永不因画像失败）。
func (e *Engine) resolveUser(ctx context.Context, userID string) *core.UserProfile {
	if e.profiles == nil {
		return core.DegenerateUserProfile(userID)
	}
	user, err := e.profiles.GetUserProfile(ctx, userID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("profile store unavailable, using degenerate profile")
		return core.DegenerateUserProfile(userID)
	}
	return user
}

// resolvePopularity 合成物品热度：快照热度优先，画像热度兜底。
func (e *Engine) resolvePopularity(ctx context.Context, candidates []string, snap *core.ModelSnapshot) map[string]float64 {
	popularity := make(map[string]float64, len(candidates))
	missing := make([]string, 0)
	for _, id := range candidates {
		if p, ok := snap.Popularity[id]; ok {
			popularity[id] = p
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 || e.profiles == nil {
		return popularity
	}
	items, err := e.profiles.BatchGetItemProfiles(ctx, missing)
	if err != nil {
		return popularity
	}
	for id, item := range items {
		popularity[id] = item.Popularity
	}
	return popularity
}

// prefilterForDeep 执行深度打分器的候选上限契约：超过 cap 时
// 先按 CF 分（不可用时按热度）取 TopN，再交给深度打分器批量求值。
func (e *Engine) prefilterForDeep(candidates []string, vectors map[string]core.ScoreVector, popularity map[string]float64) []string {
	limit := e.cfg.CandidateCapForDeepScorer
	if len(candidates) <= limit {
		return candidates
	}

	ranked := make([]string, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, iok := vectors[ranked[i]][scorer.NameCF]
		sj, jok := vectors[ranked[j]][scorer.NameCF]
		if iok && jok && si != sj {
			return si > sj
		}
		if iok != jok {
			return iok
		}
		if popularity[ranked[i]] != popularity[ranked[j]] {
			return popularity[ranked[i]] > popularity[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	return ranked[:limit]
}
