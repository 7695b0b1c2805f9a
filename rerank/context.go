package rerank

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/recfuse/core"
)

// Rule 是上下文调权规则：条件命中时对打分做乘法/加法调整。
//
// 条件使用 CEL (Common Expression Language) 表达式，可访问：
//   - ctx.hour                     0-23 小时桶
//   - ctx.device                   设备类型（mobile / desktop / ...）
//   - ctx.session_recency          距上次会话活动的秒数
//   - item.id                      候选物品 ID
//   - item.popularity              候选物品热度
//
// 示例：
//   - `ctx.hour >= 22 || ctx.hour <= 6`     → 深夜时段
//   - `ctx.device == "mobile"`              → 移动端
//   - `ctx.session_recency < 300`           → 活跃会话
type Rule struct {
	Name string `yaml:"name" json:"name"`

	// When 是 CEL 条件表达式，空表示恒真
	When string `yaml:"when" json:"when"`

	// Scorer 限定只调整某个打分器的分量，空表示调整全部
	Scorer string `yaml:"scorer" json:"scorer"`

	// Multiply 是乘法系数（0 视为 1，不调整）
	Multiply float64 `yaml:"multiply" json:"multiply"`

	// Add 是加法偏移
	Add float64 `yaml:"add" json:"add"`
}

type compiledRule struct {
	rule Rule
	prg  cel.Program // nil 表示恒真
}

// ContextReRanker 按请求时上下文（时段/设备/会话新近度）调整各打分器的原始分。
//
// 约束：
//   - 只调权，绝不引入新候选
//   - 输出经截断保持在 [0,1]
//   - 规则求值失败按未命中处理，不阻断请求
type ContextReRanker struct {
	rules []compiledRule
}

// NewContextReRanker 编译规则表。非法的 CEL 表达式在构造期报错，而不是请求期。
func NewContextReRanker(rules []Rule) (*ContextReRanker, error) {
	env, err := cel.NewEnv(
		cel.Variable("ctx", cel.DynType),
		cel.Variable("item", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cr := compiledRule{rule: r}
		if r.When != "" {
			ast, issues := env.Compile(r.When)
			if issues != nil && issues.Err() != nil {
				return nil, fmt.Errorf("rule %q: compile %q: %w", r.Name, r.When, issues.Err())
			}
			prg, err := env.Program(ast)
			if err != nil {
				return nil, fmt.Errorf("rule %q: program: %w", r.Name, err)
			}
			cr.prg = prg
		}
		compiled = append(compiled, cr)
	}
	return &ContextReRanker{rules: compiled}, nil
}

// Apply 对每个候选的 ScoreVector 应用命中的规则，返回调整后的副本。
// 候选集合不变：不新增、不删除。
func (r *ContextReRanker) Apply(
	rctx *core.RecommendContext,
	vectors map[string]core.ScoreVector,
	popularity map[string]float64,
) map[string]core.ScoreVector {
	if len(r.rules) == 0 {
		return vectors
	}

	ctxInput := map[string]any{
		"hour":            rctx.HourOfDay,
		"device":          rctx.Device,
		"session_recency": rctx.SessionRecencySeconds,
	}

	out := make(map[string]core.ScoreVector, len(vectors))
	for itemID, vector := range vectors {
		adjusted := vector.Clone()
		itemInput := map[string]any{
			"id":         itemID,
			"popularity": popularity[itemID],
		}
		for _, cr := range r.rules {
			if !cr.matches(ctxInput, itemInput) {
				continue
			}
			for name, score := range adjusted {
				if cr.rule.Scorer != "" && cr.rule.Scorer != name {
					continue
				}
				mult := cr.rule.Multiply
				if mult == 0 {
					mult = 1
				}
				adjusted[name] = core.Clamp01(score*mult + cr.rule.Add)
			}
		}
		out[itemID] = adjusted
	}
	return out
}

func (cr *compiledRule) matches(ctxInput, itemInput map[string]any) bool {
	if cr.prg == nil {
		return true
	}
	val, _, err := cr.prg.Eval(map[string]any{
		"ctx":  ctxInput,
		"item": itemInput,
	})
	if err != nil {
		return false
	}
	matched, ok := val.Value().(bool)
	return ok && matched
}
