package rerank

import (
	"testing"

	"github.com/rushteam/recfuse/core"
)

func TestNewContextReRanker_CompileError(t *testing.T) {
	_, err := NewContextReRanker([]Rule{
		{Name: "broken", When: "ctx.hour >=", Multiply: 1.2},
	})
	if err == nil {
		t.Fatal("NewContextReRanker() should fail on invalid expression")
	}
}

func TestContextReRanker_Apply(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
		rctx  *core.RecommendContext
		in    core.ScoreVector
		want  core.ScoreVector
	}{
		{
			name: "matching rule multiplies all components",
			rules: []Rule{
				{Name: "night", When: "ctx.hour >= 22 || ctx.hour <= 5", Multiply: 2.0},
			},
			rctx: &core.RecommendContext{HourOfDay: 23},
			in:   core.ScoreVector{"cf": 0.3, "content": 0.4},
			want: core.ScoreVector{"cf": 0.6, "content": 0.8},
		},
		{
			name: "non-matching rule leaves scores unchanged",
			rules: []Rule{
				{Name: "night", When: "ctx.hour >= 22", Multiply: 2.0},
			},
			rctx: &core.RecommendContext{HourOfDay: 12},
			in:   core.ScoreVector{"cf": 0.3},
			want: core.ScoreVector{"cf": 0.3},
		},
		{
			name: "scorer-targeted rule adjusts only that component",
			rules: []Rule{
				{Name: "mobile_content", When: `ctx.device == "mobile"`, Scorer: "content", Add: 0.1},
			},
			rctx: &core.RecommendContext{Device: "mobile"},
			in:   core.ScoreVector{"cf": 0.5, "content": 0.5},
			want: core.ScoreVector{"cf": 0.5, "content": 0.6},
		},
		{
			name: "adjustment clamped to [0,1]",
			rules: []Rule{
				{Name: "boost", Multiply: 10.0},
			},
			rctx: &core.RecommendContext{},
			in:   core.ScoreVector{"cf": 0.9},
			want: core.ScoreVector{"cf": 1.0},
		},
		{
			name: "active session rule on session recency",
			rules: []Rule{
				{Name: "active", When: "ctx.session_recency < 300", Add: 0.2},
			},
			rctx: &core.RecommendContext{SessionRecencySeconds: 60},
			in:   core.ScoreVector{"deep": 0.1},
			want: core.ScoreVector{"deep": 0.3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, err := NewContextReRanker(tt.rules)
			if err != nil {
				t.Fatalf("NewContextReRanker() error = %v", err)
			}

			out := rr.Apply(tt.rctx, map[string]core.ScoreVector{"i1": tt.in}, nil)
			got := out["i1"]
			if len(got) != len(tt.want) {
				t.Fatalf("vector = %v, want %v", got, tt.want)
			}
			for name, w := range tt.want {
				if g := got[name]; g < w-1e-9 || g > w+1e-9 {
					t.Errorf("component %q = %v, want %v", name, g, w)
				}
			}
		})
	}
}

func TestContextReRanker_NeverChangesCandidateSet(t *testing.T) {
	rr, err := NewContextReRanker([]Rule{
		{Name: "boost_popular", When: "item.popularity > 10.0", Multiply: 1.5},
	})
	if err != nil {
		t.Fatalf("NewContextReRanker() error = %v", err)
	}

	in := map[string]core.ScoreVector{
		"a": {"cf": 0.5},
		"b": {"cf": 0.5},
	}
	out := rr.Apply(&core.RecommendContext{}, in, map[string]float64{"a": 100})

	if len(out) != len(in) {
		t.Fatalf("candidate count changed: %d → %d", len(in), len(out))
	}
	for id := range in {
		if _, ok := out[id]; !ok {
			t.Errorf("candidate %q dropped by rerank", id)
		}
	}
	// input vectors stay untouched (adjustment works on copies)
	if in["a"]["cf"] != 0.5 {
		t.Errorf("input vector mutated: %v", in["a"])
	}
	if out["a"]["cf"] != 0.75 {
		t.Errorf("popular item not boosted: %v", out["a"])
	}
	if out["b"]["cf"] != 0.5 {
		t.Errorf("unpopular item should be unchanged: %v", out["b"])
	}
}

func TestContextReRanker_EvalFailureIsNonMatch(t *testing.T) {
	// 条件引用不存在的 key：求值失败按未命中处理，不阻断请求
	rr, err := NewContextReRanker([]Rule{
		{Name: "odd", When: "ctx.no_such_signal > 1", Multiply: 2.0},
	})
	if err != nil {
		t.Fatalf("NewContextReRanker() error = %v", err)
	}

	out := rr.Apply(&core.RecommendContext{Device: "desktop"}, map[string]core.ScoreVector{
		"i1": {"cf": 0.4},
	}, nil)
	if out["i1"]["cf"] != 0.4 {
		t.Errorf("non-matching rule changed score: %v", out["i1"])
	}
}
