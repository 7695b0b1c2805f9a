package scorer

import (
	"context"
	"reflect"
	"testing"

	"github.com/rushteam/recfuse/core"
)

// testHead 是单隐神经元的打分头：hidden = ReLU(sum(input)), out = hidden
func testHead(inputDim int) *core.ScoringHead {
	w1 := make([]float64, inputDim)
	for i := range w1 {
		w1[i] = 1.0
	}
	return &core.ScoringHead{
		W1: [][]float64{w1},
		B1: []float64{0},
		W2: []float64{1.0},
		B2: 0,
	}
}

func deepSnapshot() *core.ModelSnapshot {
	snap := core.NewModelSnapshot(1)
	snap.Head = testHead(4)
	snap.UserEmbeddings["u1"] = []float64{0.5, 0.5}
	snap.ItemEmbeddings["i_pos"] = []float64{1.0, 1.0}
	snap.ItemEmbeddings["i_zero"] = []float64{-0.5, -0.5}
	return snap
}

func TestDeepScorer_Applicable(t *testing.T) {
	s := &DeepScorer{}

	tests := []struct {
		name string
		snap func() *core.ModelSnapshot
		rctx *core.RecommendContext
		user *core.UserProfile
		want bool
	}{
		{
			name: "snapshot embedding for user",
			snap: deepSnapshot,
			rctx: &core.RecommendContext{UserID: "u1"},
			want: true,
		},
		{
			name: "profile embedding preferred over snapshot",
			snap: deepSnapshot,
			rctx: &core.RecommendContext{UserID: "unknown"},
			user: &core.UserProfile{Embedding: []float64{0.1, 0.2}},
			want: true,
		},
		{
			name: "no user embedding anywhere",
			snap: deepSnapshot,
			rctx: &core.RecommendContext{UserID: "unknown"},
			user: core.DegenerateUserProfile("unknown"),
			want: false,
		},
		{
			name: "no scoring head",
			snap: func() *core.ModelSnapshot {
				snap := deepSnapshot()
				snap.Head = nil
				return snap
			},
			rctx: &core.RecommendContext{UserID: "u1"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Applicable(tt.rctx, tt.user, tt.snap()); got != tt.want {
				t.Errorf("Applicable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeepScorer_Score(t *testing.T) {
	s := &DeepScorer{}
	snap := deepSnapshot()
	rctx := &core.RecommendContext{UserID: "u1"}

	scores, err := s.Score(context.Background(), rctx, nil, []string{"i_pos", "i_zero", "no_emb"}, snap)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	if _, ok := scores["no_emb"]; ok {
		t.Errorf("candidate without embedding should be absent from scores")
	}
	for id, sc := range scores {
		if sc < 0 || sc > 1 {
			t.Errorf("score[%s] = %v out of [0,1]", id, sc)
		}
	}
	// i_pos: ReLU(0.5+0.5+1+1)=3 → sigmoid(3); i_zero: ReLU(0.5+0.5-0.5-0.5)=0 → sigmoid(0)=0.5
	if scores["i_pos"] <= scores["i_zero"] {
		t.Errorf("i_pos=%v should exceed i_zero=%v", scores["i_pos"], scores["i_zero"])
	}
	if scores["i_zero"] != 0.5 {
		t.Errorf("i_zero = %v, want 0.5", scores["i_zero"])
	}
}

func TestDeepScorer_BatchDeterministic(t *testing.T) {
	s := &DeepScorer{}
	snap := deepSnapshot()
	rctx := &core.RecommendContext{UserID: "u1"}
	candidates := []string{"i_pos", "i_zero"}

	first, err := s.Score(context.Background(), rctx, nil, candidates, snap)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	again, err := s.Score(context.Background(), rctx, nil, candidates, snap)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if !reflect.DeepEqual(first, again) {
		t.Errorf("scores differ across runs: %v vs %v", first, again)
	}
}
