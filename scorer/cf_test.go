package scorer

import (
	"context"
	"testing"

	"github.com/rushteam/recfuse/core"
)

func cfSnapshot() *core.ModelSnapshot {
	snap := core.NewModelSnapshot(1)
	snap.UserFactors["warm_user"] = []float64{0.5, 0.5}
	snap.UserFactors["fresh_user"] = []float64{0.1, 0.1}
	snap.UserInteractions["warm_user"] = 10
	snap.UserInteractions["fresh_user"] = 2
	snap.ItemFactors["i1"] = []float64{1.0, 0.0}
	snap.ItemFactors["i2"] = []float64{-1.0, -1.0}
	return snap
}

func TestCFScorer_Applicable(t *testing.T) {
	s := &CFScorer{MinInteractions: 5}
	snap := cfSnapshot()

	tests := []struct {
		name   string
		userID string
		want   bool
	}{
		{"warm user with enough history", "warm_user", true},
		{"user below interaction gate", "fresh_user", false},
		{"user absent from snapshot", "nobody", false},
		{"empty user id", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rctx := &core.RecommendContext{UserID: tt.userID}
			if got := s.Applicable(rctx, nil, snap); got != tt.want {
				t.Errorf("Applicable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCFScorer_Score(t *testing.T) {
	s := &CFScorer{MinInteractions: 5}
	snap := cfSnapshot()
	rctx := &core.RecommendContext{UserID: "warm_user"}

	scores, err := s.Score(context.Background(), rctx, nil, []string{"i1", "i2", "no_factor"}, snap)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	// candidate without item factor is skipped, not zero-scored
	if _, ok := scores["no_factor"]; ok {
		t.Errorf("candidate without item factor should be absent from scores")
	}
	for id, sc := range scores {
		if sc < 0 || sc > 1 {
			t.Errorf("score[%s] = %v out of [0,1]", id, sc)
		}
	}
	// positive inner product beats negative inner product
	if scores["i1"] <= scores["i2"] {
		t.Errorf("scores i1=%v should exceed i2=%v", scores["i1"], scores["i2"])
	}
}

func TestCFScorer_ScoreMissingUserFactor(t *testing.T) {
	s := &CFScorer{MinInteractions: 5}
	rctx := &core.RecommendContext{UserID: "nobody"}

	_, err := s.Score(context.Background(), rctx, nil, []string{"i1"}, cfSnapshot())
	if !core.IsNotApplicable(err) {
		t.Errorf("Score() error = %v, want NOT_APPLICABLE", err)
	}
}
