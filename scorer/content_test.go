package scorer

import (
	"context"
	"reflect"
	"testing"

	"github.com/rushteam/recfuse/core"
)

func contentSnapshot() *core.ModelSnapshot {
	snap := core.NewModelSnapshot(1)
	snap.ContentIndex["seed_scifi"] = map[string]float64{"scifi": 1.0}
	snap.ContentIndex["cand_scifi"] = map[string]float64{"scifi": 1.0}
	snap.ContentIndex["cand_mixed"] = map[string]float64{"scifi": 0.5, "drama": 0.5}
	snap.ContentIndex["cand_drama"] = map[string]float64{"drama": 1.0}
	return snap
}

func TestContentScorer_Applicable(t *testing.T) {
	s := &ContentScorer{TopKSeeds: 5}
	snap := contentSnapshot()

	tests := []struct {
		name string
		rctx *core.RecommendContext
		user *core.UserProfile
		want bool
	}{
		{
			name: "explicit seeds",
			rctx: &core.RecommendContext{SeedItems: []string{"seed_scifi"}},
			want: true,
		},
		{
			name: "no seeds, recent items fallback",
			rctx: &core.RecommendContext{},
			user: &core.UserProfile{RecentItems: []string{"seed_scifi"}},
			want: true,
		},
		{
			name: "no seed source at all",
			rctx: &core.RecommendContext{},
			user: core.DegenerateUserProfile("u"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Applicable(tt.rctx, tt.user, snap); got != tt.want {
				t.Errorf("Applicable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContentScorer_Score(t *testing.T) {
	s := &ContentScorer{TopKSeeds: 5}
	snap := contentSnapshot()
	rctx := &core.RecommendContext{SeedItems: []string{"seed_scifi"}}
	candidates := []string{"cand_scifi", "cand_mixed", "cand_drama", "unknown"}

	scores, err := s.Score(context.Background(), rctx, nil, candidates, snap)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	// identical feature vector → cosine 1
	if scores["cand_scifi"] < 0.999 {
		t.Errorf("cand_scifi = %v, want ~1.0", scores["cand_scifi"])
	}
	// ordering follows similarity to the seed
	if !(scores["cand_scifi"] > scores["cand_mixed"] && scores["cand_mixed"] > scores["cand_drama"]) {
		t.Errorf("similarity ordering broken: %v", scores)
	}
	// candidate absent from the content index is skipped
	if _, ok := scores["unknown"]; ok {
		t.Errorf("unknown candidate should be absent from scores")
	}
}

func TestContentScorer_Deterministic(t *testing.T) {
	s := &ContentScorer{TopKSeeds: 2}
	snap := contentSnapshot()
	rctx := &core.RecommendContext{SeedItems: []string{"seed_scifi", "cand_mixed"}}
	candidates := []string{"cand_scifi", "cand_drama"}

	first, err := s.Score(context.Background(), rctx, nil, candidates, snap)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := s.Score(context.Background(), rctx, nil, candidates, snap)
		if err != nil {
			t.Fatalf("Score() error = %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: scores differ: %v vs %v", i, first, again)
		}
	}
}

func TestContentScorer_ColdStartWithSeeds(t *testing.T) {
	// zero-interaction user with explicit seeds still gets scores
	s := &ContentScorer{TopKSeeds: 5}
	rctx := &core.RecommendContext{UserID: "brand_new", SeedItems: []string{"seed_scifi"}}
	user := core.DegenerateUserProfile("brand_new")

	scores, err := s.Score(context.Background(), rctx, user, []string{"cand_scifi"}, contentSnapshot())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(scores) == 0 {
		t.Fatal("cold-start user with seeds should receive scores")
	}
}

func TestContentScorer_NoSeedFeatures(t *testing.T) {
	s := &ContentScorer{TopKSeeds: 5}
	rctx := &core.RecommendContext{SeedItems: []string{"not_indexed"}}

	_, err := s.Score(context.Background(), rctx, nil, []string{"cand_scifi"}, contentSnapshot())
	if !core.IsNotApplicable(err) {
		t.Errorf("Score() error = %v, want NOT_APPLICABLE", err)
	}
}
