package learning

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/rushteam/recfuse/core"
)

func trainEvents() []core.InteractionEvent {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []core.InteractionEvent{
		{UserID: "u1", ItemID: "i1", Kind: core.EventKindClick, Strength: 1.0, Timestamp: base},
		{UserID: "u1", ItemID: "i2", Kind: core.EventKindShare, Strength: 1.0, Timestamp: base.Add(time.Minute)},
		{UserID: "u2", ItemID: "i1", Kind: core.EventKindNegative, Strength: 1.0, Timestamp: base.Add(2 * time.Minute)},
		{UserID: "u2", ItemID: "i3", Kind: core.EventKindView, Strength: 0.5, Timestamp: base.Add(3 * time.Minute)},
	}
}

func TestSimpleTrainer_Train(t *testing.T) {
	tr := NewSimpleTrainer()
	prev := core.NewModelSnapshot(3)
	prev.Popularity["i9"] = 7.0
	prev.ContentIndex["i9"] = map[string]float64{"scifi": 1.0}

	snap, err := tr.Train(context.Background(), trainEvents(), prev)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if snap.Version != 4 {
		t.Errorf("version = %d, want 4", snap.Version)
	}
	if snap.UserInteractions["u1"] != 2 || snap.UserInteractions["u2"] != 2 {
		t.Errorf("interactions = %v, want u1=2 u2=2", snap.UserInteractions)
	}
	if len(snap.UserFactors["u1"]) != tr.Factors {
		t.Errorf("user factor dim = %d, want %d", len(snap.UserFactors["u1"]), tr.Factors)
	}
	// content index and prior popularity carry over from the previous snapshot
	if _, ok := snap.ContentIndex["i9"]; !ok {
		t.Error("content index not carried over")
	}
	if snap.Popularity["i9"] != 7.0 {
		t.Errorf("prior popularity = %v, want 7.0", snap.Popularity["i9"])
	}
	// negative feedback contributes nothing to popularity
	if snap.Popularity["i1"] != 0.5 {
		t.Errorf("popularity[i1] = %v, want 0.5 (click only)", snap.Popularity["i1"])
	}
	if snap.Head == nil {
		t.Error("scoring head missing from trained snapshot")
	}
}

func TestSimpleTrainer_Deterministic(t *testing.T) {
	tr := NewSimpleTrainer()
	prev := core.NewModelSnapshot(0)

	first, err := tr.Train(context.Background(), trainEvents(), prev)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	again, err := tr.Train(context.Background(), trainEvents(), prev)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if !reflect.DeepEqual(first.UserFactors, again.UserFactors) {
		t.Error("user factors differ between identical runs")
	}
	if !reflect.DeepEqual(first.ItemFactors, again.ItemFactors) {
		t.Error("item factors differ between identical runs")
	}
}

func TestSimpleTrainer_EmptyEvents(t *testing.T) {
	tr := NewSimpleTrainer()
	_, err := tr.Train(context.Background(), nil, core.NewModelSnapshot(0))
	if !core.IsInvalidInput(err) {
		t.Errorf("Train() error = %v, want INVALID_INPUT", err)
	}
}

func TestHoldoutValidator_Validate(t *testing.T) {
	tr := NewSimpleTrainer()
	events := trainEvents()

	trained, err := tr.Train(context.Background(), events, core.NewModelSnapshot(0))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	empty := core.NewModelSnapshot(0)

	v := &HoldoutValidator{Tolerance: 0.05}

	// trained snapshot against the empty previous passes
	if err := v.Validate(context.Background(), trained, empty, events); err != nil {
		t.Errorf("Validate(trained vs empty) error = %v", err)
	}

	// empty holdout always passes
	if err := v.Validate(context.Background(), empty, trained, nil); err != nil {
		t.Errorf("Validate with empty holdout error = %v", err)
	}
}

func TestHoldoutValidator_RejectsRegression(t *testing.T) {
	tr := NewSimpleTrainer()
	// all-positive holdout: the trained snapshot predicts positives, empty one cannot
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []core.InteractionEvent{
		{UserID: "u1", ItemID: "i1", Kind: core.EventKindShare, Strength: 1.0, Timestamp: base},
		{UserID: "u1", ItemID: "i2", Kind: core.EventKindShare, Strength: 1.0, Timestamp: base.Add(time.Minute)},
		{UserID: "u2", ItemID: "i1", Kind: core.EventKindShare, Strength: 1.0, Timestamp: base.Add(2 * time.Minute)},
	}
	trained, err := tr.Train(context.Background(), events, core.NewModelSnapshot(0))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	prevAcc := holdoutAccuracy(trained, events)
	candAcc := holdoutAccuracy(core.NewModelSnapshot(1), events)
	if candAcc >= prevAcc {
		t.Skipf("trained accuracy %v not above empty %v, scenario not discriminative", prevAcc, candAcc)
	}

	v := &HoldoutValidator{Tolerance: 0.05}
	err = v.Validate(context.Background(), core.NewModelSnapshot(1), trained, events)
	if !core.IsValidationFailed(err) {
		t.Errorf("Validate() error = %v, want VALIDATION_FAILED", err)
	}
}
