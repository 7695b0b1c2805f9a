package core

import (
	"testing"
	"time"
)

func TestInteractionEvent_Validate(t *testing.T) {
	valid := InteractionEvent{
		UserID: "u1", ItemID: "i1", Kind: EventKindClick,
		Strength: 0.5, Timestamp: time.Now(),
	}

	tests := []struct {
		name   string
		mutate func(*InteractionEvent)
		wantOK bool
	}{
		{"valid event", func(*InteractionEvent) {}, true},
		{"empty user", func(e *InteractionEvent) { e.UserID = "" }, false},
		{"empty item", func(e *InteractionEvent) { e.ItemID = "" }, false},
		{"unknown kind", func(e *InteractionEvent) { e.Kind = "warp" }, false},
		{"strength above 1", func(e *InteractionEvent) { e.Strength = 1.5 }, false},
		{"negative strength", func(e *InteractionEvent) { e.Strength = -0.1 }, false},
		{"zero timestamp", func(e *InteractionEvent) { e.Timestamp = time.Time{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := valid
			tt.mutate(&ev)
			err := ev.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.wantOK && !IsInvalidInput(err) {
				t.Errorf("Validate() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestInteractionEvent_DedupKey(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := InteractionEvent{UserID: "u1", ItemID: "i1", Kind: EventKindClick, Strength: 1, Timestamp: ts}
	b := a
	if a.DedupKey() != b.DedupKey() {
		t.Error("identical events should share a dedup key")
	}

	c := a
	c.Kind = EventKindShare
	if a.DedupKey() == c.DedupKey() {
		t.Error("kind must participate in the dedup key")
	}

	d := a
	d.Timestamp = ts.Add(time.Second)
	if a.DedupKey() == d.DedupKey() {
		t.Error("timestamp must participate in the dedup key")
	}
}

func TestInteractionEvent_Engagement(t *testing.T) {
	ts := time.Now()
	share := InteractionEvent{UserID: "u", ItemID: "i", Kind: EventKindShare, Strength: 1, Timestamp: ts}
	view := InteractionEvent{UserID: "u", ItemID: "i", Kind: EventKindView, Strength: 1, Timestamp: ts}
	negative := InteractionEvent{UserID: "u", ItemID: "i", Kind: EventKindNegative, Strength: 1, Timestamp: ts}

	if share.Engagement() <= view.Engagement() {
		t.Errorf("share %v should outweigh view %v", share.Engagement(), view.Engagement())
	}
	if negative.Engagement() >= 0 {
		t.Errorf("negative feedback engagement = %v, want < 0", negative.Engagement())
	}

	half := InteractionEvent{UserID: "u", ItemID: "i", Kind: EventKindDwell, Strength: 0.5, Timestamp: ts}
	full := InteractionEvent{UserID: "u", ItemID: "i", Kind: EventKindDwell, Strength: 1, Timestamp: ts}
	if half.Engagement() >= full.Engagement() {
		t.Errorf("strength must scale engagement: %v vs %v", half.Engagement(), full.Engagement())
	}
}
