package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/Leganyst/fitness-booking/internal/model"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to model.ClassStatus
		want     bool
	}{
		{model.ClassStatusUpcoming, model.ClassStatusCompleted, true},
		{model.ClassStatusUpcoming, model.ClassStatusCancelled, true},
		{model.ClassStatusCompleted, model.ClassStatusCancelled, false},
		{model.ClassStatusCancelled, model.ClassStatusUpcoming, false},
		{model.ClassStatusCompleted, model.ClassStatusUpcoming, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}

	if IsTerminal(model.ClassStatusUpcoming) {
		t.Fatalf("upcoming must not be terminal")
	}
	if !IsTerminal(model.ClassStatusCompleted) || !IsTerminal(model.ClassStatusCancelled) {
		t.Fatalf("completed and cancelled must be terminal")
	}
}

func TestCompletionDue_RespectsGrace(t *testing.T) {
	start := baseNow.Add(-2 * time.Hour)
	c := upcomingClass(start, 0) // закончилось час назад

	if !CompletionDue(c, baseNow) {
		t.Fatalf("expected class ended 1h ago to be due")
	}
	if CompletionDue(c, c.EndTime.Add(CompletionGrace)) {
		t.Fatalf("class must not be due exactly at end+grace")
	}
	if !CompletionDue(c, c.EndTime.Add(CompletionGrace+time.Second)) {
		t.Fatalf("class must be due right after end+grace")
	}

	c.IsActive = false
	if CompletionDue(c, baseNow) {
		t.Fatalf("inactive class must not be due")
	}
}

func TestInProgress(t *testing.T) {
	c := upcomingClass(baseNow.Add(-30*time.Minute), 3)
	if !InProgress(c, baseNow) {
		t.Fatalf("expected class to be in progress")
	}
	if InProgress(c, c.StartTime) || InProgress(c, c.EndTime) {
		t.Fatalf("window bounds are exclusive")
	}
}

func TestComplete_RecomputesSlots(t *testing.T) {
	c := upcomingClass(baseNow.Add(-2*time.Hour), 0)
	c.Capacity = 10

	if rej := Complete(c, 4); rej != nil {
		t.Fatalf("complete: %v", rej)
	}
	if c.Status != model.ClassStatusCompleted {
		t.Fatalf("expected completed, got %s", c.Status)
	}
	if c.AvailableSlots != 6 {
		t.Fatalf("expected 6 slots, got %d", c.AvailableSlots)
	}

	rej := Complete(c, 4)
	if rej == nil || !errors.Is(rej, &Rejection{Reason: ReasonInvalidStateTransition}) {
		t.Fatalf("expected second completion to be rejected, got %v", rej)
	}
}

func TestRecomputeSlots_NeverNegative(t *testing.T) {
	if got := RecomputeSlots(5, 7); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := RecomputeSlots(5, 0); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestCancel(t *testing.T) {
	c := upcomingClass(baseNow.Add(2*time.Hour), 7)
	if rej := Cancel(c); rej != nil {
		t.Fatalf("cancel: %v", rej)
	}
	if c.Status != model.ClassStatusCancelled || c.AvailableSlots != 0 || c.IsActive {
		t.Fatalf("unexpected class after cancel: %+v", c)
	}
	if rej := Cancel(c); rej == nil || rej.Reason != ReasonInvalidStateTransition {
		t.Fatalf("expected repeated cancel to be rejected, got %v", rej)
	}
}
