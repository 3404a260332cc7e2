package schedule

import (
	"testing"
	"time"

	"despacho_backend/internal/funnel/config"
	"despacho_backend/internal/funnel/domain"
)

var entry = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestBuildQueueAdditiveDelays(t *testing.T) {
	stage := config.StageDefinition{
		ID:    1,
		Title: "Paso 1",
		Label: domain.LabelInitialContact,
		AutoMessage: config.AutoMessage{
			Enabled:             true,
			InitialDelayMinutes: 5,
			Text:                "hola",
		},
		FollowUps: []config.FollowUpAction{
			{ID: "a", DelayValue: 10, DelayUnit: config.DelayMinutes, Message: "m1"},
			{ID: "b", DelayValue: 1, DelayUnit: config.DelayHours, Message: "m2"},
			{ID: "c", DelayValue: 1, DelayUnit: config.DelayDays, Message: "m3"},
		},
	}

	queue := BuildQueue(stage, entry)
	if len(queue) != 4 {
		t.Fatalf("queue length = %d, want 4", len(queue))
	}

	// Cumulative: 5m, 5+10m, 5+10+60m, 5+10+60+1440m from entry.
	wantOffsets := []time.Duration{
		5 * time.Minute,
		15 * time.Minute,
		75 * time.Minute,
		1515 * time.Minute,
	}
	for i, want := range wantOffsets {
		if got := queue[i].DueAt.Sub(entry); got != want {
			t.Errorf("action %d due offset = %v, want %v", i, got, want)
		}
	}

	for i := 1; i < len(queue); i++ {
		if queue[i].DueAt.Before(queue[i-1].DueAt) {
			t.Errorf("due times must be non-decreasing, %v before %v", queue[i].DueAt, queue[i-1].DueAt)
		}
	}
}

func TestBuildQueueAnchorsOnEntryWithoutAutoMessage(t *testing.T) {
	stage := config.StageDefinition{
		ID:    4,
		Title: "Paso 4",
		Label: domain.LabelPossiblePayment,
		FollowUps: []config.FollowUpAction{
			{ID: "a", DelayValue: 30, DelayUnit: config.DelayMinutes, Message: "m"},
		},
	}

	queue := BuildQueue(stage, entry)
	if len(queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(queue))
	}
	if want := entry.Add(30 * time.Minute); !queue[0].DueAt.Equal(want) {
		t.Errorf("due = %v, want %v", queue[0].DueAt, want)
	}
}

func TestBuildQueueRollsRestrictedActionForward(t *testing.T) {
	// Naive due time lands at 23:00; window 08:00-10:00 pushes it to the
	// next morning, never backward.
	lateEntry := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	stage := config.StageDefinition{
		ID:    1,
		Title: "Paso 1",
		Label: domain.LabelInitialContact,
		FollowUps: []config.FollowUpAction{
			{ID: "a", DelayValue: 60, DelayUnit: config.DelayMinutes, Message: "m", TimeWindow: "08:00-10:00"},
		},
	}

	queue := BuildQueue(stage, lateEntry)
	want := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)
	if !queue[0].DueAt.Equal(want) {
		t.Errorf("restricted due = %v, want %v", queue[0].DueAt, want)
	}
}

func TestBuildQueueStableOrderOnTies(t *testing.T) {
	// Zero-delay auto-message plus a window that collapses two touches
	// onto the same instant: original sequence order must hold.
	stage := config.StageDefinition{
		ID:    1,
		Title: "Paso 1",
		Label: domain.LabelInitialContact,
		AutoMessage: config.AutoMessage{
			Enabled: true,
			Text:    "auto",
		},
		FollowUps: []config.FollowUpAction{
			{ID: "a", DelayValue: 30, DelayUnit: config.DelayMinutes, Message: "m1", TimeWindow: "08:00-10:00"},
			{ID: "b", DelayValue: 600, DelayUnit: config.DelayMinutes, Message: "m2", TimeWindow: "08:00-10:00"},
		},
	}

	// Entry at 20:00: both touches roll to 08:00 next day.
	eveningEntry := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	queue := BuildQueue(stage, eveningEntry)
	if len(queue) != 3 {
		t.Fatalf("queue length = %d, want 3", len(queue))
	}

	gotIDs := []string{queue[0].ID, queue[1].ID, queue[2].ID}
	wantIDs := []string{AutoActionID, "a", "b"}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("order = %v, want %v", gotIDs, wantIDs)
		}
	}
	if !queue[1].DueAt.Equal(queue[2].DueAt) {
		t.Fatalf("setup broken: expected tie, got %v and %v", queue[1].DueAt, queue[2].DueAt)
	}
}

func TestDueSplit(t *testing.T) {
	queue := []PendingAction{
		{ID: "a", DueAt: entry},
		{ID: "b", DueAt: entry.Add(time.Minute)},
		{ID: "c", DueAt: entry.Add(time.Hour)},
	}

	fired, remaining := Due(queue, entry.Add(time.Minute))
	if len(fired) != 2 || len(remaining) != 1 {
		t.Fatalf("fired=%d remaining=%d, want 2 and 1", len(fired), len(remaining))
	}
	if fired[0].ID != "a" || fired[1].ID != "b" || remaining[0].ID != "c" {
		t.Errorf("wrong split: fired=%v remaining=%v", fired, remaining)
	}
}
