package config

import (
	"errors"
	"testing"
	"time"

	"despacho_backend/internal/funnel/domain"
)

func testStage(id int) StageDefinition {
	return StageDefinition{
		ID:    id,
		Title: "Paso",
		Label: domain.LabelInitialContact,
	}
}

func TestRegistryRemoveDownToLastStage(t *testing.T) {
	stages := []StageDefinition{testStage(1), testStage(2), testStage(3), testStage(4)}
	r, err := NewRegistry(stages)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	for _, id := range []int{4, 2, 3} {
		if err := r.Remove(id); err != nil {
			t.Fatalf("Remove(%d): %v", id, err)
		}
	}

	if err := r.Remove(1); !errors.Is(err, ErrCannotRemoveLastStage) {
		t.Errorf("removing the last stage: got %v, want ErrCannotRemoveLastStage", err)
	}
	if _, ok := r.Get(1); !ok {
		t.Error("last stage should survive the rejected removal")
	}
}

func TestRegistryRemoveUnknownStage(t *testing.T) {
	r, _ := NewRegistry([]StageDefinition{testStage(1), testStage(2)})
	if err := r.Remove(99); !errors.Is(err, ErrStageNotFound) {
		t.Errorf("Remove(99): got %v, want ErrStageNotFound", err)
	}
}

func TestRegistryNextWalksAscendingIDs(t *testing.T) {
	// Gaps in the sequence must not break advancement.
	r, _ := NewRegistry([]StageDefinition{testStage(1), testStage(3), testStage(7)})

	cases := []struct {
		from   int
		wantID int
		wantOK bool
	}{
		{from: 1, wantID: 3, wantOK: true},
		{from: 3, wantID: 7, wantOK: true},
		{from: 7, wantOK: false},
		{from: 2, wantID: 3, wantOK: true},
	}
	for _, tc := range cases {
		next, ok := r.Next(tc.from)
		if ok != tc.wantOK {
			t.Errorf("Next(%d): ok=%v, want %v", tc.from, ok, tc.wantOK)
			continue
		}
		if ok && next.ID != tc.wantID {
			t.Errorf("Next(%d): got stage %d, want %d", tc.from, next.ID, tc.wantID)
		}
	}
}

func TestRegistryAddAssignsNextID(t *testing.T) {
	r, _ := NewRegistry([]StageDefinition{testStage(1), testStage(5)})

	id, err := r.Add(StageDefinition{Title: "Nuevo", Label: domain.LabelQuoteSent})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != 6 {
		t.Errorf("assigned id = %d, want 6", id)
	}

	if _, err := r.Add(testStage(5)); !errors.Is(err, ErrDuplicateStageID) {
		t.Errorf("duplicate add: got %v, want ErrDuplicateStageID", err)
	}
}

func TestRegistryUpdateUnknownStage(t *testing.T) {
	r, _ := NewRegistry([]StageDefinition{testStage(1)})
	if err := r.Update(9, testStage(9)); !errors.Is(err, ErrStageNotFound) {
		t.Errorf("Update(9): got %v, want ErrStageNotFound", err)
	}
}

func TestStageValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*StageDefinition)
	}{
		{"zero id", func(s *StageDefinition) { s.ID = 0 }},
		{"empty title", func(s *StageDefinition) { s.Title = " " }},
		{"unknown label", func(s *StageDefinition) { s.Label = "Desconocido" }},
		{"negative auto delay", func(s *StageDefinition) {
			s.AutoMessage = AutoMessage{Enabled: true, InitialDelayMinutes: -1}
		}},
		{"zero follow-up delay", func(s *StageDefinition) {
			s.FollowUps = []FollowUpAction{{ID: "a", DelayValue: 0, DelayUnit: DelayMinutes}}
		}},
		{"duplicate follow-up id", func(s *StageDefinition) {
			s.FollowUps = []FollowUpAction{
				{ID: "a", DelayValue: 1, DelayUnit: DelayMinutes},
				{ID: "a", DelayValue: 2, DelayUnit: DelayMinutes},
			}
		}},
		{"bad time window", func(s *StageDefinition) {
			s.FollowUps = []FollowUpAction{{ID: "a", DelayValue: 1, DelayUnit: DelayMinutes, TimeWindow: "8am-10am"}}
		}},
		{"empty document gate", func(s *StageDefinition) {
			s.DocumentGate = DocumentGate{Enabled: true}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := testStage(1)
			tc.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestDefaultStagesValidate(t *testing.T) {
	if _, err := NewRegistry(DefaultStages()); err != nil {
		t.Fatalf("default stages must validate: %v", err)
	}
}

func TestWindowRollForward(t *testing.T) {
	w, err := ParseWindow("08:00-10:00")
	if err != nil {
		t.Fatalf("ParseWindow: %v", err)
	}

	at := func(hour, min int) time.Time {
		return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
	}

	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"late evening rolls to next morning", at(23, 0), time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)},
		{"early morning rolls same day", at(6, 30), at(8, 0)},
		{"inside window unchanged", at(9, 15), at(9, 15)},
		{"window start unchanged", at(8, 0), at(8, 0)},
		{"window end rolls to next day", at(10, 0), time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := w.RollForward(tc.in)
			if !got.Equal(tc.want) {
				t.Errorf("RollForward(%v) = %v, want %v", tc.in, got, tc.want)
			}
			if got.Before(tc.in) {
				t.Errorf("RollForward must never move backward: %v -> %v", tc.in, got)
			}
		})
	}
}

func TestWindowAcrossMidnight(t *testing.T) {
	w, err := ParseWindow("22:00-02:00")
	if err != nil {
		t.Fatalf("ParseWindow: %v", err)
	}

	inside := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	if !w.Contains(inside) {
		t.Error("23:30 should be inside 22:00-02:00")
	}
	afterMidnight := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	if !w.Contains(afterMidnight) {
		t.Error("01:00 should be inside 22:00-02:00")
	}
	outside := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := w.RollForward(outside); got.Hour() != 22 || got.Day() != 10 {
		t.Errorf("noon should roll to 22:00 same day, got %v", got)
	}
}
