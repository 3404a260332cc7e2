package funnel

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"despacho_backend/internal/funnel/config"
)

func TestSnapshotRoundTripPreservesTickBehavior(t *testing.T) {
	stages := twoStagePipeline()
	stages[0].AutoMessage.InitialDelayMinutes = 5
	stages[0].FollowUps = []config.FollowUpAction{
		{ID: "seq_1", DelayValue: 10, DelayUnit: config.DelayMinutes, Message: "¿Sigues ahí?"},
		{ID: "seq_2", DelayValue: 1, DelayUnit: config.DelayDays, Message: "Buenos días."},
	}

	original := testEngine(t, stages)
	v := register(t, original, "Ana", "+525512345678")
	if err := original.SetFlag(v.ID, "pending_issue", true); err != nil {
		t.Fatalf("SetFlag: %v", err)
	}

	snaps := original.Snapshot()
	if len(snaps) != 1 {
		t.Fatalf("snapshot count = %d, want 1", len(snaps))
	}

	// Serialize through JSON, as the snapshot store does.
	raw, err := json.Marshal(snaps[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restoredSnap ContactSnapshot
	if err := json.Unmarshal(raw, &restoredSnap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	restored := testEngine(t, stages)
	if err := restored.RestoreContact(restoredSnap); err != nil {
		t.Fatalf("RestoreContact: %v", err)
	}

	// Identical clock sequence must produce identical intents.
	clock := []time.Time{
		t0.Add(5 * time.Minute),
		t0.Add(5 * time.Minute),
		t0.Add(20 * time.Minute),
		t0.Add(48 * time.Hour),
	}
	for i, now := range clock {
		a := original.Tick(context.Background(), now)
		b := restored.Tick(context.Background(), now)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("tick %d diverged:\noriginal: %v\nrestored: %v", i, a, b)
		}
	}

	va, _ := original.Contact(v.ID)
	vb, _ := restored.Contact(v.ID)
	if !reflect.DeepEqual(va, vb) {
		t.Errorf("final views diverged:\noriginal: %+v\nrestored: %+v", va, vb)
	}
}
