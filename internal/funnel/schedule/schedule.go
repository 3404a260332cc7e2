// Package schedule turns a stage definition and an entry time into the
// ordered queue of pending timed actions for a contact. It is a pure
// function of its inputs; firing is driven by the engine's tick.
package schedule

import (
	"sort"
	"time"

	"despacho_backend/internal/funnel/config"
	"despacho_backend/internal/funnel/domain"
)

// AutoActionID identifies the stage-entry auto-message in a queue.
const AutoActionID = "auto"

// PendingAction is one not-yet-fired timed action of a contact.
type PendingAction struct {
	ID             string                `json:"id"`
	Seq            int                   `json:"seq"`
	DueAt          time.Time             `json:"dueAt"`
	Message        string                `json:"message"`
	AttachmentKind domain.AttachmentKind `json:"attachmentKind"`
	AttachmentName string                `json:"attachmentName,omitempty"`
}

// BuildQueue computes the pending-action queue for a contact entering the
// stage at enteredAt. The auto-message (when enabled) fires after its
// initial delay; follow-up delays then compose additively, each relative
// to the previous action's scheduled time. A time-window restriction rolls
// an action's due time forward to the next occurrence of the window.
//
// The returned queue is sorted by due time, with the original sequence
// order preserved on exact ties.
func BuildQueue(stage config.StageDefinition, enteredAt time.Time) []PendingAction {
	queue := make([]PendingAction, 0, len(stage.FollowUps)+1)
	anchor := enteredAt
	seq := 0

	if stage.AutoMessage.Enabled {
		anchor = enteredAt.Add(time.Duration(stage.AutoMessage.InitialDelayMinutes) * time.Minute)
		queue = append(queue, PendingAction{
			ID:             AutoActionID,
			Seq:            seq,
			DueAt:          anchor,
			Message:        stage.AutoMessage.Text,
			AttachmentKind: attachmentOrNone(stage.AutoMessage.AttachmentKind),
			AttachmentName: stage.AutoMessage.AttachmentName,
		})
		seq++
	}

	for _, fu := range stage.FollowUps {
		minutes, err := fu.DelayUnit.Minutes(fu.DelayValue)
		if err != nil {
			// Unknown units are rejected by stage validation; skip
			// rather than corrupt the additive chain.
			continue
		}
		due := anchor.Add(time.Duration(minutes) * time.Minute)
		// The additive chain anchors on the unrolled due time. A window
		// shifts when this one touch lands, not the cadence of the
		// touches after it, so two touches can land on the same window
		// opening and fire back to back in sequence order.
		anchor = due

		if fu.TimeWindow != "" {
			if w, err := config.ParseWindow(fu.TimeWindow); err == nil {
				due = w.RollForward(due)
			}
		}

		queue = append(queue, PendingAction{
			ID:             fu.ID,
			Seq:            seq,
			DueAt:          due,
			Message:        fu.Message,
			AttachmentKind: attachmentOrNone(fu.AttachmentKind),
			AttachmentName: fu.AttachmentName,
		})
		seq++
	}

	sortStable(queue)
	return queue
}

// Due splits the queue into actions due at or before now and the rest.
// Order within both halves is preserved.
func Due(queue []PendingAction, now time.Time) (fired, remaining []PendingAction) {
	for _, a := range queue {
		if !a.DueAt.After(now) {
			fired = append(fired, a)
		} else {
			remaining = append(remaining, a)
		}
	}
	return fired, remaining
}

func attachmentOrNone(k domain.AttachmentKind) domain.AttachmentKind {
	if k == "" {
		return domain.AttachmentNone
	}
	return k
}

// sortStable orders by due time, keeping sequence order on equal instants.
func sortStable(queue []PendingAction) {
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].DueAt.Before(queue[j].DueAt)
	})
}
