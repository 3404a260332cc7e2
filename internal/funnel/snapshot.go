package funnel

import (
	"time"

	"despacho_backend/internal/funnel/domain"
	"despacho_backend/internal/funnel/schedule"
	"despacho_backend/platform/apperr"

	"github.com/google/uuid"
)

// ContactSnapshot is the full serializable state of a contact runtime.
// Restoring a snapshot yields identical tick behavior for the same clock
// sequence, which is what the snapshot store relies on across restarts.
type ContactSnapshot struct {
	ID            uuid.UUID                `json:"id"`
	Name          string                   `json:"name"`
	Phone         string                   `json:"phone"`
	StageID       int                      `json:"stageId"`
	Label         domain.Label             `json:"label"`
	AIEnabled     bool                     `json:"aiEnabled"`
	Flags         map[string]bool          `json:"flags"`
	HasUnread     bool                     `json:"hasUnread"`
	Inactive      bool                     `json:"inactive"`
	State         domain.State             `json:"state"`
	DocStatus     domain.DocStatus         `json:"docStatus"`
	Queue         []schedule.PendingAction `json:"queue"`
	LastContactAt time.Time                `json:"lastContactAt"`
}

func (rt *ContactRuntime) snapshot() ContactSnapshot {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	flags := make(map[string]bool, len(rt.flags))
	for k, v := range rt.flags {
		flags[k] = v
	}
	queue := append([]schedule.PendingAction(nil), rt.queue...)

	return ContactSnapshot{
		ID:            rt.id,
		Name:          rt.name,
		Phone:         rt.phone,
		StageID:       rt.stageID,
		Label:         rt.label,
		AIEnabled:     rt.aiEnabled,
		Flags:         flags,
		HasUnread:     rt.hasUnread,
		Inactive:      rt.inactive,
		State:         rt.state,
		DocStatus:     rt.docStatus,
		Queue:         queue,
		LastContactAt: rt.lastContactAt,
	}
}

// Snapshot returns the serializable state of every contact.
func (e *Engine) Snapshot() []ContactSnapshot {
	e.mu.RLock()
	runtimes := make([]*ContactRuntime, 0, len(e.contacts))
	for _, rt := range e.contacts {
		runtimes = append(runtimes, rt)
	}
	e.mu.RUnlock()

	out := make([]ContactSnapshot, 0, len(runtimes))
	for _, rt := range runtimes {
		out = append(out, rt.snapshot())
	}
	return out
}

// SnapshotOf returns the serializable state of one contact.
func (e *Engine) SnapshotOf(id uuid.UUID) (ContactSnapshot, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return ContactSnapshot{}, err
	}
	return rt.snapshot(), nil
}

// RestoreContact reconstructs a contact runtime from a snapshot, replacing
// any loaded contact with the same id.
func (e *Engine) RestoreContact(snap ContactSnapshot) error {
	if snap.ID == uuid.Nil {
		return apperr.Validation("snapshot is missing a contact id")
	}

	flags := make(map[string]bool, len(snap.Flags))
	for k, v := range snap.Flags {
		flags[k] = v
	}
	state := snap.State
	if state == "" {
		state = domain.StateActive
	}

	rt := &ContactRuntime{
		id:            snap.ID,
		name:          snap.Name,
		phone:         snap.Phone,
		stageID:       snap.StageID,
		label:         snap.Label,
		aiEnabled:     snap.AIEnabled,
		flags:         flags,
		hasUnread:     snap.HasUnread,
		inactive:      snap.Inactive,
		state:         state,
		docStatus:     snap.DocStatus,
		queue:         append([]schedule.PendingAction(nil), snap.Queue...),
		lastContactAt: snap.LastContactAt,
	}

	e.mu.Lock()
	e.contacts[snap.ID] = rt
	e.byPhone[snap.Phone] = snap.ID
	e.mu.Unlock()
	return nil
}
