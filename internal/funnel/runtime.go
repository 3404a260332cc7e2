// Package funnel implements the prospect lifecycle automation engine: the
// per-contact runtime state machine and the orchestrator that owns the
// contact set, drives the tick sweep and exposes the command/query API.
package funnel

import (
	"context"
	"sync"
	"time"

	"despacho_backend/internal/funnel/classifier"
	"despacho_backend/internal/funnel/config"
	"despacho_backend/internal/funnel/domain"
	"despacho_backend/internal/funnel/pursuit"
	"despacho_backend/internal/funnel/schedule"

	"github.com/google/uuid"
)

// stageChange describes a completed transition for event publication.
type stageChange struct {
	OldStage int
	NewStage int
	OldLabel domain.Label
	NewLabel domain.Label
}

// ContactRuntime is the mutable per-contact state. Every mutation happens
// under its own mutex; runtimes share nothing with each other, so ticks
// can fan out across contacts without cross-runtime locking.
type ContactRuntime struct {
	mu sync.Mutex

	id            uuid.UUID
	name          string
	phone         string
	stageID       int
	label         domain.Label
	aiEnabled     bool
	flags         map[string]bool
	hasUnread     bool
	inactive      bool
	state         domain.State
	docStatus     domain.DocStatus
	queue         []schedule.PendingAction
	lastContactAt time.Time
}

func newRuntime(id uuid.UUID, name, phone string, stage config.StageDefinition, now time.Time) *ContactRuntime {
	rt := &ContactRuntime{
		id:            id,
		name:          name,
		phone:         phone,
		aiEnabled:     true,
		flags:         make(map[string]bool),
		state:         domain.StateActive,
		docStatus:     domain.DocNotApplicable,
		lastContactAt: now,
	}
	rt.applyStage(stage, now)
	return rt
}

// applyStage moves the runtime into a stage: the pending queue is cleared
// and rebuilt from the stage definition, the lifecycle label is cached
// (it survives later deletion of the stage), and the document-gate status
// resets. Caller holds rt.mu (or owns the runtime exclusively).
func (rt *ContactRuntime) applyStage(stage config.StageDefinition, now time.Time) {
	rt.stageID = stage.ID
	rt.label = stage.Label
	rt.inactive = false
	rt.queue = schedule.BuildQueue(stage, now)
	if stage.DocumentGate.Enabled {
		rt.docStatus = domain.DocAwaiting
	} else {
		rt.docStatus = domain.DocNotApplicable
	}
}

// enterStage applies the stage and, when its auto-message is enabled,
// immediately emits the first queued action. Advancement paths (manual
// override, classifier match, validated documents) use this so the new
// stage's opening message lands at event time instead of waiting for the
// next tick.
func (rt *ContactRuntime) enterStage(stage config.StageDefinition, now time.Time) []domain.DispatchIntent {
	rt.applyStage(stage, now)

	if !stage.AutoMessage.Enabled || len(rt.queue) == 0 {
		return nil
	}
	first := rt.queue[0]
	rt.queue = rt.queue[1:]
	return []domain.DispatchIntent{rt.intentFrom(first, now)}
}

func (rt *ContactRuntime) intentFrom(a schedule.PendingAction, at time.Time) domain.DispatchIntent {
	return domain.DispatchIntent{
		ContactID:      rt.id,
		Phone:          rt.phone,
		Text:           a.Message,
		AttachmentKind: a.AttachmentKind,
		AttachmentName: a.AttachmentName,
		Timestamp:      at,
	}
}

func (rt *ContactRuntime) textIntent(text string, at time.Time) domain.DispatchIntent {
	return domain.DispatchIntent{
		ContactID:      rt.id,
		Phone:          rt.phone,
		Text:           text,
		AttachmentKind: domain.AttachmentNone,
		Timestamp:      at,
	}
}

// tick fires every queued action due at or before now. The terminal check
// happens here, under the lock, immediately before emitting: a convert
// racing with an in-flight sweep must never produce a stale dispatch.
func (rt *ContactRuntime) tick(reg *config.Registry, now time.Time) (intents []domain.DispatchIntent, wentInactive bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.state.Terminal() {
		return nil, false
	}

	// An advancement path may have drained the queue already (a stage
	// whose only action is the auto-message popped at entry); the sweep
	// still owns the exhaustion transition.
	if len(rt.queue) == 0 {
		return nil, rt.exhaust(reg)
	}

	fired, remaining := schedule.Due(rt.queue, now)
	if len(fired) == 0 {
		return nil, false
	}
	rt.queue = remaining

	for _, a := range fired {
		intents = append(intents, rt.intentFrom(a, now))
	}

	if len(rt.queue) == 0 {
		wentInactive = rt.exhaust(reg)
	}
	return intents, wentInactive
}

// exhaust marks the contact inactive when its stage asks for it and the
// follow-up queue has fully fired. Caller holds rt.mu. Returns true only
// on the transition, so the inactive event fires once.
func (rt *ContactRuntime) exhaust(reg *config.Registry) bool {
	if rt.inactive {
		return false
	}
	stage, ok := reg.Get(rt.stageID)
	if !ok || !stage.MoveToInactiveAfterFinish {
		return false
	}
	rt.inactive = true
	rt.label = domain.LabelInactive
	return true
}

// handleInbound routes an inbound reply through the classifier gate.
// Document-gate stages ignore the classifier path entirely; only the
// explicit documents-submitted signal moves them.
func (rt *ContactRuntime) handleInbound(ctx context.Context, reg *config.Registry, cls classifier.Classifier, text string, now time.Time) ([]domain.DispatchIntent, *stageChange, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.state.Terminal() {
		return nil, nil, nil
	}

	rt.hasUnread = true
	rt.lastContactAt = now

	if !rt.aiEnabled {
		return nil, nil, nil
	}

	stage, ok := reg.Get(rt.stageID)
	if !ok || stage.DocumentGate.Enabled || !stage.ClassifierGate.Enabled {
		return nil, nil, nil
	}

	result, err := cls.Classify(ctx, text, stage.ClassifierGate.ExpectedKeywords)
	if err != nil {
		return nil, nil, err
	}

	switch result.Verdict {
	case classifier.Match:
		next, ok := reg.Next(rt.stageID)
		if !ok {
			// Already at the end of the chain; matching is a no-op.
			return nil, nil, nil
		}
		change := &stageChange{OldStage: rt.stageID, OldLabel: rt.label, NewStage: next.ID, NewLabel: next.Label}
		return rt.enterStage(next, now), change, nil

	case classifier.OffTopicRecognized:
		intents := []domain.DispatchIntent{rt.textIntent(result.Reply, now)}
		if stage.ClassifierGate.OffTrackReply != "" {
			intents = append(intents, rt.textIntent(stage.ClassifierGate.OffTrackReply, now))
		}
		return intents, nil, nil

	default: // NO_MATCH
		if stage.ClassifierGate.OffTrackReply == "" {
			return nil, nil, nil
		}
		return []domain.DispatchIntent{rt.textIntent(stage.ClassifierGate.OffTrackReply, now)}, nil, nil
	}
}

// submitDocuments applies an external validation outcome. Validation
// success advances like a classifier match; rejection emits a corrective
// message and the gate goes back to awaiting the next upload.
func (rt *ContactRuntime) submitDocuments(reg *config.Registry, validated bool, now time.Time) ([]domain.DispatchIntent, *stageChange, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.state.Terminal() {
		return nil, nil, ErrContactClosed
	}

	stage, ok := reg.Get(rt.stageID)
	if !ok || !stage.DocumentGate.Enabled {
		return nil, nil, ErrNotInDocumentGateStage
	}

	if !validated {
		rt.docStatus = domain.DocAwaiting
		return []domain.DispatchIntent{rt.textIntent(docRejectedReply, now)}, nil, nil
	}

	rt.docStatus = domain.DocValidated
	intents := []domain.DispatchIntent{}
	if stage.DocumentGate.SuccessMessage != "" {
		intents = append(intents, rt.textIntent(stage.DocumentGate.SuccessMessage, now))
	}

	next, ok := reg.Next(rt.stageID)
	if !ok {
		return intents, nil, nil
	}
	change := &stageChange{OldStage: rt.stageID, OldLabel: rt.label, NewStage: next.ID, NewLabel: next.Label}
	intents = append(intents, rt.enterStage(next, now)...)
	return intents, change, nil
}

// docRejectedReply is the corrective message for a failed validation.
const docRejectedReply = "Error: la contraseña de la e.Firma es incorrecta. Por favor intenta de nuevo."

// manualOverride moves the contact to any existing stage, chosen by the
// operator. An unknown target is rejected and the state stays unchanged.
func (rt *ContactRuntime) manualOverride(reg *config.Registry, targetID int, now time.Time) ([]domain.DispatchIntent, *stageChange, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.state.Terminal() {
		return nil, nil, ErrContactClosed
	}

	target, ok := reg.Get(targetID)
	if !ok {
		return nil, nil, ErrInvalidManualTarget
	}

	change := &stageChange{OldStage: rt.stageID, OldLabel: rt.label, NewStage: target.ID, NewLabel: target.Label}
	return rt.enterStage(target, now), change, nil
}

// close moves the runtime into a terminal state and atomically clears the
// pending queue so no scheduled action can fire afterwards.
func (rt *ContactRuntime) close(state domain.State, label domain.Label) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.state.Terminal() {
		return false
	}
	rt.state = state
	rt.label = label
	rt.queue = nil
	rt.inactive = false
	return true
}

func (rt *ContactRuntime) setFlag(name string, value bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.flags[name] = value
}

func (rt *ContactRuntime) setAIEnabled(enabled bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.aiEnabled = enabled
}

func (rt *ContactRuntime) markRead() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.hasUnread = false
}

// suggest produces the pursuit follow-up text for the contact's stage.
func (rt *ContactRuntime) suggest(reg *config.Registry) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	stage, ok := reg.Get(rt.stageID)
	if !ok || !stage.PursuitPolicy.Enabled {
		return pursuit.SuggestMessage("", rt.name)
	}
	return pursuit.SuggestMessage(stage.PursuitPolicy.Intensity, rt.name)
}

// view returns a read-only copy for the query surface.
func (rt *ContactRuntime) view() ContactView {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	flags := make(map[string]bool, len(rt.flags))
	for k, v := range rt.flags {
		flags[k] = v
	}
	return ContactView{
		ID:             rt.id,
		Name:           rt.name,
		Phone:          rt.phone,
		StageID:        rt.stageID,
		Label:          rt.label,
		AIEnabled:      rt.aiEnabled,
		Flags:          flags,
		HasUnread:      rt.hasUnread,
		Inactive:       rt.inactive,
		State:          rt.state,
		DocStatus:      rt.docStatus,
		PendingActions: len(rt.queue),
		LastContactAt:  rt.lastContactAt,
	}
}

// ContactView is the immutable projection of a runtime handed to callers.
type ContactView struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Phone          string           `json:"phone"`
	StageID        int              `json:"stageId"`
	Label          domain.Label     `json:"label"`
	AIEnabled      bool             `json:"aiEnabled"`
	Flags          map[string]bool  `json:"flags"`
	HasUnread      bool             `json:"hasUnread"`
	Inactive       bool             `json:"inactive"`
	State          domain.State     `json:"state"`
	DocStatus      domain.DocStatus `json:"docStatus"`
	PendingActions int              `json:"pendingActions"`
	LastContactAt  time.Time        `json:"lastContactAt"`
}
