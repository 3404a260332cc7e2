// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"despacho_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent = events.NewBaseEvent
	BaseEventAt  = events.BaseEventAt
)

// =============================================================================
// Funnel Domain Events
// =============================================================================

// ContactRegistered is published when a prospect first enters the funnel.
type ContactRegistered struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	StageID   int       `json:"stageId"`
}

func (e ContactRegistered) EventName() string { return "funnel.contact.registered" }

// FunnelStageChanged is published when a contact moves to another stage,
// whether by classifier match, document validation or manual override.
type FunnelStageChanged struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	OldStage  int       `json:"oldStage"`
	NewStage  int       `json:"newStage"`
	OldLabel  string    `json:"oldLabel"`
	NewLabel  string    `json:"newLabel"`
	Trigger   string    `json:"trigger"` // "classifier", "documents", "manual"
}

func (e FunnelStageChanged) EventName() string { return "funnel.stage.changed" }

// ContactMarkedInactive is published when a contact's follow-up sequence
// is exhausted without a reply and the stage moves it to inactive.
type ContactMarkedInactive struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	StageID   int       `json:"stageId"`
}

func (e ContactMarkedInactive) EventName() string { return "funnel.contact.marked_inactive" }

// ContactConverted is published when a prospect becomes a client.
type ContactConverted struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
}

func (e ContactConverted) EventName() string { return "funnel.contact.converted" }

// ContactArchived is published when a prospect is marked permanently lost.
type ContactArchived struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
}

func (e ContactArchived) EventName() string { return "funnel.contact.archived" }

// DocumentsReviewed is published after an external validation outcome is
// applied to a contact in a document-gate stage.
type DocumentsReviewed struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	StageID   int       `json:"stageId"`
	Validated bool      `json:"validated"`
}

func (e DocumentsReviewed) EventName() string { return "funnel.documents.reviewed" }

// DispatchQueued is published for every dispatch intent handed to the
// delivery pipeline.
type DispatchQueued struct {
	BaseEvent
	ContactID      uuid.UUID `json:"contactId"`
	Phone          string    `json:"phone"`
	Text           string    `json:"text"`
	AttachmentKind string    `json:"attachmentKind,omitempty"`
	AttachmentName string    `json:"attachmentName,omitempty"`
}

func (e DispatchQueued) EventName() string { return "funnel.dispatch.queued" }
