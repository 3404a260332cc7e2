// Package domain defines the core types of the prospect funnel: lifecycle
// labels, attachment kinds, document-gate status, terminal states and the
// dispatch intents the engine emits.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Label is the coarse-grained lifecycle status shown to the operator.
// Values are the Spanish display strings used across the dashboard.
type Label string

const (
	LabelInitialContact  Label = "Contacto Inicial"
	LabelWelcomeSent     Label = "Bienvenida Enviada"
	LabelQuoteSent       Label = "Cotización Enviada"
	LabelPossiblePayment Label = "Posible Pago"
	LabelWon             Label = "Ganado"
	LabelLost            Label = "Perdido"
	LabelInactive        Label = "Inactivo"
)

// Valid reports whether l is one of the known lifecycle labels.
func (l Label) Valid() bool {
	switch l {
	case LabelInitialContact, LabelWelcomeSent, LabelQuoteSent,
		LabelPossiblePayment, LabelWon, LabelLost, LabelInactive:
		return true
	}
	return false
}

// AttachmentKind tags the media attached to an outbound message.
type AttachmentKind string

const (
	AttachmentNone  AttachmentKind = "NONE"
	AttachmentAudio AttachmentKind = "AUDIO"
	AttachmentVideo AttachmentKind = "VIDEO"
	AttachmentImage AttachmentKind = "IMAGE"
	AttachmentPDF   AttachmentKind = "PDF"
)

// Valid reports whether k is a known attachment kind.
func (k AttachmentKind) Valid() bool {
	switch k {
	case AttachmentNone, AttachmentAudio, AttachmentVideo, AttachmentImage, AttachmentPDF:
		return true
	}
	return false
}

// DocStatus tracks a contact through a document-gate stage.
type DocStatus string

const (
	DocNotApplicable DocStatus = "not_applicable"
	DocAwaiting      DocStatus = "awaiting"
	DocValidated     DocStatus = "validated"
	DocRejected      DocStatus = "rejected"
)

// State is the terminal lifecycle of a contact runtime. Converted and
// archived contacts are detached from all further scheduling.
type State string

const (
	StateActive    State = "active"
	StateConverted State = "converted"
	StateArchived  State = "archived"
)

// Terminal reports whether the state accepts no further events.
func (s State) Terminal() bool {
	return s == StateConverted || s == StateArchived
}

// Intensity is the pursuit tier controlling follow-up cadence and tone.
type Intensity string

const (
	IntensityLow    Intensity = "LOW"
	IntensityMedium Intensity = "MEDIUM"
	IntensityHigh   Intensity = "HIGH"
)

// Valid reports whether i is a known pursuit intensity.
func (i Intensity) Valid() bool {
	switch i {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return true
	}
	return false
}

// Orthogonal contact flags, independent of the current stage.
const (
	FlagPossiblePayment = "possible_payment"
	FlagPendingIssue    = "pending_issue"
)

// DispatchIntent is an instruction to send a message over the chat
// transport. The engine produces intents; it never touches the network.
type DispatchIntent struct {
	ContactID      uuid.UUID      `json:"contactId"`
	Phone          string         `json:"phone"`
	Text           string         `json:"text"`
	AttachmentKind AttachmentKind `json:"attachmentKind"`
	AttachmentName string         `json:"attachmentName,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}
