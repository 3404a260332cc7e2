// Package config holds the declarative funnel stage catalog: stage
// definitions, their follow-up sequences and the mutable Registry the
// operator edits through the configuration screen.
package config

import (
	"fmt"
	"strings"

	"despacho_backend/internal/funnel/domain"
)

// DelayUnit is the unit of a follow-up delay.
type DelayUnit string

const (
	DelayMinutes DelayUnit = "MINUTES"
	DelayHours   DelayUnit = "HOURS"
	DelayDays    DelayUnit = "DAYS"
)

// Minutes converts a delay value in this unit to minutes.
func (u DelayUnit) Minutes(value int) (int, error) {
	switch u {
	case DelayMinutes:
		return value, nil
	case DelayHours:
		return value * 60, nil
	case DelayDays:
		return value * 1440, nil
	default:
		return 0, fmt.Errorf("unknown delay unit %q", string(u))
	}
}

// AutoMessage is the immediate message sent on stage entry.
type AutoMessage struct {
	Enabled             bool                  `json:"enabled" yaml:"enabled"`
	InitialDelayMinutes int                   `json:"initialDelayMinutes" yaml:"initialDelayMinutes"`
	Text                string                `json:"text" yaml:"text"`
	AttachmentKind      domain.AttachmentKind `json:"attachmentKind" yaml:"attachmentKind"`
	AttachmentName      string                `json:"attachmentName,omitempty" yaml:"attachmentName,omitempty"`
}

// ClassifierGate configures keyword-gated advancement for a stage.
type ClassifierGate struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	TriggerQuestion  string   `json:"triggerQuestion" yaml:"triggerQuestion"`
	ExpectedKeywords []string `json:"expectedKeywords" yaml:"expectedKeywords"`
	OffTrackReply    string   `json:"offTrackReply" yaml:"offTrackReply"`
}

// PursuitPolicy configures escalating follow-up suggestions for a stage.
type PursuitPolicy struct {
	Enabled          bool             `json:"enabled" yaml:"enabled"`
	Intensity        domain.Intensity `json:"intensity" yaml:"intensity"`
	CustomObjections []string         `json:"customObjections,omitempty" yaml:"customObjections,omitempty"`
}

// DocumentGate pauses classifier-driven advancement until an external
// validation signal arrives.
type DocumentGate struct {
	Enabled           bool     `json:"enabled" yaml:"enabled"`
	RequiredDocs      []string `json:"requiredDocs" yaml:"requiredDocs"`
	UploadInstruction string   `json:"uploadInstruction" yaml:"uploadInstruction"`
	SuccessMessage    string   `json:"successMessage" yaml:"successMessage"`
}

// FollowUpAction is one timed touch in a stage's follow-up sequence.
// Delays compose additively: each action fires relative to the previous
// action's scheduled time, not to stage entry.
type FollowUpAction struct {
	ID             string                `json:"id" yaml:"id"`
	DelayValue     int                   `json:"delayValue" yaml:"delayValue"`
	DelayUnit      DelayUnit             `json:"delayUnit" yaml:"delayUnit"`
	Message        string                `json:"message" yaml:"message"`
	AttachmentKind domain.AttachmentKind `json:"attachmentKind" yaml:"attachmentKind"`
	AttachmentName string                `json:"attachmentName,omitempty" yaml:"attachmentName,omitempty"`
	TimeWindow     string                `json:"timeWindow,omitempty" yaml:"timeWindow,omitempty"`
}

// StageDefinition is one step of the configurable prospect pipeline.
type StageDefinition struct {
	ID                        int              `json:"id" yaml:"id"`
	Title                     string           `json:"title" yaml:"title"`
	Label                     domain.Label     `json:"label" yaml:"label"`
	AutoMessage               AutoMessage      `json:"autoMessage" yaml:"autoMessage"`
	ClassifierGate            ClassifierGate   `json:"classifierGate" yaml:"classifierGate"`
	PursuitPolicy             PursuitPolicy    `json:"pursuitPolicy" yaml:"pursuitPolicy"`
	FollowUps                 []FollowUpAction `json:"followUps" yaml:"followUps"`
	MoveToInactiveAfterFinish bool             `json:"moveToInactiveAfterFinish" yaml:"moveToInactiveAfterFinish"`
	DocumentGate              DocumentGate     `json:"documentGate" yaml:"documentGate"`
}

// Validate checks internal consistency of a stage definition.
func (s StageDefinition) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("stage id must be a positive integer, got %d", s.ID)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("stage %d: title is required", s.ID)
	}
	if !s.Label.Valid() {
		return fmt.Errorf("stage %d: unknown lifecycle label %q", s.ID, string(s.Label))
	}
	if s.AutoMessage.Enabled {
		if s.AutoMessage.InitialDelayMinutes < 0 {
			return fmt.Errorf("stage %d: auto-message delay cannot be negative", s.ID)
		}
		if kind := s.AutoMessage.AttachmentKind; kind != "" && !kind.Valid() {
			return fmt.Errorf("stage %d: unknown attachment kind %q", s.ID, string(kind))
		}
	}
	if s.PursuitPolicy.Enabled && !s.PursuitPolicy.Intensity.Valid() {
		return fmt.Errorf("stage %d: unknown pursuit intensity %q", s.ID, string(s.PursuitPolicy.Intensity))
	}
	if s.DocumentGate.Enabled && len(s.DocumentGate.RequiredDocs) == 0 {
		return fmt.Errorf("stage %d: document gate requires at least one document label", s.ID)
	}

	seen := make(map[string]struct{}, len(s.FollowUps))
	for i, fu := range s.FollowUps {
		if strings.TrimSpace(fu.ID) == "" {
			return fmt.Errorf("stage %d: follow-up %d is missing an id", s.ID, i)
		}
		if _, dup := seen[fu.ID]; dup {
			return fmt.Errorf("stage %d: duplicate follow-up id %q", s.ID, fu.ID)
		}
		seen[fu.ID] = struct{}{}
		if fu.DelayValue <= 0 {
			return fmt.Errorf("stage %d: follow-up %q delay must be positive", s.ID, fu.ID)
		}
		if _, err := fu.DelayUnit.Minutes(fu.DelayValue); err != nil {
			return fmt.Errorf("stage %d: follow-up %q: %w", s.ID, fu.ID, err)
		}
		if kind := fu.AttachmentKind; kind != "" && !kind.Valid() {
			return fmt.Errorf("stage %d: follow-up %q: unknown attachment kind %q", s.ID, fu.ID, string(kind))
		}
		if fu.TimeWindow != "" {
			if _, err := ParseWindow(fu.TimeWindow); err != nil {
				return fmt.Errorf("stage %d: follow-up %q: %w", s.ID, fu.ID, err)
			}
		}
	}

	return nil
}
