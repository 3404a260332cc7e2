package funnel

import (
	"context"
	"sort"
	"sync"
	"time"

	"despacho_backend/internal/events"
	"despacho_backend/internal/funnel/classifier"
	"despacho_backend/internal/funnel/config"
	"despacho_backend/internal/funnel/domain"
	"despacho_backend/platform/apperr"
	"despacho_backend/platform/logger"
	"despacho_backend/platform/phone"

	"github.com/google/uuid"
)

// Named runtime errors surfaced to the caller. A lost routing error means
// a prospect silently stops being followed up, so none of these are
// logged-and-dropped.
var (
	ErrUnknownContact         = apperr.NotFound("unknown contact")
	ErrInvalidManualTarget    = apperr.BadRequest("target stage does not exist")
	ErrNotInDocumentGateStage = apperr.Conflict("contact is not in a document-gate stage")
	ErrContactClosed          = apperr.Unprocessable("contact is converted or archived")
	ErrDuplicatePhone         = apperr.Conflict("a contact with this phone already exists")
)

// Filter selects a slice of the contact list, mirroring the dashboard's
// master filter bar. Any other value is matched against lifecycle labels.
type Filter string

const (
	FilterAll             Filter = "ALL"
	FilterUnread          Filter = "UNREAD"
	FilterPossiblePayment Filter = "POSIBLE_PAGO"
	FilterPendingIssue    Filter = "PENDIENTE"
	FilterInactive        Filter = "INACTIVE"
	FilterAwaitingDocs    Filter = "DOC_COLLECTION"
)

// Engine owns the set of contact runtimes. It routes every external event
// (tick, inbound message, operator command) to the right runtime and
// publishes domain events for the transitions that result.
type Engine struct {
	mu       sync.RWMutex
	contacts map[uuid.UUID]*ContactRuntime
	byPhone  map[string]uuid.UUID

	registry   *config.Registry
	classifier classifier.Classifier
	bus        events.Bus
	log        *logger.Logger
}

// NewEngine creates an engine over the given stage registry.
func NewEngine(registry *config.Registry, cls classifier.Classifier, bus events.Bus, log *logger.Logger) *Engine {
	return &Engine{
		contacts:   make(map[uuid.UUID]*ContactRuntime),
		byPhone:    make(map[string]uuid.UUID),
		registry:   registry,
		classifier: cls,
		bus:        bus,
		log:        log,
	}
}

// Registry exposes the stage catalog for the configuration surface.
func (e *Engine) Registry() *config.Registry {
	return e.registry
}

// Register enters a new prospect into the funnel at the lowest stage id.
// The phone number is normalized to E.164 before use.
func (e *Engine) Register(ctx context.Context, name, rawPhone string, now time.Time) (ContactView, error) {
	first, ok := e.registry.First()
	if !ok {
		return ContactView{}, apperr.Internal("stage registry is empty")
	}

	normalized := phone.NormalizeE164(rawPhone)
	if normalized == "" {
		return ContactView{}, apperr.Validation("phone is required")
	}

	e.mu.Lock()
	if _, dup := e.byPhone[normalized]; dup {
		e.mu.Unlock()
		return ContactView{}, ErrDuplicatePhone
	}
	id := uuid.New()
	rt := newRuntime(id, name, normalized, first, now)
	e.contacts[id] = rt
	e.byPhone[normalized] = id
	e.mu.Unlock()

	e.bus.Publish(ctx, events.ContactRegistered{
		BaseEvent: events.BaseEventAt(now),
		ContactID: id,
		Name:      name,
		Phone:     normalized,
		StageID:   first.ID,
	})
	return rt.view(), nil
}

func (e *Engine) runtime(id uuid.UUID) (*ContactRuntime, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rt, ok := e.contacts[id]
	if !ok {
		return nil, ErrUnknownContact
	}
	return rt, nil
}

// FindByPhone resolves a contact by its E.164 phone number, the identity
// the WhatsApp gateway reports on inbound messages.
func (e *Engine) FindByPhone(rawPhone string) (ContactView, bool) {
	normalized := phone.NormalizeE164(rawPhone)

	e.mu.RLock()
	id, ok := e.byPhone[normalized]
	rt := e.contacts[id]
	e.mu.RUnlock()

	if !ok {
		return ContactView{}, false
	}
	return rt.view(), true
}

// Tick fires every pending action due at or before now across all
// non-terminal contacts and returns the accumulated dispatch intents.
// Calling it twice with the same now fires each action exactly once.
func (e *Engine) Tick(ctx context.Context, now time.Time) []domain.DispatchIntent {
	e.mu.RLock()
	runtimes := make([]*ContactRuntime, 0, len(e.contacts))
	for _, rt := range e.contacts {
		runtimes = append(runtimes, rt)
	}
	e.mu.RUnlock()

	var all []domain.DispatchIntent
	for _, rt := range runtimes {
		intents, wentInactive := rt.tick(e.registry, now)
		all = append(all, intents...)
		if wentInactive {
			e.bus.Publish(ctx, events.ContactMarkedInactive{
				BaseEvent: events.BaseEventAt(now),
				ContactID: rt.id,
				StageID:   rt.view().StageID,
			})
		}
	}

	e.publishDispatches(ctx, all)
	return all
}

// OnInboundMessage routes a received chat message to the contact's
// classifier or document path and returns the replies to dispatch.
func (e *Engine) OnInboundMessage(ctx context.Context, id uuid.UUID, text string, now time.Time) ([]domain.DispatchIntent, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return nil, err
	}

	intents, change, err := rt.handleInbound(ctx, e.registry, e.classifier, text, now)
	if err != nil {
		return nil, err
	}
	e.publishStageChange(ctx, id, change, "classifier", now)
	e.publishDispatches(ctx, intents)
	return intents, nil
}

// OnManualOverride moves a contact to the operator-chosen stage.
func (e *Engine) OnManualOverride(ctx context.Context, id uuid.UUID, targetStageID int, now time.Time) ([]domain.DispatchIntent, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return nil, err
	}

	intents, change, err := rt.manualOverride(e.registry, targetStageID, now)
	if err != nil {
		return nil, err
	}
	e.publishStageChange(ctx, id, change, "manual", now)
	e.publishDispatches(ctx, intents)
	return intents, nil
}

// OnDocumentsSubmitted applies an external document validation outcome to
// a contact currently held at a document-gate stage.
func (e *Engine) OnDocumentsSubmitted(ctx context.Context, id uuid.UUID, validated bool, now time.Time) ([]domain.DispatchIntent, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return nil, err
	}

	stageID := rt.view().StageID
	intents, change, err := rt.submitDocuments(e.registry, validated, now)
	if err != nil {
		return nil, err
	}

	e.bus.Publish(ctx, events.DocumentsReviewed{
		BaseEvent: events.BaseEventAt(now),
		ContactID: id,
		StageID:   stageID,
		Validated: validated,
	})
	e.publishStageChange(ctx, id, change, "documents", now)
	e.publishDispatches(ctx, intents)
	return intents, nil
}

// SetFlag sets one of the orthogonal contact flags.
func (e *Engine) SetFlag(id uuid.UUID, name string, value bool) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	rt.setFlag(name, value)
	return nil
}

// SetAIEnabled toggles automated handling of the contact's inbound
// messages.
func (e *Engine) SetAIEnabled(id uuid.UUID, enabled bool) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	rt.setAIEnabled(enabled)
	return nil
}

// MarkRead clears the unread marker set by inbound messages.
func (e *Engine) MarkRead(id uuid.UUID) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	rt.markRead()
	return nil
}

// Convert closes the contact as won. Terminal: the pending queue is
// cleared atomically so an in-flight tick cannot fire a stale action.
func (e *Engine) Convert(ctx context.Context, id uuid.UUID, now time.Time) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	if rt.close(domain.StateConverted, domain.LabelWon) {
		e.bus.Publish(ctx, events.ContactConverted{BaseEvent: events.BaseEventAt(now), ContactID: id})
	}
	return nil
}

// Archive closes the contact as permanently lost.
func (e *Engine) Archive(ctx context.Context, id uuid.UUID, now time.Time) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	if rt.close(domain.StateArchived, domain.LabelLost) {
		e.bus.Publish(ctx, events.ContactArchived{BaseEvent: events.BaseEventAt(now), ContactID: id})
	}
	return nil
}

// SuggestMessage returns the pursuit-policy follow-up suggestion for the
// contact's current stage.
func (e *Engine) SuggestMessage(id uuid.UUID) (string, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return "", err
	}
	return rt.suggest(e.registry), nil
}

// Contact returns the current view of a single contact.
func (e *Engine) Contact(id uuid.UUID) (ContactView, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return ContactView{}, err
	}
	return rt.view(), nil
}

// ListContacts returns the contacts matching the filter, sorted by most
// recent contact first. Terminal contacts only appear under their label.
func (e *Engine) ListContacts(filter Filter) []ContactView {
	views := e.allViews()

	out := make([]ContactView, 0, len(views))
	for _, v := range views {
		if e.matches(v, filter) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastContactAt.After(out[j].LastContactAt) })
	return out
}

// Counts returns the contact count per named filter for the dashboard's
// filter bar.
func (e *Engine) Counts() map[Filter]int {
	views := e.allViews()
	filters := []Filter{FilterAll, FilterUnread, FilterPossiblePayment, FilterPendingIssue, FilterInactive, FilterAwaitingDocs}

	counts := make(map[Filter]int, len(filters))
	for _, f := range filters {
		for _, v := range views {
			if e.matches(v, f) {
				counts[f]++
			}
		}
	}
	return counts
}

func (e *Engine) allViews() []ContactView {
	e.mu.RLock()
	runtimes := make([]*ContactRuntime, 0, len(e.contacts))
	for _, rt := range e.contacts {
		runtimes = append(runtimes, rt)
	}
	e.mu.RUnlock()

	views := make([]ContactView, 0, len(runtimes))
	for _, rt := range runtimes {
		views = append(views, rt.view())
	}
	return views
}

func (e *Engine) matches(v ContactView, filter Filter) bool {
	switch filter {
	case FilterAll:
		return !v.Inactive && !v.State.Terminal()
	case FilterUnread:
		return v.HasUnread
	case FilterPossiblePayment:
		return v.Flags[domain.FlagPossiblePayment]
	case FilterPendingIssue:
		return v.Flags[domain.FlagPendingIssue]
	case FilterInactive:
		return v.Inactive || v.Label == domain.LabelInactive
	case FilterAwaitingDocs:
		return v.DocStatus == domain.DocAwaiting && !v.State.Terminal()
	default:
		return string(v.Label) == string(filter)
	}
}

func (e *Engine) publishStageChange(ctx context.Context, id uuid.UUID, change *stageChange, trigger string, now time.Time) {
	if change == nil {
		return
	}
	e.bus.Publish(ctx, events.FunnelStageChanged{
		BaseEvent: events.BaseEventAt(now),
		ContactID: id,
		OldStage:  change.OldStage,
		NewStage:  change.NewStage,
		OldLabel:  string(change.OldLabel),
		NewLabel:  string(change.NewLabel),
		Trigger:   trigger,
	})
}

func (e *Engine) publishDispatches(ctx context.Context, intents []domain.DispatchIntent) {
	for _, intent := range intents {
		e.bus.Publish(ctx, events.DispatchQueued{
			BaseEvent:      events.BaseEventAt(intent.Timestamp),
			ContactID:      intent.ContactID,
			Phone:          intent.Phone,
			Text:           intent.Text,
			AttachmentKind: string(intent.AttachmentKind),
			AttachmentName: intent.AttachmentName,
		})
	}
}
