package funnel

import (
	"context"
	"errors"
	"testing"
	"time"

	"despacho_backend/internal/events"
	"despacho_backend/internal/funnel/classifier"
	"despacho_backend/internal/funnel/config"
	"despacho_backend/internal/funnel/domain"
	"despacho_backend/platform/logger"

	"github.com/google/uuid"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testEngine(t *testing.T, stages []config.StageDefinition) *Engine {
	t.Helper()
	reg, err := config.NewRegistry(stages)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	log := logger.New("development")
	return NewEngine(reg, classifier.NewKeyword(), events.NewInMemoryBus(log), log)
}

func register(t *testing.T, e *Engine, name, phone string) ContactView {
	t.Helper()
	v, err := e.Register(context.Background(), name, phone, t0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return v
}

func twoStagePipeline() []config.StageDefinition {
	return []config.StageDefinition{
		{
			ID:          1,
			Title:       "Paso 1",
			Label:       domain.LabelInitialContact,
			AutoMessage: config.AutoMessage{Enabled: true, Text: "Hi"},
			ClassifierGate: config.ClassifierGate{
				Enabled:          true,
				ExpectedKeywords: []string{"uber", "didi"},
				OffTrackReply:    "¿Apps o negocio local?",
			},
		},
		{
			ID:          2,
			Title:       "Paso 2",
			Label:       domain.LabelWelcomeSent,
			AutoMessage: config.AutoMessage{Enabled: true, Text: "Docs?"},
		},
	}
}

func TestRegisterStartsAtLowestStage(t *testing.T) {
	e := testEngine(t, twoStagePipeline())
	v := register(t, e, "Ana Pérez", "+525512345678")

	if v.StageID != 1 {
		t.Errorf("stage = %d, want 1", v.StageID)
	}
	if v.Label != domain.LabelInitialContact {
		t.Errorf("label = %s, want %s", v.Label, domain.LabelInitialContact)
	}
	if v.PendingActions != 1 {
		t.Errorf("pending actions = %d, want 1 (the auto-message)", v.PendingActions)
	}

	if _, err := e.Register(context.Background(), "Otra", "+525512345678", t0); !errors.Is(err, ErrDuplicatePhone) {
		t.Errorf("duplicate phone: got %v, want ErrDuplicatePhone", err)
	}
}

func TestInboundMatchAdvancesAndEmitsNextAutoMessage(t *testing.T) {
	e := testEngine(t, twoStagePipeline())
	v := register(t, e, "Ana", "+525512345678")

	// Flush the stage-1 auto-message first.
	e.Tick(context.Background(), t0)

	intents, err := e.OnInboundMessage(context.Background(), v.ID, "I drive for Uber", t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("OnInboundMessage: %v", err)
	}

	if len(intents) != 1 {
		t.Fatalf("intents = %d, want exactly 1", len(intents))
	}
	if intents[0].Text != "Docs?" {
		t.Errorf("intent text = %q, want %q", intents[0].Text, "Docs?")
	}

	after, _ := e.Contact(v.ID)
	if after.StageID != 2 {
		t.Errorf("stage after match = %d, want 2", after.StageID)
	}

	// The emitted auto-message must not fire again on the next tick.
	if leftover := e.Tick(context.Background(), t0.Add(2*time.Minute)); len(leftover) != 0 {
		t.Errorf("tick after advance re-fired %d intents", len(leftover))
	}
}

func TestInboundMatchAtLastStageIsNoOp(t *testing.T) {
	e := testEngine(t, []config.StageDefinition{{
		ID:    1,
		Title: "Único",
		Label: domain.LabelInitialContact,
		ClassifierGate: config.ClassifierGate{
			Enabled:          true,
			ExpectedKeywords: []string{"uber"},
		},
	}})
	v := register(t, e, "Ana", "+525512345678")

	intents, err := e.OnInboundMessage(context.Background(), v.ID, "soy de uber", t0)
	if err != nil {
		t.Fatalf("OnInboundMessage: %v", err)
	}
	if len(intents) != 0 {
		t.Errorf("intents = %d, want 0", len(intents))
	}
	after, _ := e.Contact(v.ID)
	if after.StageID != 1 {
		t.Errorf("stage = %d, want unchanged 1", after.StageID)
	}
}

func TestInboundOffTopicEmitsInfoThenSteersBack(t *testing.T) {
	e := testEngine(t, twoStagePipeline())
	v := register(t, e, "Ana", "+525512345678")

	intents, err := e.OnInboundMessage(context.Background(), v.ID, "¿cuanto cuesta?", t0)
	if err != nil {
		t.Fatalf("OnInboundMessage: %v", err)
	}
	if len(intents) != 2 {
		t.Fatalf("intents = %d, want 2 (info + off-track)", len(intents))
	}
	if intents[1].Text != "¿Apps o negocio local?" {
		t.Errorf("second intent = %q, want the off-track reply", intents[1].Text)
	}
	after, _ := e.Contact(v.ID)
	if after.StageID != 1 {
		t.Errorf("off-topic question must not advance the stage")
	}
}

func TestInboundNoMatchEmitsOffTrackOnly(t *testing.T) {
	e := testEngine(t, twoStagePipeline())
	v := register(t, e, "Ana", "+525512345678")

	intents, err := e.OnInboundMessage(context.Background(), v.ID, "tengo una tienda", t0)
	if err != nil {
		t.Fatalf("OnInboundMessage: %v", err)
	}
	if len(intents) != 1 || intents[0].Text != "¿Apps o negocio local?" {
		t.Errorf("intents = %v, want only the off-track reply", intents)
	}
}

func TestInboundIgnoredWhenAIDisabled(t *testing.T) {
	e := testEngine(t, twoStagePipeline())
	v := register(t, e, "Ana", "+525512345678")
	if err := e.SetAIEnabled(v.ID, false); err != nil {
		t.Fatalf("SetAIEnabled: %v", err)
	}

	intents, err := e.OnInboundMessage(context.Background(), v.ID, "soy de uber", t0)
	if err != nil {
		t.Fatalf("OnInboundMessage: %v", err)
	}
	if len(intents) != 0 {
		t.Errorf("disabled agent must not reply, got %d intents", len(intents))
	}

	// Unread tracking still works while the agent is off.
	after, _ := e.Contact(v.ID)
	if !after.HasUnread {
		t.Error("inbound message should mark the contact unread")
	}
	if err := e.MarkRead(v.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	after, _ = e.Contact(v.ID)
	if after.HasUnread {
		t.Error("MarkRead should clear the unread marker")
	}
}

func TestTickIdempotence(t *testing.T) {
	e := testEngine(t, twoStagePipeline())
	register(t, e, "Ana", "+525512345678")

	first := e.Tick(context.Background(), t0)
	if len(first) != 1 {
		t.Fatalf("first tick fired %d intents, want 1", len(first))
	}
	second := e.Tick(context.Background(), t0)
	if len(second) != 0 {
		t.Errorf("second tick with the same now fired %d intents, want 0", len(second))
	}
}

func TestQueueExhaustionMovesContactToInactive(t *testing.T) {
	e := testEngine(t, []config.StageDefinition{{
		ID:    1,
		Title: "Paso 1",
		Label: domain.LabelInitialContact,
		FollowUps: []config.FollowUpAction{
			{ID: "seq_1", DelayValue: 10, DelayUnit: config.DelayMinutes, Message: "¿Sigues ahí?"},
		},
		MoveToInactiveAfterFinish: true,
	}})
	v := register(t, e, "Ana", "+525512345678")

	intents := e.Tick(context.Background(), t0.Add(time.Hour))
	if len(intents) != 1 {
		t.Fatalf("tick fired %d intents, want 1", len(intents))
	}

	after, _ := e.Contact(v.ID)
	if after.Label != domain.LabelInactive {
		t.Errorf("label = %s, want %s", after.Label, domain.LabelInactive)
	}
	if !after.Inactive {
		t.Error("contact should be flagged inactive")
	}
	if after.PendingActions != 0 {
		t.Errorf("pending actions = %d, want 0", after.PendingActions)
	}
}

func docPipeline() []config.StageDefinition {
	return []config.StageDefinition{
		{
			ID:    3,
			Title: "Recolección",
			Label: domain.LabelQuoteSent,
			DocumentGate: config.DocumentGate{
				Enabled:        true,
				RequiredDocs:   []string{".cer", ".key"},
				SuccessMessage: "¡Archivos validados!",
			},
			ClassifierGate: config.ClassifierGate{
				Enabled:          true,
				ExpectedKeywords: []string{"uber"},
			},
		},
		{
			ID:          4,
			Title:       "Posible Pago",
			Label:       domain.LabelPossiblePayment,
			AutoMessage: config.AutoMessage{Enabled: true, Text: "Hablemos de tu plan."},
		},
	}
}

func TestDocumentGateRejectThenValidate(t *testing.T) {
	e := testEngine(t, docPipeline())
	v := register(t, e, "Ana", "+525512345678")

	if v.DocStatus != domain.DocAwaiting {
		t.Fatalf("doc status = %s, want awaiting", v.DocStatus)
	}

	// The classifier path is bypassed entirely while gated.
	intents, err := e.OnInboundMessage(context.Background(), v.ID, "soy de uber", t0)
	if err != nil {
		t.Fatalf("OnInboundMessage: %v", err)
	}
	if len(intents) != 0 {
		t.Errorf("gated stage replied to chat: %v", intents)
	}
	after, _ := e.Contact(v.ID)
	if after.StageID != 3 {
		t.Fatalf("gated stage advanced on chat")
	}

	// Rejection: corrective message, same stage, back to awaiting.
	intents, err = e.OnDocumentsSubmitted(context.Background(), v.ID, false, t0)
	if err != nil {
		t.Fatalf("OnDocumentsSubmitted(rejected): %v", err)
	}
	if len(intents) != 1 {
		t.Fatalf("rejected: %d intents, want 1 corrective", len(intents))
	}
	after, _ = e.Contact(v.ID)
	if after.StageID != 3 || after.DocStatus != domain.DocAwaiting {
		t.Errorf("after rejection: stage=%d status=%s, want 3/awaiting", after.StageID, after.DocStatus)
	}

	// Validation: success message + next stage auto-message, advanced.
	intents, err = e.OnDocumentsSubmitted(context.Background(), v.ID, true, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("OnDocumentsSubmitted(validated): %v", err)
	}
	if len(intents) != 2 {
		t.Fatalf("validated: %d intents, want success + auto-message", len(intents))
	}
	if intents[0].Text != "¡Archivos validados!" || intents[1].Text != "Hablemos de tu plan." {
		t.Errorf("unexpected intent texts: %q, %q", intents[0].Text, intents[1].Text)
	}
	after, _ = e.Contact(v.ID)
	if after.StageID != 4 {
		t.Errorf("stage = %d, want 4", after.StageID)
	}
	if after.DocStatus != domain.DocNotApplicable {
		t.Errorf("doc status = %s, want not_applicable after leaving the gate", after.DocStatus)
	}
}

func TestDocumentsSubmittedOutsideGateFails(t *testing.T) {
	e := testEngine(t, twoStagePipeline())
	v := register(t, e, "Ana", "+525512345678")

	_, err := e.OnDocumentsSubmitted(context.Background(), v.ID, true, t0)
	if !errors.Is(err, ErrNotInDocumentGateStage) {
		t.Errorf("got %v, want ErrNotInDocumentGateStage", err)
	}
}

func TestManualOverride(t *testing.T) {
	e := testEngine(t, twoStagePipeline())
	v := register(t, e, "Ana", "+525512345678")

	intents, err := e.OnManualOverride(context.Background(), v.ID, 2, t0)
	if err != nil {
		t.Fatalf("OnManualOverride: %v", err)
	}
	if len(intents) != 1 || intents[0].Text != "Docs?" {
		t.Errorf("override should emit the target's auto-message, got %v", intents)
	}

	// Unknown target: rejected, state unchanged.
	if _, err := e.OnManualOverride(context.Background(), v.ID, 99, t0); !errors.Is(err, ErrInvalidManualTarget) {
		t.Errorf("got %v, want ErrInvalidManualTarget", err)
	}
	after, _ := e.Contact(v.ID)
	if after.StageID != 2 {
		t.Errorf("failed override mutated stage to %d", after.StageID)
	}
}

func TestConvertCancelsPendingActions(t *testing.T) {
	e := testEngine(t, twoStagePipeline())
	v := register(t, e, "Ana", "+525512345678")

	if err := e.Convert(context.Background(), v.ID, t0); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if intents := e.Tick(context.Background(), t0.Add(time.Hour)); len(intents) != 0 {
		t.Errorf("tick fired %d intents for a converted contact", len(intents))
	}

	after, _ := e.Contact(v.ID)
	if after.State != domain.StateConverted {
		t.Errorf("state = %s, want converted", after.State)
	}
	if after.PendingActions != 0 {
		t.Errorf("pending actions = %d, want 0", after.PendingActions)
	}

	// Terminal contacts reject further commands.
	if _, err := e.OnManualOverride(context.Background(), v.ID, 2, t0); !errors.Is(err, ErrContactClosed) {
		t.Errorf("override on converted contact: got %v, want ErrContactClosed", err)
	}
}

func TestUnknownContactIsSurfaced(t *testing.T) {
	e := testEngine(t, twoStagePipeline())

	_, err := e.OnInboundMessage(context.Background(), uuid.New(), "hola", t0)
	if !errors.Is(err, ErrUnknownContact) {
		t.Errorf("got %v, want ErrUnknownContact", err)
	}
}

func TestSuggestMessageFollowsPursuitPolicy(t *testing.T) {
	stages := twoStagePipeline()
	stages[1].PursuitPolicy = config.PursuitPolicy{Enabled: true, Intensity: domain.IntensityHigh}
	e := testEngine(t, stages)
	v := register(t, e, "María López", "+525512345678")

	// Stage 1 has no policy: soft default greeting.
	msg, err := e.SuggestMessage(v.ID)
	if err != nil {
		t.Fatalf("SuggestMessage: %v", err)
	}
	if msg != "Hola María, ¿tienes alguna duda?" {
		t.Errorf("default suggestion = %q", msg)
	}

	if _, err := e.OnManualOverride(context.Background(), v.ID, 2, t0); err != nil {
		t.Fatalf("OnManualOverride: %v", err)
	}
	msg, _ = e.SuggestMessage(v.ID)
	if msg == "Hola María, ¿tienes alguna duda?" {
		t.Error("HIGH intensity stage should escalate the suggestion")
	}
}

func TestListContactsAndCounts(t *testing.T) {
	e := testEngine(t, docPipeline())
	a := register(t, e, "Ana", "+525512345678")
	b := register(t, e, "Beto", "+525587654321")

	if err := e.SetFlag(a.ID, domain.FlagPossiblePayment, true); err != nil {
		t.Fatalf("SetFlag: %v", err)
	}
	if _, err := e.OnInboundMessage(context.Background(), b.ID, "hola", t0.Add(time.Minute)); err != nil {
		t.Fatalf("OnInboundMessage: %v", err)
	}

	counts := e.Counts()
	if counts[FilterAll] != 2 {
		t.Errorf("ALL = %d, want 2", counts[FilterAll])
	}
	if counts[FilterPossiblePayment] != 1 {
		t.Errorf("POSIBLE_PAGO = %d, want 1", counts[FilterPossiblePayment])
	}
	if counts[FilterUnread] != 1 {
		t.Errorf("UNREAD = %d, want 1", counts[FilterUnread])
	}
	if counts[FilterAwaitingDocs] != 2 {
		t.Errorf("DOC_COLLECTION = %d, want 2", counts[FilterAwaitingDocs])
	}

	unread := e.ListContacts(FilterUnread)
	if len(unread) != 1 || unread[0].ID != b.ID {
		t.Errorf("UNREAD list = %v, want only Beto", unread)
	}

	// Label filter: both contacts sit in the quote-sent stage.
	byLabel := e.ListContacts(Filter(domain.LabelQuoteSent))
	if len(byLabel) != 2 {
		t.Errorf("label filter matched %d, want 2", len(byLabel))
	}
}

func TestAutoOnlyStageGoesInactiveAfterOverride(t *testing.T) {
	stages := twoStagePipeline()
	stages[1].AutoMessage = config.AutoMessage{Enabled: true, Text: "Hasta pronto"}
	stages[1].MoveToInactiveAfterFinish = true
	e := testEngine(t, stages)
	v := register(t, e, "Ana", "+525512345678")

	// Entering via override pops the auto-message right away, leaving the
	// queue empty without any tick having emptied it.
	intents, err := e.OnManualOverride(context.Background(), v.ID, 2, t0)
	if err != nil {
		t.Fatalf("OnManualOverride: %v", err)
	}
	if len(intents) != 1 || intents[0].Text != "Hasta pronto" {
		t.Fatalf("override intents = %v, want the auto-message", intents)
	}

	if tick := e.Tick(context.Background(), t0.Add(time.Hour)); len(tick) != 0 {
		t.Errorf("tick fired %d intents on an exhausted queue", len(tick))
	}

	after, _ := e.Contact(v.ID)
	if !after.Inactive {
		t.Error("contact should be inactive once its whole queue has fired")
	}
	if after.Label != domain.LabelInactive {
		t.Errorf("label = %s, want %s", after.Label, domain.LabelInactive)
	}
	if after.PendingActions != 0 {
		t.Errorf("pending actions = %d, want 0", after.PendingActions)
	}
}

func TestAwaitingDocsFilterTracksDocStatus(t *testing.T) {
	stages := docPipeline()
	// A non-gated stage sharing the gated stage's label must not count.
	stages = append(stages, config.StageDefinition{
		ID:    5,
		Title: "Recolección manual",
		Label: domain.LabelQuoteSent,
	})
	e := testEngine(t, stages)
	a := register(t, e, "Ana", "+525512345678")
	b := register(t, e, "Beto", "+525587654321")

	if _, err := e.OnManualOverride(context.Background(), b.ID, 5, t0); err != nil {
		t.Fatalf("OnManualOverride: %v", err)
	}

	if counts := e.Counts(); counts[FilterAwaitingDocs] != 1 {
		t.Errorf("DOC_COLLECTION = %d, want only the gated contact", counts[FilterAwaitingDocs])
	}
	list := e.ListContacts(FilterAwaitingDocs)
	if len(list) != 1 || list[0].ID != a.ID {
		t.Errorf("DOC_COLLECTION list = %v, want only Ana", list)
	}

	// The shared label still groups both under the label filter.
	if byLabel := e.ListContacts(Filter(domain.LabelQuoteSent)); len(byLabel) != 2 {
		t.Errorf("label filter matched %d, want 2", len(byLabel))
	}
}

func TestFindByPhoneNormalizes(t *testing.T) {
	e := testEngine(t, twoStagePipeline())
	v := register(t, e, "Ana", "+52 55 1234 5678")

	found, ok := e.FindByPhone("5512345678")
	if !ok {
		t.Fatal("FindByPhone should resolve the national form")
	}
	if found.ID != v.ID {
		t.Error("resolved the wrong contact")
	}
}
