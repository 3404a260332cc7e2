package funnel

import (
	"context"
	"testing"
	"time"

	"despacho_backend/internal/events"
	"despacho_backend/internal/funnel/config"
	"despacho_backend/internal/funnel/domain"
	"despacho_backend/platform/logger"
	"despacho_backend/platform/validator"
)

// memStore is an in-memory Store for module wiring tests.
type memStore struct {
	stages   []config.StageDefinition
	contacts map[string]ContactSnapshot
}

func newMemStore() *memStore {
	return &memStore{contacts: make(map[string]ContactSnapshot)}
}

func (s *memStore) ReplaceStages(_ context.Context, stages []config.StageDefinition) error {
	s.stages = append([]config.StageDefinition(nil), stages...)
	return nil
}

func (s *memStore) LoadStages(_ context.Context) ([]config.StageDefinition, error) {
	return append([]config.StageDefinition(nil), s.stages...), nil
}

func (s *memStore) SaveContacts(_ context.Context, snaps []ContactSnapshot) error {
	for _, snap := range snaps {
		s.contacts[snap.ID.String()] = snap
	}
	return nil
}

func (s *memStore) LoadContacts(_ context.Context) ([]ContactSnapshot, error) {
	out := make([]ContactSnapshot, 0, len(s.contacts))
	for _, snap := range s.contacts {
		out = append(out, snap)
	}
	return out, nil
}

type moduleTestConfig struct{}

func (moduleTestConfig) GetTickInterval() time.Duration     { return 30 * time.Second }
func (moduleTestConfig) GetSnapshotInterval() time.Duration { return 5 * time.Minute }
func (moduleTestConfig) GetTimezone() *time.Location        { return time.UTC }
func (moduleTestConfig) GetStageConfigPath() string         { return "" }
func (moduleTestConfig) GetGeminiAPIKey() string            { return "" }
func (moduleTestConfig) GetGeminiModel() string             { return "" }
func (moduleTestConfig) IsLLMClassifierEnabled() bool       { return false }

func newTestModule(t *testing.T, store *memStore) *Module {
	t.Helper()
	log := logger.New("development")
	m, err := NewModule(context.Background(), store, events.NewInMemoryBus(log), validator.New(), moduleTestConfig{}, log)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}
	return m
}

func TestNewModuleSeedsDefaultStagesIntoEmptyStore(t *testing.T) {
	store := newMemStore()
	m := newTestModule(t, store)

	want := len(config.DefaultStages())
	if got := len(m.Engine().Registry().List()); got != want {
		t.Errorf("registry stages = %d, want %d", got, want)
	}
	if len(store.stages) != want {
		t.Errorf("seeded stages = %d, want %d", len(store.stages), want)
	}
}

func TestNewModuleRestoresContactsFromStore(t *testing.T) {
	store := newMemStore()
	first := newTestModule(t, store)

	v, err := first.Engine().Register(context.Background(), "Ana", "+525512345678", t0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := first.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	second := newTestModule(t, store)
	restored, err := second.Engine().Contact(v.ID)
	if err != nil {
		t.Fatalf("Contact after restart: %v", err)
	}
	if restored.Phone != v.Phone || restored.StageID != v.StageID {
		t.Errorf("restored view = %+v, want phone %s stage %d", restored, v.Phone, v.StageID)
	}

	if _, found := second.Engine().FindByPhone("+525512345678"); !found {
		t.Error("restored contact not reachable by phone")
	}
}

func TestFlushPersistsRegistryEdits(t *testing.T) {
	store := newMemStore()
	m := newTestModule(t, store)

	id, err := m.Engine().Registry().Add(config.StageDefinition{
		Title: "Etapa extra",
		Label: domain.LabelPossiblePayment,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reloaded := newTestModule(t, store)
	if _, ok := reloaded.Engine().Registry().Get(id); !ok {
		t.Errorf("stage %d not persisted across restart", id)
	}
}
