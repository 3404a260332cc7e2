// Package funnel provides the prospect lifecycle bounded context: the
// stage catalog, the per-contact runtime and the engine that drives both.
// This file defines the module that encapsulates setup and route
// registration.
package funnel

import (
	"context"
	"fmt"

	"despacho_backend/internal/events"
	"despacho_backend/internal/funnel/classifier"
	"despacho_backend/internal/funnel/config"
	ptconfig "despacho_backend/platform/config"
	"despacho_backend/platform/logger"
	"despacho_backend/platform/validator"
)

// Store is the persistence surface the module needs. Implemented by
// repository.Repository; kept as an interface so the funnel package does
// not import its own subpackage.
type Store interface {
	ReplaceStages(ctx context.Context, stages []config.StageDefinition) error
	LoadStages(ctx context.Context) ([]config.StageDefinition, error)
	SaveContacts(ctx context.Context, snaps []ContactSnapshot) error
	LoadContacts(ctx context.Context) ([]ContactSnapshot, error)
}

// Module is the funnel bounded context module.
type Module struct {
	engine *Engine
	store  Store
	val    *validator.Validator
	log    *logger.Logger
}

// ModuleConfig narrows the platform config to what the module reads.
type ModuleConfig interface {
	ptconfig.EngineConfig
	ptconfig.ClassifierConfig
}

// NewModule creates and initializes the funnel module. The stage catalog
// is loaded from the store when one was persisted, otherwise from the
// YAML file named by the config (falling back to the built-in default
// funnel), and contact runtimes are restored from their last snapshots.
func NewModule(ctx context.Context, store Store, bus events.Bus, val *validator.Validator, cfg ModuleConfig, log *logger.Logger) (*Module, error) {
	stages, err := store.LoadStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage catalog: %w", err)
	}
	if len(stages) == 0 {
		stages, err = config.LoadFileOrDefault(cfg.GetStageConfigPath())
		if err != nil {
			return nil, err
		}
		if err := store.ReplaceStages(ctx, stages); err != nil {
			return nil, fmt.Errorf("failed to seed stage catalog: %w", err)
		}
	}

	registry, err := config.NewRegistry(stages)
	if err != nil {
		return nil, err
	}

	var cls classifier.Classifier
	if cfg.IsLLMClassifierEnabled() {
		gem, err := classifier.NewGemini(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to init gemini classifier: %w", err)
		}
		cls = gem
		log.Info("classifier ready", "kind", "gemini", "model", cfg.GetGeminiModel())
	} else {
		cls = classifier.NewKeyword()
		log.Info("classifier ready", "kind", "keyword")
	}

	engine := NewEngine(registry, cls, bus, log)

	snaps, err := store.LoadContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact snapshots: %w", err)
	}
	for _, snap := range snaps {
		if err := engine.RestoreContact(snap); err != nil {
			log.Error("skipping unrestorable contact snapshot", "contactId", snap.ID, "error", err)
		}
	}
	log.Info("funnel module ready", "stages", len(stages), "contacts", len(snaps))

	return &Module{engine: engine, store: store, val: val, log: log}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "funnel"
}

// Engine returns the funnel engine for the tick loop and tests.
func (m *Module) Engine() *Engine {
	return m.engine
}

// Validator returns the request validator shared with the handlers.
func (m *Module) Validator() *validator.Validator {
	return m.val
}

// Flush persists the stage catalog and every contact snapshot. Called by
// the periodic snapshot loop and once more at shutdown.
func (m *Module) Flush(ctx context.Context) error {
	if err := m.store.ReplaceStages(ctx, m.engine.Registry().List()); err != nil {
		return err
	}
	return m.store.SaveContacts(ctx, m.engine.Snapshot())
}
