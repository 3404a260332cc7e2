package config

import (
	"sort"
	"sync"

	"despacho_backend/platform/apperr"
)

// Named configuration errors surfaced to the operator.
var (
	// ErrCannotRemoveLastStage rejects deleting the sole remaining stage.
	ErrCannotRemoveLastStage = apperr.Conflict("cannot remove the last remaining stage")
	// ErrStageNotFound is returned for operations on an unknown stage id.
	ErrStageNotFound = apperr.NotFound("stage not found")
	// ErrDuplicateStageID rejects adding a stage whose id already exists.
	ErrDuplicateStageID = apperr.Conflict("stage id already exists")
)

// Registry is the ordered catalog of stage definitions. It is read-mostly:
// ticks read it on every stage entry, the operator writes it only during
// configuration edits, so a reader-biased lock fits.
type Registry struct {
	mu     sync.RWMutex
	stages map[int]StageDefinition
}

// NewRegistry builds a registry from the given stages. At least one stage
// is required and every definition must validate.
func NewRegistry(stages []StageDefinition) (*Registry, error) {
	if len(stages) == 0 {
		return nil, apperr.Validation("at least one stage definition is required")
	}

	r := &Registry{stages: make(map[int]StageDefinition, len(stages))}
	for _, s := range stages {
		if err := s.Validate(); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
		}
		if _, dup := r.stages[s.ID]; dup {
			return nil, ErrDuplicateStageID
		}
		r.stages[s.ID] = s
	}
	return r, nil
}

// Add inserts a new stage and returns its id. A zero id is assigned the
// next id after the current highest.
func (r *Registry) Add(def StageDefinition) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.ID == 0 {
		max := 0
		for id := range r.stages {
			if id > max {
				max = id
			}
		}
		def.ID = max + 1
	}
	if err := def.Validate(); err != nil {
		return 0, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	if _, dup := r.stages[def.ID]; dup {
		return 0, ErrDuplicateStageID
	}

	r.stages[def.ID] = def
	return def.ID, nil
}

// Remove deletes a stage. Removing the last remaining stage is rejected;
// contacts currently in the removed stage keep their cached lifecycle
// label, the coupling is by label, not id.
func (r *Registry) Remove(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stages[id]; !ok {
		return ErrStageNotFound
	}
	if len(r.stages) == 1 {
		return ErrCannotRemoveLastStage
	}

	delete(r.stages, id)
	return nil
}

// Update replaces the definition of an existing stage in place.
func (r *Registry) Update(id int, def StageDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stages[id]; !ok {
		return ErrStageNotFound
	}
	def.ID = id
	if err := def.Validate(); err != nil {
		return apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	r.stages[id] = def
	return nil
}

// Get returns the stage with the given id.
func (r *Registry) Get(id int) (StageDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stages[id]
	return s, ok
}

// Next returns the stage with the smallest id greater than the given one.
// Ids are the declared pipeline order; walking by ascending id stays
// correct when stages were removed and the sequence has gaps.
func (r *Registry) Next(id int) (StageDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := 0
	for candidate := range r.stages {
		if candidate > id && (best == 0 || candidate < best) {
			best = candidate
		}
	}
	if best == 0 {
		return StageDefinition{}, false
	}
	return r.stages[best], true
}

// First returns the stage with the lowest id, the default entry stage.
func (r *Registry) First() (StageDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := 0
	for id := range r.stages {
		if best == 0 || id < best {
			best = id
		}
	}
	if best == 0 {
		return StageDefinition{}, false
	}
	return r.stages[best], true
}

// List returns all stages sorted by ascending id.
func (r *Registry) List() []StageDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]StageDefinition, 0, len(r.stages))
	for _, s := range r.stages {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
