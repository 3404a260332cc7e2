// Package repository persists the stage catalog and contact runtime
// snapshots. Both are stored as jsonb documents: the engine is the source
// of truth while running, the store only has to survive restarts.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"despacho_backend/internal/funnel"
	"despacho_backend/internal/funnel/config"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for the funnel engine.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new funnel repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ReplaceStages stores the full stage catalog, replacing whatever was
// persisted before. The registry is small; a wholesale swap in one
// transaction is simpler than diffing.
func (r *Repository) ReplaceStages(ctx context.Context, stages []config.StageDefinition) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM funnel_stages`); err != nil {
		return fmt.Errorf("failed to clear stage catalog: %w", err)
	}

	query := `
		INSERT INTO funnel_stages (id, definition, updated_at)
		VALUES ($1, $2, $3)`

	now := time.Now()
	for _, stage := range stages {
		raw, err := json.Marshal(stage)
		if err != nil {
			return fmt.Errorf("failed to encode stage %d: %w", stage.ID, err)
		}
		if _, err := tx.Exec(ctx, query, stage.ID, raw, now); err != nil {
			return fmt.Errorf("failed to insert stage %d: %w", stage.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// LoadStages returns the persisted stage catalog ordered by id. An empty
// result means no catalog was ever saved and the caller should seed one.
func (r *Repository) LoadStages(ctx context.Context) ([]config.StageDefinition, error) {
	rows, err := r.pool.Query(ctx, `SELECT definition FROM funnel_stages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage catalog: %w", err)
	}
	defer rows.Close()

	var stages []config.StageDefinition
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		var stage config.StageDefinition
		if err := json.Unmarshal(raw, &stage); err != nil {
			return nil, fmt.Errorf("failed to decode stage: %w", err)
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

// SaveContact upserts one contact snapshot.
func (r *Repository) SaveContact(ctx context.Context, snap funnel.ContactSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode contact %s: %w", snap.ID, err)
	}

	query := `
		INSERT INTO funnel_contacts (id, phone, snapshot, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET phone = $2, snapshot = $3, updated_at = $4`

	if _, err := r.pool.Exec(ctx, query, snap.ID, snap.Phone, raw, time.Now()); err != nil {
		return fmt.Errorf("failed to save contact %s: %w", snap.ID, err)
	}
	return nil
}

// SaveContacts upserts a batch of snapshots in a single transaction, used
// by the periodic flush and at shutdown.
func (r *Repository) SaveContacts(ctx context.Context, snaps []funnel.ContactSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO funnel_contacts (id, phone, snapshot, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET phone = $2, snapshot = $3, updated_at = $4`

	now := time.Now()
	for _, snap := range snaps {
		raw, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to encode contact %s: %w", snap.ID, err)
		}
		if _, err := tx.Exec(ctx, query, snap.ID, snap.Phone, raw, now); err != nil {
			return fmt.Errorf("failed to save contact %s: %w", snap.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// LoadContacts returns all persisted contact snapshots.
func (r *Repository) LoadContacts(ctx context.Context) ([]funnel.ContactSnapshot, error) {
	rows, err := r.pool.Query(ctx, `SELECT snapshot FROM funnel_contacts`)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	defer rows.Close()

	var snaps []funnel.ContactSnapshot
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		var snap funnel.ContactSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode contact: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DeleteContact removes a persisted snapshot.
func (r *Repository) DeleteContact(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM funnel_contacts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete contact %s: %w", id, err)
	}
	return nil
}
