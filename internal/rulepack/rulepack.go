// Package rulepack implements the rulepack repository (component K) and
// the Purview-compatible XML exporter (component L).
package rulepack

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/sitforge/dlpsit/internal/model"
	"github.com/sitforge/dlpsit/internal/store"
)

type Repository struct {
	db *store.DB
}

func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new, empty rulepack.
func (r *Repository) Create(ctx context.Context, rp model.Rulepack) (model.Rulepack, error) {
	r.db.Lock()
	defer r.db.Unlock()

	id := uuid.NewString()
	_, err := r.db.Conn().ExecContext(ctx,
		`INSERT INTO rulepacks (id, name, version, description, publisher, locale) VALUES (?, ?, ?, ?, ?, ?)`,
		id, rp.Name, rp.Version, nullIfEmpty(rp.Description), nullIfEmpty(rp.Publisher), nullIfEmpty(rp.Locale))
	if err != nil {
		return model.Rulepack{}, err
	}
	return r.get(ctx, id)
}

// SetSelections replaces the full selection set for rulepackID:
// delete-then-insert inside one transaction, per §4.J-K's replace
// semantics.
func (r *Repository) SetSelections(ctx context.Context, rulepackID string, sitVersionIDs []string) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rulepack_selections WHERE rulepack_id = ?`, rulepackID); err != nil {
		return err
	}
	for _, vid := range sitVersionIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rulepack_selections (rulepack_id, sit_version_id) VALUES (?, ?)`, rulepackID, vid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get loads a rulepack with its current selection set.
func (r *Repository) Get(ctx context.Context, id string) (model.Rulepack, error) {
	r.db.Lock()
	defer r.db.Unlock()
	return r.get(ctx, id)
}

func (r *Repository) get(ctx context.Context, id string) (model.Rulepack, error) {
	var rp model.Rulepack
	var desc, pub, locale sql.NullString
	err := r.db.Conn().QueryRowContext(ctx,
		`SELECT id, name, version, description, publisher, locale, created_at FROM rulepacks WHERE id = ?`, id).
		Scan(&rp.ID, &rp.Name, &rp.Version, &desc, &pub, &locale, &rp.CreatedAt)
	if err != nil {
		return model.Rulepack{}, err
	}
	rp.Description, rp.Publisher, rp.Locale = desc.String, pub.String, locale.String

	rows, err := r.db.Conn().QueryContext(ctx, `SELECT sit_version_id FROM rulepack_selections WHERE rulepack_id = ?`, id)
	if err != nil {
		return model.Rulepack{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var vid string
		if err := rows.Scan(&vid); err != nil {
			return model.Rulepack{}, err
		}
		rp.Selections = append(rp.Selections, vid)
	}
	return rp, rows.Err()
}

// List returns every rulepack with its current selections.
func (r *Repository) List(ctx context.Context) ([]model.Rulepack, error) {
	r.db.Lock()
	defer r.db.Unlock()

	rows, err := r.db.Conn().QueryContext(ctx, `SELECT id FROM rulepacks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()

	out := make([]model.Rulepack, 0, len(ids))
	for _, id := range ids {
		rp, err := r.get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
