// Package keywordlist implements creation, listing and lookup of
// KeywordList entities (§3), the non-owning lookup target of
// SupportingItem.KeywordListID.
package keywordlist

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

// Create inserts a new keyword list with its ordered items.
func (r *Repository) Create(ctx context.Context, name, description string, items []string) (model.KeywordList, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return model.KeywordList{}, err
	}
	defer tx.Rollback()

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `INSERT INTO keyword_lists (id, name, description) VALUES (?, ?, ?)`, id, name, nullIfEmpty(description)); err != nil {
		return model.KeywordList{}, err
	}
	for i, item := range items {
		if _, err := tx.ExecContext(ctx, `INSERT INTO keyword_list_items (keyword_list_id, value, position) VALUES (?, ?, ?)`, id, item, i); err != nil {
			return model.KeywordList{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.KeywordList{}, err
	}
	return r.get(ctx, id)
}

// Get loads a keyword list with its items in insertion order.
func (r *Repository) Get(ctx context.Context, id string) (model.KeywordList, error) {
	r.db.Lock()
	defer r.db.Unlock()
	return r.get(ctx, id)
}

// get is Get without acquiring the lock, for callers (like Create) that
// already hold it.
func (r *Repository) get(ctx context.Context, id string) (model.KeywordList, error) {
	var kl model.KeywordList
	var desc sql.NullString
	err := r.db.Conn().QueryRowContext(ctx, `SELECT id, name, description FROM keyword_lists WHERE id = ?`, id).
		Scan(&kl.ID, &kl.Name, &desc)
	if err != nil {
		return model.KeywordList{}, err
	}
	kl.Description = desc.String

	rows, err := r.db.Conn().QueryContext(ctx, `SELECT value FROM keyword_list_items WHERE keyword_list_id = ? ORDER BY position`, id)
	if err != nil {
		return model.KeywordList{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return model.KeywordList{}, err
		}
		kl.Items = append(kl.Items, v)
	}
	return kl, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
