// Package cache implements the processed-file cache (component G):
// a global, content-digest-keyed dedup store shared across jobs.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sitforge/dlpsit/internal/store"
)

type Cache struct {
	db *store.DB
}

func New(db *store.DB) *Cache {
	return &Cache{db: db}
}

// IsProcessed reports whether sha256 has already been analyzed, per §4.G.
func (c *Cache) IsProcessed(ctx context.Context, sha256 string) (bool, error) {
	c.db.Lock()
	defer c.db.Unlock()

	var exists int
	err := c.db.Conn().QueryRowContext(ctx, `SELECT 1 FROM processed_files WHERE sha256 = ?`, sha256).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkProcessed upserts (sha256, path, now); path is informational only.
func (c *Cache) MarkProcessed(ctx context.Context, path, sha256 string) error {
	c.db.Lock()
	defer c.db.Unlock()

	_, err := c.db.Conn().ExecContext(ctx,
		`INSERT INTO processed_files (sha256, path, processed_at) VALUES (?, ?, ?)
		 ON CONFLICT(sha256) DO UPDATE SET path = excluded.path, processed_at = excluded.processed_at`,
		sha256, path, time.Now().UTC())
	return err
}
