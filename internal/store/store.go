// Package store owns the single sqlite-backed *sql.DB shared by every
// repository (job, cache, scanitem, finding, sit, rulepack). Grounded on
// the teacher's vectordb.LanceDBStore
// (internal/adapters/vectordb/lancedb.go): open-then-initSchema, a mutex
// guarding writes, database/sql + mattn/go-sqlite3 for persistence.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the shared connection and the mutex that serializes writers
// across repositories — sqlite allows one writer at a time, and the
// per-job-own-transaction model in §5 still shares this single file.
type DB struct {
	mu  sync.Mutex
	sql *sql.DB
}

// Open creates (if needed) storagePath and opens dlpsit.db inside it,
// applying the full schema.
func Open(storagePath string) (*DB, error) {
	if storagePath == "" {
		storagePath = "./data"
	}
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	dbPath := filepath.Join(storagePath, "dlpsit.db")
	sqlDB, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sql: sqlDB}
	if err := db.initSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

// Conn exposes the underlying *sql.DB for repositories to build their own
// prepared statements and transactions against.
func (d *DB) Conn() *sql.DB { return d.sql }

// Lock and Unlock serialize writers across repositories sharing this
// connection; readers may bypass it where sqlite's own locking suffices.
func (d *DB) Lock()   { d.mu.Lock() }
func (d *DB) Unlock() { d.mu.Unlock() }

func (d *DB) Close() error { return d.sql.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	file_name TEXT,
	error TEXT,
	total_files INTEGER NOT NULL DEFAULT 0,
	processed_files INTEGER NOT NULL DEFAULT 0,
	entities_found INTEGER NOT NULL DEFAULT 0,
	findings_created INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS processed_files (
	sha256 TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	processed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scan_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	virtual_path TEXT NOT NULL,
	source_path TEXT NOT NULL,
	mime_type TEXT,
	extraction_method TEXT NOT NULL,
	ocr_used INTEGER NOT NULL DEFAULT 0,
	text_chars INTEGER NOT NULL DEFAULT 0,
	text_preview TEXT,
	warnings TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_scan_items_job ON scan_items(job_id);

CREATE TABLE IF NOT EXISTS findings (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_text TEXT,
	score REAL NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL,
	context TEXT NOT NULL,
	primary_regex TEXT NOT NULL,
	supporting_keywords TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_findings_job ON findings(job_id);

CREATE TABLE IF NOT EXISTS sits (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sit_versions (
	id TEXT PRIMARY KEY,
	sit_id TEXT NOT NULL REFERENCES sits(id) ON DELETE CASCADE,
	version_number INTEGER NOT NULL,
	entity_type TEXT,
	confidence TEXT,
	source TEXT,
	primary_element_type TEXT NOT NULL,
	primary_element_value TEXT NOT NULL,
	logic_mode TEXT NOT NULL,
	logic_min_n INTEGER,
	logic_max_n INTEGER,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(sit_id, version_number)
);
CREATE INDEX IF NOT EXISTS idx_sit_versions_sit ON sit_versions(sit_id);

CREATE TABLE IF NOT EXISTS supporting_groups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sit_version_id TEXT NOT NULL REFERENCES sit_versions(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_supporting_groups_version ON supporting_groups(sit_version_id);

CREATE TABLE IF NOT EXISTS supporting_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	group_id INTEGER NOT NULL REFERENCES supporting_groups(id) ON DELETE CASCADE,
	item_type TEXT NOT NULL,
	value TEXT,
	keyword_list_id TEXT REFERENCES keyword_lists(id),
	position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_supporting_items_group ON supporting_items(group_id);

CREATE TABLE IF NOT EXISTS keyword_lists (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS keyword_list_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	keyword_list_id TEXT NOT NULL REFERENCES keyword_lists(id) ON DELETE CASCADE,
	value TEXT NOT NULL,
	position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_keyword_list_items_list ON keyword_list_items(keyword_list_id);

CREATE TABLE IF NOT EXISTS rulepacks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	description TEXT,
	publisher TEXT,
	locale TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rulepack_selections (
	rulepack_id TEXT NOT NULL REFERENCES rulepacks(id) ON DELETE CASCADE,
	sit_version_id TEXT NOT NULL REFERENCES sit_versions(id) ON DELETE CASCADE,
	UNIQUE(rulepack_id, sit_version_id)
);
`

func (d *DB) initSchema() error {
	_, err := d.sql.Exec(schema)
	return err
}
