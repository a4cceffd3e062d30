// Package job implements the job coordinator (component I): lifecycle
// and counters for a scan job, sqlite-backed via internal/store. Grounded
// on the teacher's LanceDBStore shape (mutex + *sql.DB, ExecContext calls)
// adapted to the queued→running→{completed,skipped,failed} state machine
// in §4.I.
package job

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sitforge/dlpsit/internal/store"
)

// Status is one of the job lifecycle states.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusSkipped || s == StatusFailed
}

// Job is the audit/lifecycle record for one scan run.
type Job struct {
	ID              string
	Status          Status
	FileName        string
	Error           string
	TotalFiles      int
	ProcessedFiles  int
	EntitiesFound   int
	FindingsCreated int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Coordinator implements §4.I's create/update_status/update_counts
// operations, each idempotent on a missing job id.
type Coordinator struct {
	db *store.DB
}

func NewCoordinator(db *store.DB) *Coordinator {
	return &Coordinator{db: db}
}

// Create inserts a new job in the queued state.
func (c *Coordinator) Create(ctx context.Context, jobID string, fileName string) (Job, error) {
	c.db.Lock()
	defer c.db.Unlock()

	_, err := c.db.Conn().ExecContext(ctx,
		`INSERT INTO jobs (id, status, file_name) VALUES (?, ?, ?)`,
		jobID, string(StatusQueued), fileName)
	if err != nil {
		return Job{}, err
	}
	return c.get(ctx, jobID)
}

// UpdateStatus transitions a job's status. No-op if the job does not
// exist or is already in a terminal state (terminal states are immutable
// per §3).
func (c *Coordinator) UpdateStatus(ctx context.Context, jobID string, status Status, errMsg string) error {
	c.db.Lock()
	defer c.db.Unlock()

	current, err := c.get(ctx, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if current.Status.terminal() {
		return nil
	}

	_, err = c.db.Conn().ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), nullIfEmpty(errMsg), jobID)
	return err
}

// UpdateCounts sets the job's progress counters. total, when negative, is
// left unchanged (callers pass -1 to mean "don't touch total_files").
func (c *Coordinator) UpdateCounts(ctx context.Context, jobID string, processed, entitiesFound, findingsCreated, total int) error {
	c.db.Lock()
	defer c.db.Unlock()

	if _, err := c.get(ctx, jobID); errors.Is(err, sql.ErrNoRows) {
		return nil
	} else if err != nil {
		return err
	}

	if total >= 0 {
		_, err := c.db.Conn().ExecContext(ctx,
			`UPDATE jobs SET processed_files = ?, entities_found = ?, findings_created = ?, total_files = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			processed, entitiesFound, findingsCreated, total, jobID)
		return err
	}
	_, err := c.db.Conn().ExecContext(ctx,
		`UPDATE jobs SET processed_files = ?, entities_found = ?, findings_created = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		processed, entitiesFound, findingsCreated, jobID)
	return err
}

// Get returns the current state of a job.
func (c *Coordinator) Get(ctx context.Context, jobID string) (Job, error) {
	c.db.Lock()
	defer c.db.Unlock()
	return c.get(ctx, jobID)
}

func (c *Coordinator) get(ctx context.Context, jobID string) (Job, error) {
	var j Job
	var fileName, errMsg sql.NullString
	row := c.db.Conn().QueryRowContext(ctx,
		`SELECT id, status, file_name, error, total_files, processed_files, entities_found, findings_created, created_at, updated_at
		 FROM jobs WHERE id = ?`, jobID)
	if err := row.Scan(&j.ID, &j.Status, &fileName, &errMsg, &j.TotalFiles, &j.ProcessedFiles, &j.EntitiesFound, &j.FindingsCreated, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return Job{}, err
	}
	j.FileName = fileName.String
	j.Error = errMsg.String
	return j, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
