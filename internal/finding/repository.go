package finding

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/sitforge/dlpsit/internal/store"
)

// Finding is a persisted candidate, scoped to a job and a virtual path.
type Finding struct {
	ID                 string
	JobID              string
	FilePath           string // virtual_path
	EntityType         string
	EntityText         string
	Score              float64
	Start              int
	End                int
	Context            string
	PrimaryRegex       string
	SupportingKeywords []string
}

// Repository persists finding candidates under a job, per §3's Finding
// entity and §4.H's "append via the findings repository under the
// current job" instruction.
type Repository struct {
	db *store.DB
}

func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// SaveCandidates persists candidates, each becoming one Finding row tied
// to jobID and virtualPath. Returns the stored findings with generated
// ids, in the same order as candidates.
func (r *Repository) SaveCandidates(ctx context.Context, jobID, virtualPath string, candidates []Candidate) ([]Finding, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (id, job_id, file_path, entity_type, entity_text, score, start_offset, end_offset, context, primary_regex, supporting_keywords)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	findings := make([]Finding, 0, len(candidates))
	for _, c := range candidates {
		id := uuid.NewString()
		keywords := strings.Join(c.SupportingKeywords, ",")
		if _, err := stmt.ExecContext(ctx, id, jobID, virtualPath, c.EntityType, c.EntityText, c.Score, c.Start, c.End, c.Context, c.PrimaryRegex, keywords); err != nil {
			return nil, err
		}
		findings = append(findings, Finding{
			ID: id, JobID: jobID, FilePath: virtualPath, EntityType: c.EntityType, EntityText: c.EntityText,
			Score: c.Score, Start: c.Start, End: c.End, Context: c.Context, PrimaryRegex: c.PrimaryRegex,
			SupportingKeywords: c.SupportingKeywords,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return findings, nil
}

// CountByJob returns the number of findings recorded for a job.
func (r *Repository) CountByJob(ctx context.Context, jobID string) (int, error) {
	r.db.Lock()
	defer r.db.Unlock()

	var count int
	err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM findings WHERE job_id = ?`, jobID).Scan(&count)
	return count, err
}
