package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/sitforge/dlpsit/internal/cache"
	"github.com/sitforge/dlpsit/internal/config"
	"github.com/sitforge/dlpsit/internal/finding"
	"github.com/sitforge/dlpsit/internal/job"
	"github.com/sitforge/dlpsit/internal/logging"
	"github.com/sitforge/dlpsit/internal/pii"
	"github.com/sitforge/dlpsit/internal/scanitem"
	"github.com/sitforge/dlpsit/internal/store"
)

func newTestProcessor(t *testing.T) (*Processor, *store.DB, *job.Coordinator, *finding.Repository) {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	engine := pii.NewRegexEngine(nil)
	c := cache.New(db)
	si := scanitem.NewRecorder(db)
	fr := finding.NewRepository(db)
	jc := job.NewCoordinator(db)
	logger := logging.New(os.Stderr, logging.LevelError)

	return New(cfg, engine, c, si, fr, jc, logger), db, jc, fr
}

func TestProcessTextFileProducesFinding(t *testing.T) {
	ctx := context.Background()
	p, _, jc, fr := newTestProcessor(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	content := "Employee SSN is 123-45-6789 and social security number should be masked."
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	jobID := uuid.NewString()
	if _, err := jc.Create(ctx, jobID, "report.txt"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stats, err := p.Process(ctx, jobID, path, DefaultOptions())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if stats.FilesProcessed != 1 {
		t.Fatalf("FilesProcessed = %d, want 1", stats.FilesProcessed)
	}
	if stats.EntitiesFound == 0 {
		t.Fatal("expected at least one entity hit")
	}

	count, err := fr.CountByJob(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if count == 0 {
		t.Fatal("expected at least one persisted finding")
	}

	finalJob, err := jc.Get(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if finalJob.EntitiesFound == 0 || finalJob.FindingsCreated == 0 {
		t.Fatalf("job counters not updated: %+v", finalJob)
	}
}

func TestProcessIdempotentOnReSubmission(t *testing.T) {
	ctx := context.Background()
	p, _, jc, _ := newTestProcessor(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("nothing sensitive here"), 0o644); err != nil {
		t.Fatal(err)
	}

	jobID1 := uuid.NewString()
	jc.Create(ctx, jobID1, "note.txt")
	stats1, err := p.Process(ctx, jobID1, path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if stats1.FilesProcessed != 1 {
		t.Fatalf("first run FilesProcessed = %d, want 1", stats1.FilesProcessed)
	}

	jobID2 := uuid.NewString()
	jc.Create(ctx, jobID2, "note.txt")
	stats2, err := p.Process(ctx, jobID2, path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if stats2.FilesProcessed != 0 {
		t.Fatalf("second run FilesProcessed = %d, want 0 (cached digest)", stats2.FilesProcessed)
	}
}

func TestProcessMaxDepthZeroStillProcessesDirectoryChildren(t *testing.T) {
	ctx := context.Background()
	p, _, jc, _ := newTestProcessor(t)
	p.cfg.MaxArchiveDepth = 0

	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(sub, "deep.txt")
	if err := os.WriteFile(path, []byte("deep content"), 0o644); err != nil {
		t.Fatal(err)
	}

	jobID := uuid.NewString()
	jc.Create(ctx, jobID, "nested")
	stats, err := p.Process(ctx, jobID, sub, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesProcessed != 1 {
		t.Fatalf("FilesProcessed = %d, want 1 (root dir at depth 0 still expands its direct children)", stats.FilesProcessed)
	}
}
