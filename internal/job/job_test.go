package job

import (
	"context"
	"testing"

	"github.com/sitforge/dlpsit/internal/store"
)

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newTestDB(t))

	created, err := c.Create(ctx, "job-1", "report.pdf")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Status != StatusQueued {
		t.Fatalf("Status = %q, want %q", created.Status, StatusQueued)
	}

	got, err := c.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FileName != "report.pdf" {
		t.Fatalf("FileName = %q, want %q", got.FileName, "report.pdf")
	}
}

func TestUpdateStatusIsIdempotentOnMissingJob(t *testing.T) {
	c := NewCoordinator(newTestDB(t))
	if err := c.UpdateStatus(context.Background(), "does-not-exist", StatusRunning, ""); err != nil {
		t.Fatalf("UpdateStatus() on missing job error = %v, want nil", err)
	}
}

func TestUpdateStatusIsImmutableAfterTerminal(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newTestDB(t))
	c.Create(ctx, "job-1", "a.txt")

	if err := c.UpdateStatus(ctx, "job-1", StatusCompleted, ""); err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateStatus(ctx, "job-1", StatusFailed, "too late"); err != nil {
		t.Fatal(err)
	}

	got, err := c.Get(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("Status = %q, want terminal status to be immutable (%q)", got.Status, StatusCompleted)
	}
}

func TestUpdateCountsLeavesTotalUnchangedWhenNegative(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(newTestDB(t))
	c.Create(ctx, "job-1", "a.txt")

	if err := c.UpdateCounts(ctx, "job-1", 0, 0, 0, 10); err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateCounts(ctx, "job-1", 5, 2, 1, -1); err != nil {
		t.Fatal(err)
	}

	got, err := c.Get(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalFiles != 10 {
		t.Fatalf("TotalFiles = %d, want 10 (unchanged by the -1 call)", got.TotalFiles)
	}
	if got.ProcessedFiles != 5 || got.EntitiesFound != 2 || got.FindingsCreated != 1 {
		t.Fatalf("counters not updated: %+v", got)
	}
}
