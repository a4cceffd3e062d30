package cache

import (
	"context"
	"testing"

	"github.com/sitforge/dlpsit/internal/store"
)

func TestIsProcessedBeforeAndAfterMark(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	c := New(db)
	digest := "abc123"

	before, err := c.IsProcessed(ctx, digest)
	if err != nil {
		t.Fatal(err)
	}
	if before {
		t.Fatal("IsProcessed() = true before MarkProcessed")
	}

	if err := c.MarkProcessed(ctx, "/tmp/file.txt", digest); err != nil {
		t.Fatal(err)
	}

	after, err := c.IsProcessed(ctx, digest)
	if err != nil {
		t.Fatal(err)
	}
	if !after {
		t.Fatal("IsProcessed() = false after MarkProcessed")
	}
}

func TestMarkProcessedUpsertsOnRepeat(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	c := New(db)
	if err := c.MarkProcessed(ctx, "/tmp/a.txt", "digest-1"); err != nil {
		t.Fatal(err)
	}
	if err := c.MarkProcessed(ctx, "/tmp/b.txt", "digest-1"); err != nil {
		t.Fatalf("second MarkProcessed() with same digest error = %v", err)
	}
}
