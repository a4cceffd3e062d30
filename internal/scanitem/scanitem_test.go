package scanitem

import (
	"context"
	"strings"
	"testing"

	"github.com/sitforge/dlpsit/internal/store"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRecorder(db)
}

func TestRecordTruncatesPreviewButKeepsFullTextChars(t *testing.T) {
	ctx := context.Background()
	r := newTestRecorder(t)

	longText := strings.Repeat("a", MaxPreviewChars+500)
	err := r.Record(ctx, ScanItem{
		JobID: "job-1", VirtualPath: "a.txt", SourcePath: "/tmp/a.txt",
		ExtractionMethod: MethodText, TextChars: len(longText), TextPreview: longText,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	var textChars, previewLen int
	if err := r.db.Conn().QueryRowContext(ctx,
		`SELECT text_chars, length(text_preview) FROM scan_items WHERE job_id = ?`, "job-1").Scan(&textChars, &previewLen); err != nil {
		t.Fatal(err)
	}
	if previewLen != MaxPreviewChars {
		t.Fatalf("stored preview length = %d, want %d", previewLen, MaxPreviewChars)
	}
	if textChars != len(longText) {
		t.Fatalf("text_chars = %d, want %d", textChars, len(longText))
	}
}

func TestCountByMethodNotExcludesGivenMethod(t *testing.T) {
	ctx := context.Background()
	r := newTestRecorder(t)

	r.Record(ctx, ScanItem{JobID: "job-1", VirtualPath: "a.zip", ExtractionMethod: MethodContainer})
	r.Record(ctx, ScanItem{JobID: "job-1", VirtualPath: "a.zip::inner.txt", ExtractionMethod: MethodText})
	r.Record(ctx, ScanItem{JobID: "job-1", VirtualPath: "b.png", ExtractionMethod: MethodOCR, OCRUsed: true})

	count, err := r.CountByMethodNot(ctx, "job-1", MethodContainer)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("CountByMethodNot() = %d, want 2 (excluding the container record)", count)
	}
}

func TestRecordJoinsWarningsWithNewline(t *testing.T) {
	ctx := context.Background()
	r := newTestRecorder(t)

	err := r.Record(ctx, ScanItem{
		JobID: "job-1", VirtualPath: "bad.zip", ExtractionMethod: MethodContainer,
		Warnings: []string{"entry count exceeded", "truncated"},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	var warnings string
	if err := r.db.Conn().QueryRowContext(ctx,
		`SELECT warnings FROM scan_items WHERE job_id = ?`, "job-1").Scan(&warnings); err != nil {
		t.Fatal(err)
	}
	if warnings != "entry count exceeded\ntruncated" {
		t.Fatalf("stored warnings = %q, want newline-joined", warnings)
	}
}
