// Package scanitem implements the scan-item recorder (component M): an
// append-only audit log, one record per analyzed leaf or inspected
// container, per §3 and §4.M.
package scanitem

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sitforge/dlpsit/internal/store"
)

// ExtractionMethod records how a leaf's text was obtained.
type ExtractionMethod string

const (
	MethodText      ExtractionMethod = "text"
	MethodOCR       ExtractionMethod = "ocr"
	MethodHybrid    ExtractionMethod = "hybrid"
	MethodContainer ExtractionMethod = "container"
	MethodNone      ExtractionMethod = "none"
)

// MaxPreviewChars bounds text_preview; text_chars always records the full
// length regardless of truncation.
const MaxPreviewChars = 4000

// ScanItem is one audit record.
type ScanItem struct {
	JobID             string
	VirtualPath       string
	SourcePath        string
	MimeType          string
	ExtractionMethod  ExtractionMethod
	OCRUsed           bool
	TextChars         int
	TextPreview       string
	Warnings          []string
}

// Recorder appends ScanItems to the shared database.
type Recorder struct {
	db *store.DB
}

func NewRecorder(db *store.DB) *Recorder {
	return &Recorder{db: db}
}

// Record inserts one scan-item, truncating the preview to MaxPreviewChars
// while text_chars keeps the untruncated length supplied by the caller.
func (r *Recorder) Record(ctx context.Context, item ScanItem) error {
	preview := item.TextPreview
	if utf8.RuneCountInString(preview) > MaxPreviewChars {
		preview = string([]rune(preview)[:MaxPreviewChars])
	}

	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().ExecContext(ctx,
		`INSERT INTO scan_items (job_id, virtual_path, source_path, mime_type, extraction_method, ocr_used, text_chars, text_preview, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.JobID, item.VirtualPath, item.SourcePath, nullIfEmpty(item.MimeType), string(item.ExtractionMethod),
		boolToInt(item.OCRUsed), item.TextChars, nullIfEmpty(preview), nullIfEmpty(strings.Join(item.Warnings, "\n")))
	return err
}

// CountByMethodNot returns the number of scan-items for jobID whose
// extraction_method differs from method — used to check invariant 3 in
// §8 (files_processed ≥ non-container scan-items).
func (r *Recorder) CountByMethodNot(ctx context.Context, jobID string, method ExtractionMethod) (int, error) {
	r.db.Lock()
	defer r.db.Unlock()

	var count int
	err := r.db.Conn().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scan_items WHERE job_id = ? AND extraction_method != ?`,
		jobID, string(method)).Scan(&count)
	return count, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
