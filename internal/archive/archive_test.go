package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/sitforge/dlpsit/internal/apperr"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %q: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func TestExtractZipSlipDefense(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{"../evil.txt": "pwned"})

	dest := filepath.Join(dir, "dest")
	_, err := Extract(zipPath, dest, Limits{MaxFiles: 100, MaxBytes: 1 << 20})
	if err == nil {
		t.Fatalf("expected zip-slip extraction to fail")
	}
	if !apperr.IsArchiveError(err) {
		t.Fatalf("expected ArchiveExtractionError, got %v (%T)", err, err)
	}

	if _, statErr := os.Stat(filepath.Join(dir, "evil.txt")); statErr == nil {
		t.Fatalf("evil.txt was written outside destination")
	}
}

func TestExtractArchiveSizeCap(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "big.zip")
	writeZip(t, zipPath, map[string]string{"file.txt": "0123456789"})

	dest := filepath.Join(dir, "dest")
	_, err := Extract(zipPath, dest, Limits{MaxFiles: 100, MaxBytes: 5})
	if err == nil {
		t.Fatalf("expected size-cap extraction to fail")
	}
	if !apperr.IsArchiveError(err) {
		t.Fatalf("expected ArchiveExtractionError, got %v (%T)", err, err)
	}
}

func TestExtractZipTooManyFiles(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "many.zip")
	writeZip(t, zipPath, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})

	dest := filepath.Join(dir, "dest")
	_, err := Extract(zipPath, dest, Limits{MaxFiles: 2, MaxBytes: 1 << 20})
	if err == nil {
		t.Fatalf("expected file-count cap extraction to fail")
	}
}

func TestExtractZipOK(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "ok.zip")
	writeZip(t, zipPath, map[string]string{
		"a.txt":          "hello",
		"nested/b.txt":   "world",
	})

	dest := filepath.Join(dir, "dest")
	items, err := Extract(zipPath, dest, Limits{MaxFiles: 100, MaxBytes: 1 << 20})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 extracted items, got %d", len(items))
	}
	for _, item := range items {
		if _, err := os.Stat(item.Path); err != nil {
			t.Errorf("extracted file missing: %v", err)
		}
	}
}
