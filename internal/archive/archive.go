// Package archive implements the archive extractor (component B): safe
// unpacking of zip/rar/7z/tar(.gz) into a destination directory, enforcing
// member-count and cumulative-byte limits and rejecting path traversal.
//
// Grounded on the original Python ingestion/archive.py (per-format
// dispatch by suffix, _safe_join containment check, member-count cap
// before extraction) generalized to Go's archive/zip, archive/tar,
// compress/gzip plus nwaples/rardecode and bodgit/sevenzip for the two
// formats the standard library does not cover.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode/v2"

	"github.com/sitforge/dlpsit/internal/apperr"
	"github.com/sitforge/dlpsit/internal/fsutil"
)

// Limits bounds archive extraction.
type Limits struct {
	MaxFiles int
	MaxBytes int64
}

// ExtractedItem is one regular file written to the destination directory.
type ExtractedItem struct {
	Path         string // absolute path on disk
	RelativePath string // archive-relative path, slash-separated
}

// Extract unpacks archivePath into destination, dispatching by lowercased
// suffix. Directories are skipped; only regular files are emitted.
// Extraction is atomic-per-member: a failing member leaves no partial
// output of that member, but files written by earlier members may persist
// if a later member fails.
func Extract(archivePath, destination string, limits Limits) ([]ExtractedItem, error) {
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return nil, apperr.NewArchiveError(archivePath, "creating destination: %v", err)
	}

	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(archivePath, destination, limits)
	case strings.HasSuffix(lower, ".rar"):
		return extractRar(archivePath, destination, limits)
	case strings.HasSuffix(lower, ".7z"):
		return extractSevenZip(archivePath, destination, limits)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return extractTarGz(archivePath, destination, limits)
	case strings.HasSuffix(lower, ".tar"):
		return extractTar(archivePath, destination, limits)
	default:
		return nil, apperr.NewArchiveError(archivePath, "unsupported archive type")
	}
}

// safeJoin resolves relativePath against destination and rejects any
// result outside of it (zip-slip defense), per §4.B's containment rule.
func safeJoin(destination, relativePath string) (string, error) {
	clean, err := fsutil.SafeRelativePath(relativePath)
	if err != nil {
		return "", err
	}
	target := filepath.Join(destination, clean)
	resolved, err := fsutil.EnsureWithinBase(destination, target)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

func writeMember(destination, relativePath string, r io.Reader, limits Limits, written *int64) (ExtractedItem, error) {
	target, err := safeJoin(destination, relativePath)
	if err != nil {
		return ExtractedItem{}, apperr.NewArchiveError(relativePath, "entry escapes destination: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return ExtractedItem{}, apperr.NewArchiveError(relativePath, "creating parent dir: %v", err)
	}

	tmp := target + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return ExtractedItem{}, apperr.NewArchiveError(relativePath, "creating file: %v", err)
	}

	limited := &limitedCountingReader{r: r, remaining: limits.MaxBytes - *written}
	n, copyErr := io.Copy(f, limited)
	*written += n
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(tmp)
		if copyErr == errArchiveTooLarge {
			return ExtractedItem{}, apperr.NewArchiveError(relativePath, "archive exceeds max_archive_bytes")
		}
		return ExtractedItem{}, apperr.NewArchiveError(relativePath, "writing entry: %v", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return ExtractedItem{}, apperr.NewArchiveError(relativePath, "closing entry: %v", closeErr)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return ExtractedItem{}, apperr.NewArchiveError(relativePath, "finalizing entry: %v", err)
	}

	return ExtractedItem{Path: target, RelativePath: filepath.ToSlash(relativePath)}, nil
}

func extractZip(path, destination string, limits Limits) ([]ExtractedItem, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, apperr.NewArchiveError(path, "opening zip: %v", err)
	}
	defer r.Close()

	if len(r.File) > limits.MaxFiles {
		return nil, apperr.NewArchiveError(path, "archive contains too many files")
	}

	var extracted []ExtractedItem
	var written int64
	for _, member := range r.File {
		if member.FileInfo().IsDir() {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return nil, apperr.NewArchiveError(path, "opening member %q: %v", member.Name, err)
		}
		item, err := writeMember(destination, member.Name, rc, limits, &written)
		rc.Close()
		if err != nil {
			return nil, err
		}
		extracted = append(extracted, item)
	}
	return extracted, nil
}

func extractRar(path, destination string, limits Limits) ([]ExtractedItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.NewArchiveError(path, "opening rar: %v", err)
	}
	defer f.Close()

	r, err := rardecode.NewReader(f)
	if err != nil {
		return nil, apperr.NewArchiveError(path, "reading rar header: %v", err)
	}

	var extracted []ExtractedItem
	var written int64
	count := 0
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.NewArchiveError(path, "reading rar entry: %v", err)
		}
		count++
		if count > limits.MaxFiles {
			return nil, apperr.NewArchiveError(path, "archive contains too many files")
		}
		if hdr.IsDir {
			continue
		}
		item, err := writeMember(destination, hdr.Name, r, limits, &written)
		if err != nil {
			return nil, err
		}
		extracted = append(extracted, item)
	}
	return extracted, nil
}

func extractSevenZip(path, destination string, limits Limits) ([]ExtractedItem, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, apperr.NewArchiveError(path, "opening 7z: %v", err)
	}
	defer r.Close()

	if len(r.File) > limits.MaxFiles {
		return nil, apperr.NewArchiveError(path, "archive contains too many files")
	}

	var extracted []ExtractedItem
	var written int64
	for _, member := range r.File {
		if member.FileInfo().IsDir() {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return nil, apperr.NewArchiveError(path, "opening member %q: %v", member.Name, err)
		}
		item, err := writeMember(destination, member.Name, rc, limits, &written)
		rc.Close()
		if err != nil {
			return nil, err
		}
		extracted = append(extracted, item)
	}
	return extracted, nil
}

func extractTar(path, destination string, limits Limits) ([]ExtractedItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.NewArchiveError(path, "opening tar: %v", err)
	}
	defer f.Close()
	return extractTarStream(path, tar.NewReader(f), destination, limits)
}

func extractTarGz(path, destination string, limits Limits) ([]ExtractedItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.NewArchiveError(path, "opening tar.gz: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, apperr.NewArchiveError(path, "opening gzip stream: %v", err)
	}
	defer gz.Close()
	return extractTarStream(path, tar.NewReader(gz), destination, limits)
}

func extractTarStream(path string, tr *tar.Reader, destination string, limits Limits) ([]ExtractedItem, error) {
	var extracted []ExtractedItem
	var written int64
	count := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.NewArchiveError(path, "reading tar entry: %v", err)
		}
		if hdr.Typeflag == tar.TypeDir {
			continue
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		count++
		if count > limits.MaxFiles {
			return nil, apperr.NewArchiveError(path, "archive contains too many files")
		}
		item, err := writeMember(destination, hdr.Name, tr, limits, &written)
		if err != nil {
			return nil, err
		}
		extracted = append(extracted, item)
	}
	return extracted, nil
}
