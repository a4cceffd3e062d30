// Package processor implements the file processor (component H), the
// orchestrator tying classify/archive/extract/pii/finding together.
//
// Design note "Implicit recursion with depth counter in the processor" →
// explicit work-item stack with (path, depth, virtual_path) tuples is
// implemented literally: Process pushes onto a LIFO stack and pops until
// empty, rather than recursing. Each per-kind handler records its own
// scan-item and returns the child work items to push, with the stack
// driving further recursion; container extraction failures become a
// warning on the container's scan-item rather than a returned error.
package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sitforge/dlpsit/internal/apperr"
	"github.com/sitforge/dlpsit/internal/archive"
	"github.com/sitforge/dlpsit/internal/cache"
	"github.com/sitforge/dlpsit/internal/classify"
	"github.com/sitforge/dlpsit/internal/config"
	"github.com/sitforge/dlpsit/internal/extract"
	"github.com/sitforge/dlpsit/internal/finding"
	"github.com/sitforge/dlpsit/internal/fsutil"
	"github.com/sitforge/dlpsit/internal/job"
	"github.com/sitforge/dlpsit/internal/logging"
	"github.com/sitforge/dlpsit/internal/pii"
	"github.com/sitforge/dlpsit/internal/scanitem"
)

// OCRMode controls how PDFs and images are handled, per §6's job options.
type OCRMode string

const (
	OCRAuto  OCRMode = "auto"
	OCRForce OCRMode = "force"
	OCROff   OCRMode = "off"
)

// Options mirrors the job submission interface's options bag in §6.
type Options struct {
	Entities            []string
	Language            string
	ScoreThreshold      float64
	OCRMode             OCRMode
	IncludeHeaders      bool
	ParseHTML           bool
	IncludeAttachments  bool
	IncludeInlineImages bool
}

// DefaultOptions returns §6's documented defaults.
func DefaultOptions() Options {
	return Options{
		Language:            "en",
		OCRMode:             OCRAuto,
		IncludeHeaders:      true,
		ParseHTML:           true,
		IncludeAttachments:  true,
		IncludeInlineImages: true,
	}
}

// Stats accumulates per-job counters, threaded through the stack by
// reference, mirroring §4.H/§4.I's processed/entities/findings counts.
type Stats struct {
	FilesProcessed int
	EntitiesFound  int
	FindingsCreated int
}

// workItem is one node awaiting processing; depth 0 is the job root.
type workItem struct {
	path        string
	depth       int
	virtualPath string
	rootDir     string
}

// Processor wires together every upstream component the orchestrator
// dispatches into.
type Processor struct {
	cfg        config.Config
	engine     pii.Engine
	cache      *cache.Cache
	scanItems  *scanitem.Recorder
	findings   *finding.Repository
	jobs       *job.Coordinator
	logger     *logging.Logger
}

func New(cfg config.Config, engine pii.Engine, c *cache.Cache, si *scanitem.Recorder, fr *finding.Repository, jc *job.Coordinator, logger *logging.Logger) *Processor {
	return &Processor{cfg: cfg, engine: engine, cache: c, scanItems: si, findings: fr, jobs: jc, logger: logger}
}

// Process drives the depth-first, pre-order traversal of rootPath under
// jobID, pushing work onto an explicit stack rather than recursing.
func (p *Processor) Process(ctx context.Context, jobID, rootPath string, opts Options) (Stats, error) {
	var stats Stats

	stack := []workItem{{path: rootPath, depth: 0, virtualPath: "", rootDir: rootPath}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := p.processItem(ctx, jobID, item, opts, &stats)
		if err != nil {
			return stats, err
		}
		// Push in reverse so children are visited in the order produced
		// (pre-order, depth-first): next Pop takes the first child.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	if err := p.jobs.UpdateCounts(ctx, jobID, stats.FilesProcessed, stats.EntitiesFound, stats.FindingsCreated, -1); err != nil {
		return stats, err
	}
	return stats, nil
}

// processItem handles one work item and returns its children to push.
func (p *Processor) processItem(ctx context.Context, jobID string, item workItem, opts Options, stats *Stats) ([]workItem, error) {
	if item.depth > p.cfg.MaxArchiveDepth {
		p.logger.Infof(jobID, "skip (depth %d exceeds max_archive_depth): %s", item.depth, item.path)
		return nil, nil
	}

	info, err := os.Stat(item.path)
	if err != nil {
		p.logger.Warnf(jobID, "skip (stat failed): %s: %v", item.path, err)
		return nil, nil
	}

	if info.IsDir() {
		return p.expandDirectory(jobID, item)
	}

	if info.Size() > p.cfg.MaxFileSizeBytes() {
		p.logger.Infof(jobID, "skip (size %d exceeds max_file_size_mb): %s", info.Size(), item.path)
		return nil, nil
	}

	digest, err := fsutil.FileHash(item.path)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", item.path, err)
	}
	if already, err := p.cache.IsProcessed(ctx, digest); err != nil {
		return nil, err
	} else if already {
		p.logger.Debugf(jobID, "skip (already processed): %s", item.path)
		return nil, nil
	}

	virtualPath := item.virtualPath
	if virtualPath == "" {
		virtualPath = p.resolveVirtualPath(item)
	}

	stats.FilesProcessed++

	children, err := p.dispatch(ctx, jobID, item, virtualPath, opts, stats)
	if err != nil {
		return nil, err
	}

	if err := p.cache.MarkProcessed(ctx, item.path, digest); err != nil {
		return nil, err
	}
	return children, nil
}

func (p *Processor) resolveVirtualPath(item workItem) string {
	if item.rootDir != "" && item.rootDir != item.path {
		if rel, err := filepath.Rel(item.rootDir, item.path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	abs, err := filepath.Abs(item.path)
	if err != nil {
		return item.path
	}
	return filepath.ToSlash(abs)
}

func (p *Processor) expandDirectory(jobID string, item workItem) ([]workItem, error) {
	entries, err := os.ReadDir(item.path)
	if err != nil {
		p.logger.Warnf(jobID, "skip (readdir failed): %s: %v", item.path, err)
		return nil, nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	children := make([]workItem, 0, len(entries))
	for _, e := range entries {
		childPath := filepath.Join(item.path, e.Name())
		children = append(children, workItem{path: childPath, depth: item.depth, rootDir: item.rootDir})
	}
	return children, nil
}

func joinVirtual(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "::" + child
}

func (p *Processor) dispatch(ctx context.Context, jobID string, item workItem, virtualPath string, opts Options, stats *Stats) ([]workItem, error) {
	kind := classify.Classify(item.path)

	switch kind {
	case classify.Archive:
		return p.handleArchive(ctx, jobID, item, virtualPath)
	case classify.Email:
		return p.handleEmail(ctx, jobID, item, virtualPath, opts)
	case classify.PDF:
		return p.handlePDF(ctx, jobID, item, virtualPath, opts, stats)
	case classify.Image:
		return nil, p.handleImage(ctx, jobID, item, virtualPath, opts, stats)
	case classify.DOCX, classify.PPTX, classify.XLSX:
		return nil, p.handleOfficeDoc(ctx, jobID, item, virtualPath, kind, opts, stats)
	case classify.Text:
		return nil, p.handleText(ctx, jobID, item, virtualPath, opts, stats)
	default:
		p.logger.Debugf(jobID, "unsupported type, no scan-item: %s", item.path)
		return nil, nil
	}
}

func (p *Processor) handleArchive(ctx context.Context, jobID string, item workItem, virtualPath string) ([]workItem, error) {
	stem := strings.TrimSuffix(filepath.Base(item.path), filepath.Ext(item.path))
	destination := filepath.Join(filepath.Dir(item.path), "extracted_"+stem)

	limits := archive.Limits{MaxFiles: p.cfg.MaxArchiveFiles, MaxBytes: p.cfg.MaxArchiveBytes}
	extracted, err := archive.Extract(item.path, destination, limits)
	if err != nil {
		warnings := []string{err.Error()}
		if !apperr.IsArchiveError(err) {
			return nil, err
		}
		if rerr := p.scanItems.Record(ctx, scanitem.ScanItem{
			JobID: jobID, VirtualPath: virtualPath, SourcePath: item.path,
			ExtractionMethod: scanitem.MethodContainer, Warnings: warnings,
		}); rerr != nil {
			return nil, rerr
		}
		return nil, nil
	}

	if err := p.scanItems.Record(ctx, scanitem.ScanItem{
		JobID: jobID, VirtualPath: virtualPath, SourcePath: item.path, ExtractionMethod: scanitem.MethodContainer,
	}); err != nil {
		return nil, err
	}

	children := make([]workItem, 0, len(extracted))
	for _, it := range extracted {
		children = append(children, workItem{
			path: it.Path, depth: item.depth + 1,
			virtualPath: joinVirtual(virtualPath, it.RelativePath),
			rootDir:     destination,
		})
	}
	return children, nil
}

func (p *Processor) handleEmail(ctx context.Context, jobID string, item workItem, virtualPath string, opts Options) ([]workItem, error) {
	stem := strings.TrimSuffix(filepath.Base(item.path), filepath.Ext(item.path))
	destination := filepath.Join(filepath.Dir(item.path), "email_"+stem)

	limits := extract.EmailLimits{MaxAttachments: p.cfg.MaxEmailAttachments, MaxBytes: p.cfg.MaxEmailBytes}

	emailOpts := extract.EmailOptions{
		IncludeHeaders:      opts.IncludeHeaders,
		ParseHTML:           opts.ParseHTML,
		IncludeAttachments:  opts.IncludeAttachments,
		IncludeInlineImages: opts.IncludeInlineImages,
	}

	var items []extract.EmailItem
	var warnings []string
	var err error
	if strings.EqualFold(filepath.Ext(item.path), ".msg") {
		items, warnings, err = extract.ExtractMSG(item.path, destination, limits, emailOpts)
	} else {
		items, warnings, err = extract.ExtractEML(item.path, destination, limits, emailOpts)
	}
	if err != nil {
		allWarnings := append(warnings, err.Error())
		if !apperr.IsEmailError(err) {
			return nil, err
		}
		if rerr := p.scanItems.Record(ctx, scanitem.ScanItem{
			JobID: jobID, VirtualPath: virtualPath, SourcePath: item.path,
			ExtractionMethod: scanitem.MethodContainer, Warnings: allWarnings,
		}); rerr != nil {
			return nil, rerr
		}
		return nil, nil
	}

	if err := p.scanItems.Record(ctx, scanitem.ScanItem{
		JobID: jobID, VirtualPath: virtualPath, SourcePath: item.path, ExtractionMethod: scanitem.MethodContainer, Warnings: warnings,
	}); err != nil {
		return nil, err
	}

	children := make([]workItem, 0, len(items))
	for _, it := range items {
		children = append(children, workItem{
			path: it.Path, depth: item.depth + 1,
			virtualPath: joinVirtual(virtualPath, it.VirtualPath),
			rootDir:     destination,
		})
	}
	return children, nil
}

func (p *Processor) handlePDF(ctx context.Context, jobID string, item workItem, virtualPath string, opts Options, stats *Stats) ([]workItem, error) {
	text, textErr := extract.ExtractPDFText(item.path)
	hasText := textErr == nil && strings.TrimSpace(text) != ""

	if hasText && opts.OCRMode != OCRForce {
		if err := p.analyzeAndRecord(ctx, jobID, virtualPath, item.path, text, scanitem.MethodText, false, opts, stats); err != nil {
			return nil, err
		}
		return nil, nil
	}

	stem := strings.TrimSuffix(filepath.Base(item.path), filepath.Ext(item.path))
	destination := filepath.Join(filepath.Dir(item.path), "pages_"+stem)
	pages, err := extract.RasterizePDF(item.path, destination, p.cfg.OCRMaxPages)
	if err != nil {
		return nil, err
	}

	method := scanitem.MethodOCR
	if hasText && opts.OCRMode == OCRForce {
		method = scanitem.MethodHybrid
		if err := p.analyzeAndRecord(ctx, jobID, virtualPath, item.path, text, method, false, opts, stats); err != nil {
			return nil, err
		}
	} else {
		if err := p.scanItems.Record(ctx, scanitem.ScanItem{
			JobID: jobID, VirtualPath: virtualPath, SourcePath: item.path, ExtractionMethod: method,
		}); err != nil {
			return nil, err
		}
	}

	children := make([]workItem, 0, len(pages))
	for i, pagePath := range pages {
		children = append(children, workItem{
			path: pagePath, depth: item.depth + 1,
			virtualPath: joinVirtual(virtualPath, fmt.Sprintf("page_%d", i+1)),
			rootDir:     destination,
		})
	}
	return children, nil
}

func (p *Processor) handleImage(ctx context.Context, jobID string, item workItem, virtualPath string, opts Options, stats *Stats) error {
	if opts.OCRMode == OCROff {
		return p.scanItems.Record(ctx, scanitem.ScanItem{
			JobID: jobID, VirtualPath: virtualPath, SourcePath: item.path,
			ExtractionMethod: scanitem.MethodNone, Warnings: []string{"OCR disabled"},
		})
	}

	ocrText, hits, err := p.engine.AnalyzeImage(ctx, item.path, pii.ImageOptions{
		Entities: opts.Entities, Language: opts.Language, ScoreThreshold: opts.ScoreThreshold,
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(ocrText) == "" {
		return p.scanItems.Record(ctx, scanitem.ScanItem{
			JobID: jobID, VirtualPath: virtualPath, SourcePath: item.path,
			ExtractionMethod: scanitem.MethodOCR, OCRUsed: true, Warnings: []string{"OCR produced no text"},
		})
	}

	return p.recordHitsAndScanItem(ctx, jobID, virtualPath, item.path, ocrText, hits, scanitem.MethodOCR, true, stats)
}

func (p *Processor) handleOfficeDoc(ctx context.Context, jobID string, item workItem, virtualPath string, kind classify.Kind, opts Options, stats *Stats) error {
	var text string
	var err error
	switch kind {
	case classify.DOCX:
		text, err = extract.ExtractDOCXText(item.path)
	case classify.PPTX:
		text, err = extract.ExtractPPTXText(item.path)
	case classify.XLSX:
		text, err = extract.ExtractXLSXText(item.path)
	}
	if err != nil {
		return err
	}
	return p.analyzeAndRecord(ctx, jobID, virtualPath, item.path, text, scanitem.MethodText, false, opts, stats)
}

// handleText streams the file in ~1MiB chunks (per §4.H) and generates
// findings against each chunk's own text, since a hit's start/end offsets
// are only meaningful relative to the chunk the engine analyzed — the
// persisted text_preview is a separate, display-only concatenation of the
// first three chunks and is never used to recompute contexts.
func (p *Processor) handleText(ctx context.Context, jobID string, item workItem, virtualPath string, opts Options, stats *Stats) error {
	var totalChars int
	var previewChunks []string
	var allCandidates []finding.Candidate
	chunkCount := 0

	err := fsutil.StreamFileChunks(item.path, func(chunk string) error {
		totalChars += len(chunk)
		if chunkCount < 3 {
			previewChunks = append(previewChunks, chunk)
			chunkCount++
		}
		if strings.TrimSpace(chunk) == "" {
			return nil
		}
		hits, err := p.engine.AnalyzeText(ctx, chunk, pii.TextOptions{
			Entities: opts.Entities, Language: opts.Language, ScoreThreshold: opts.ScoreThreshold,
		})
		if err != nil {
			return err
		}
		stats.EntitiesFound += len(hits)
		allCandidates = append(allCandidates, finding.GenerateFromHits(hits, chunk, finding.DefaultWindow)...)
		return nil
	})
	if err != nil {
		return err
	}

	preview := strings.Join(previewChunks, "")
	return p.saveAndRecord(ctx, jobID, virtualPath, item.path, preview, totalChars, allCandidates, scanitem.MethodText, false, stats)
}

// analyzeAndRecord runs the engine over a single in-memory text blob (the
// common shape for pdf/docx/pptx/xlsx) and records the scan-item.
func (p *Processor) analyzeAndRecord(ctx context.Context, jobID, virtualPath, sourcePath, text string, method scanitem.ExtractionMethod, ocrUsed bool, opts Options, stats *Stats) error {
	hits, err := p.engine.AnalyzeText(ctx, text, pii.TextOptions{
		Entities: opts.Entities, Language: opts.Language, ScoreThreshold: opts.ScoreThreshold,
	})
	if err != nil {
		return err
	}
	return p.recordHitsAndScanItem(ctx, jobID, virtualPath, sourcePath, text, hits, method, ocrUsed, stats)
}

func (p *Processor) recordHitsAndScanItem(ctx context.Context, jobID, virtualPath, sourcePath, text string, hits []pii.Hit, method scanitem.ExtractionMethod, ocrUsed bool, stats *Stats) error {
	stats.EntitiesFound += len(hits)
	candidates := finding.GenerateFromHits(hits, text, finding.DefaultWindow)
	return p.saveAndRecord(ctx, jobID, virtualPath, sourcePath, text, len(text), candidates, method, ocrUsed, stats)
}

// saveAndRecord persists already-generated candidates and the enclosing
// scan-item. Unlike recordHitsAndScanItem, it does not touch
// stats.EntitiesFound itself — callers that assemble candidates from
// multiple per-chunk analyses increment that counter as each chunk's hits
// arrive.
func (p *Processor) saveAndRecord(ctx context.Context, jobID, virtualPath, sourcePath, preview string, textChars int, candidates []finding.Candidate, method scanitem.ExtractionMethod, ocrUsed bool, stats *Stats) error {
	saved, err := p.findings.SaveCandidates(ctx, jobID, virtualPath, candidates)
	if err != nil {
		return err
	}
	stats.FindingsCreated += len(saved)

	return p.scanItems.Record(ctx, scanitem.ScanItem{
		JobID: jobID, VirtualPath: virtualPath, SourcePath: sourcePath,
		ExtractionMethod: method, OCRUsed: ocrUsed, TextChars: textChars, TextPreview: preview,
	})
}
