package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sitforge/dlpsit/internal/apperr"
	"github.com/sitforge/dlpsit/internal/cache"
	"github.com/sitforge/dlpsit/internal/finding"
	"github.com/sitforge/dlpsit/internal/job"
	"github.com/sitforge/dlpsit/internal/logging"
	"github.com/sitforge/dlpsit/internal/pii"
	"github.com/sitforge/dlpsit/internal/processor"
	"github.com/sitforge/dlpsit/internal/scanitem"
	"github.com/sitforge/dlpsit/internal/store"
)

var (
	scanEntities            []string
	scanLanguage            string
	scanThreshold           float64
	scanOCRMode             string
	scanEngineMode          string
	scanEngineURL           string
	scanIncludeHeaders      bool
	scanParseHTML           bool
	scanIncludeAttachments  bool
	scanIncludeInlineImages bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Scan a file, directory, or archive for sensitive information",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanEntities, "entities", nil, "entity type allow-list (default: all)")
	scanCmd.Flags().StringVar(&scanLanguage, "language", "en", "analysis language")
	scanCmd.Flags().Float64Var(&scanThreshold, "score-threshold", 0, "drop hits scoring below this")
	scanCmd.Flags().StringVar(&scanOCRMode, "ocr-mode", "auto", "OCR mode: auto|force|off")
	scanCmd.Flags().StringVar(&scanEngineMode, "engine", "regex", "analysis engine: regex|http")
	scanCmd.Flags().StringVar(&scanEngineURL, "engine-url", "http://localhost:5001", "base URL when --engine=http")
	scanCmd.Flags().BoolVar(&scanIncludeHeaders, "include-headers", true, "include message headers in extracted email bodies")
	scanCmd.Flags().BoolVar(&scanParseHTML, "parse-html", true, "render HTML email bodies to text")
	scanCmd.Flags().BoolVar(&scanIncludeAttachments, "include-attachments", true, "extract email attachments")
	scanCmd.Flags().BoolVar(&scanIncludeInlineImages, "include-inline-images", true, "extract inline email images")
}

func runScan(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx := context.Background()

	db, err := store.Open(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	var ocr pii.OCREngine
	if cfg.OCRConcurrency > 0 {
		ocr = pii.NewTesseractOCR(cfg.OCRConcurrency)
	}

	var engine pii.Engine
	switch strings.ToLower(scanEngineMode) {
	case "http":
		engine = pii.NewHTTPEngine(nil, scanEngineURL, ocr)
	case "regex", "":
		engine = pii.NewRegexEngine(ocr)
	default:
		cmd.SilenceUsage = true
		return apperr.Userf("unknown --engine %q (expected regex|http)", scanEngineMode)
	}

	jobs := job.NewCoordinator(db)
	c := cache.New(db)
	si := scanitem.NewRecorder(db)
	fr := finding.NewRepository(db)

	proc := processor.New(cfg, engine, c, si, fr, jobs, logger)

	jobID := uuid.NewString()
	if _, err := jobs.Create(ctx, jobID, target); err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	if err := jobs.UpdateStatus(ctx, jobID, job.StatusRunning, ""); err != nil {
		return err
	}

	opts := processor.DefaultOptions()
	opts.Entities = scanEntities
	opts.Language = scanLanguage
	opts.ScoreThreshold = scanThreshold
	opts.OCRMode = processor.OCRMode(strings.ToLower(scanOCRMode))
	opts.IncludeHeaders = scanIncludeHeaders
	opts.ParseHTML = scanParseHTML
	opts.IncludeAttachments = scanIncludeAttachments
	opts.IncludeInlineImages = scanIncludeInlineImages

	start := time.Now()
	stats, procErr := proc.Process(ctx, jobID, target, opts)
	if procErr != nil {
		if err := jobs.UpdateStatus(ctx, jobID, job.StatusFailed, procErr.Error()); err != nil {
			logger.Errorf(jobID, "updating job status after failure: %v", err)
		}
		return fmt.Errorf("scanning %s: %w", target, procErr)
	}
	if err := jobs.UpdateStatus(ctx, jobID, job.StatusCompleted, ""); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "job %s completed in %s: %d file(s) processed, %d entities found, %d findings created\n",
		jobID, time.Since(start).Round(time.Millisecond), stats.FilesProcessed, stats.EntitiesFound, stats.FindingsCreated)
	return nil
}
