package pii

import (
	"context"
	"regexp"
)

// patternEntities pairs an entity type with its detection regex, shared
// with finding.InferRegex's fixed-pattern table since both describe the
// same well-known entity shapes.
var patternEntities = []struct {
	entityType string
	pattern    *regexp.Regexp
	score      float64
}{
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), 0.85},
	{"CREDIT_CARD", regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), 0.7},
	{"EMAIL_ADDRESS", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), 0.9},
	{"IP_ADDRESS", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), 0.6},
	{"PHONE_NUMBER", regexp.MustCompile(`\b\+?\d[\d\s().-]{7,}\b`), 0.5},
}

// RegexEngine is a deterministic, dependency-free Engine implementation:
// it runs the fixed per-entity-type patterns over the text directly. It is
// the default binding (no recognizer service configured) and the engine
// tests inject, mirroring the teacher's dummy/online fetcher split.
type RegexEngine struct {
	OCR OCREngine
}

// NewRegexEngine builds a RegexEngine. ocr may be nil, in which case
// AnalyzeImage always returns an empty OCR text and no hits, which the
// processor records as an OCR scan-item that produced no text.
func NewRegexEngine(ocr OCREngine) *RegexEngine {
	return &RegexEngine{OCR: ocr}
}

func (e *RegexEngine) AnalyzeText(_ context.Context, text string, opts TextOptions) ([]Hit, error) {
	var hits []Hit
	for _, pe := range patternEntities {
		for _, loc := range pe.pattern.FindAllStringIndex(text, -1) {
			hits = append(hits, Hit{
				EntityType: pe.entityType,
				Start:      loc[0],
				End:        loc[1],
				Score:      pe.score,
			})
		}
	}
	return Filter(hits, opts.Entities, opts.ScoreThreshold), nil
}

func (e *RegexEngine) AnalyzeImage(ctx context.Context, path string, opts ImageOptions) (string, []Hit, error) {
	if e.OCR == nil {
		return "", nil, nil
	}
	text, err := e.OCR.Recognize(ctx, path)
	if err != nil {
		return "", nil, err
	}
	if text == "" {
		return "", nil, nil
	}
	hits, err := e.AnalyzeText(ctx, text, TextOptions{Entities: opts.Entities, Language: opts.Language, ScoreThreshold: opts.ScoreThreshold})
	if err != nil {
		return text, nil, err
	}
	return text, hits, nil
}
