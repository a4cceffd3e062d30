// Package pii defines the PII engine facade (component E): the boundary
// between the ingestion pipeline and whatever entity-recognition engine is
// bound in. Per the design notes, the recognizer itself is an external
// collaborator — this package specifies the interface and ships a
// deterministic stub used by default and by tests; production wires a real
// backend (see Presidio in http.go) behind the same interface, mirroring
// the teacher's online/dummy fetcher split (cmd/generate.go --hf-mode,
// internal/fetcher/dummy_model_api_fetcher.go next to
// internal/fetcher/model_api_fetcher.go).
package pii

import "context"

// Hit is one entity match over a span of text.
type Hit struct {
	EntityType string
	Start      int
	End        int
	Score      float64
}

// TextOptions configures a text analysis call.
type TextOptions struct {
	Entities       []string // allow-list; empty means "all"
	Language       string
	ScoreThreshold float64 // hits scoring below this are dropped
}

// ImageOptions configures an image analysis call.
type ImageOptions struct {
	Entities       []string // allow-list; empty means "all"
	Language       string
	ScoreThreshold float64
}

// Engine analyzes text or images for sensitive entities. Implementations
// must honor the entity allow-list and score floor themselves, or rely on
// Filter below.
type Engine interface {
	AnalyzeText(ctx context.Context, text string, opts TextOptions) ([]Hit, error)
	// AnalyzeImage runs OCR over the image at path, then analyzes the
	// resulting text, returning both.
	AnalyzeImage(ctx context.Context, path string, opts ImageOptions) (ocrText string, hits []Hit, err error)
}

// Filter drops hits scoring below threshold and, when allow is non-empty,
// hits whose entity type is not in allow. Implementations of Engine may
// call this to honor TextOptions/ImageOptions uniformly.
func Filter(hits []Hit, allow []string, threshold float64) []Hit {
	if len(allow) == 0 && threshold <= 0 {
		return hits
	}
	allowed := make(map[string]bool, len(allow))
	for _, e := range allow {
		allowed[e] = true
	}

	out := hits[:0:0]
	for _, h := range hits {
		if h.Score < threshold {
			continue
		}
		if len(allow) > 0 && !allowed[h.EntityType] {
			continue
		}
		out = append(out, h)
	}
	return out
}
