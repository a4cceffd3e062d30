// HTTPEngine binds the facade to a remote Presidio-analyzer-compatible
// REST service. Grounded on the teacher's internal/fetcher/model_api_fetcher.go
// HTTP client shape (injected *http.Client, base URL with a sane default,
// context-aware request building, JSON decode into a typed response).
package pii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPEngine calls a presidio-analyzer-compatible /analyze endpoint over
// HTTP. This is the "online" production binding; RegexEngine is the
// dependency-free "dummy" binding used by default and in tests.
type HTTPEngine struct {
	Client  *http.Client
	BaseURL string // defaults to "http://localhost:5001"
	OCR     OCREngine
}

// NewHTTPEngine builds an HTTPEngine. client and ocr may be nil to use
// a new http.Client with a 30-second timeout and a disabled OCR path
// respectively.
func NewHTTPEngine(client *http.Client, baseURL string, ocr OCREngine) *HTTPEngine {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPEngine{Client: client, BaseURL: baseURL, OCR: ocr}
}

type analyzeRequest struct {
	Text           string   `json:"text"`
	Language       string   `json:"language"`
	Entities       []string `json:"entities,omitempty"`
	ScoreThreshold float64  `json:"score_threshold,omitempty"`
}

type analyzeResponseItem struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

func (e *HTTPEngine) AnalyzeText(ctx context.Context, text string, opts TextOptions) ([]Hit, error) {
	language := opts.Language
	if language == "" {
		language = "en"
	}

	reqBody := analyzeRequest{
		Text:           text,
		Language:       language,
		Entities:       opts.Entities,
		ScoreThreshold: opts.ScoreThreshold,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding analyze request: %w", err)
	}

	base := strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
	if base == "" {
		base = "http://localhost:5001"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling analyzer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	var items []analyzeResponseItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding analyze response: %w", err)
	}

	hits := make([]Hit, 0, len(items))
	for _, item := range items {
		hits = append(hits, Hit{
			EntityType: item.EntityType,
			Start:      item.Start,
			End:        item.End,
			Score:      item.Score,
		})
	}
	return Filter(hits, opts.Entities, opts.ScoreThreshold), nil
}

func (e *HTTPEngine) AnalyzeImage(ctx context.Context, path string, opts ImageOptions) (string, []Hit, error) {
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
