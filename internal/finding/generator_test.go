package finding

import (
	"strings"
	"testing"

	"github.com/sitforge/dlpsit/internal/pii"
)

func TestBuildCandidateSSNRedaction(t *testing.T) {
	text := "Employee SSN is 123-45-6789 and social security number should be masked."
	hit := pii.Hit{EntityType: "SSN", Start: 16, End: 27, Score: 0.7}

	c := BuildCandidate(hit, text, 40)

	if strings.Contains(c.Context, "123-45-6789") {
		t.Fatalf("context retains unredacted entity text: %q", c.Context)
	}
	if !strings.Contains(c.Context, "[REDACTED]") {
		t.Fatalf("context missing redaction marker: %q", c.Context)
	}
	if !containsKeyword(c.SupportingKeywords, "social") {
		t.Fatalf("expected 'social' in supporting keywords, got %v", c.SupportingKeywords)
	}
	if c.PrimaryRegex != `\b\d{3}-\d{2}-\d{4}\b` {
		t.Fatalf("unexpected primary regex: %q", c.PrimaryRegex)
	}
}

func containsKeyword(words []string, want string) bool {
	for _, w := range words {
		if w == want {
			return true
		}
	}
	return false
}

func TestRedactionInvariantAcrossHits(t *testing.T) {
	text := "Call 555-123-4567 or 555-123-4567 again."
	hit := pii.Hit{EntityType: "PHONE_NUMBER", Start: 5, End: 17, Score: 0.6}

	c := BuildCandidate(hit, text, 40)
	entityText := text[hit.Start:hit.End]
	if strings.Contains(c.Context, entityText) {
		t.Fatalf("context still contains every occurrence of the entity literal: %q", c.Context)
	}
}

func TestSupportingKeywordsTopFiveByFrequency(t *testing.T) {
	text := "alpha alpha beta beta beta gamma delta epsilon zeta 555-123-4567"
	hit := pii.Hit{EntityType: "PHONE_NUMBER", Start: 52, End: 64, Score: 0.6}

	c := BuildCandidate(hit, text, 60)
	if len(c.SupportingKeywords) > 5 {
		t.Fatalf("expected at most 5 supporting keywords, got %d", len(c.SupportingKeywords))
	}
	if c.SupportingKeywords[0] != "beta" {
		t.Fatalf("expected most frequent word 'beta' first, got %v", c.SupportingKeywords)
	}
}

func TestInferRegexFallbackGeneralization(t *testing.T) {
	got := InferRegex("CUSTOM_ID", "AB-12 34")
	want := `[A-Za-z][A-Za-z]\-\d\d\s\d\d`
	if got != want {
		t.Fatalf("InferRegex() = %q, want %q", got, want)
	}
}

func TestGenerateFromHitsPreservesOrder(t *testing.T) {
	text := "a@b.com and 1.2.3.4"
	hits := []pii.Hit{
		{EntityType: "EMAIL_ADDRESS", Start: 0, End: 7, Score: 0.9},
		{EntityType: "IP_ADDRESS", Start: 12, End: 19, Score: 0.6},
	}
	cands := GenerateFromHits(hits, text, 0)
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].EntityType != "EMAIL_ADDRESS" || cands[1].EntityType != "IP_ADDRESS" {
		t.Fatalf("candidates out of order: %+v", cands)
	}
}
