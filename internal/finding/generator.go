// Package finding implements the finding generator (component F):
// deterministic derivation of context-windowed, redacted snippets plus
// inferred primary regexes and supporting keywords from a stream of entity
// hits over text.
//
// Grounded on the original findings/generator.py (redact-by-literal-replace,
// stopword-filtered keyword counting, per-entity-type regex table falling
// back to a character-class generalization).
package finding

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sitforge/dlpsit/internal/pii"
)

// DefaultWindow is the number of characters of context captured on each
// side of a hit when no window is specified.
const DefaultWindow = 60

// Candidate is a derived finding, prior to persistence (an id and job/file
// reference are attached by the caller).
type Candidate struct {
	EntityType         string
	EntityText         string
	Score              float64
	Start              int
	End                int
	Context            string
	PrimaryRegex       string
	SupportingKeywords []string
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true,
	"this": true, "that": true, "from": true,
}

var wordPattern = regexp.MustCompile(`[A-Za-z]{3,}`)

// GenerateFromHits converts a sequence of entity hits over a common text
// into finding candidates, using window characters of context on each side
// of every hit (DefaultWindow when window <= 0).
func GenerateFromHits(hits []pii.Hit, text string, window int) []Candidate {
	if window <= 0 {
		window = DefaultWindow
	}
	candidates := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, BuildCandidate(h, text, window))
	}
	return candidates
}

// BuildCandidate derives a single Candidate from one hit over text.
func BuildCandidate(hit pii.Hit, text string, window int) Candidate {
	if window <= 0 {
		window = DefaultWindow
	}

	left := hit.Start - window
	if left < 0 {
		left = 0
	}
	right := hit.End + window
	if right > len(text) {
		right = len(text)
	}
	contextRaw := safeSlice(text, left, right)
	entityText := safeSlice(text, hit.Start, hit.End)

	context := redact(contextRaw, entityText)
	keywords := supportingKeywords(contextRaw, entityText)
	primaryRegex := InferRegex(hit.EntityType, entityText)

	return Candidate{
		EntityType:         hit.EntityType,
		EntityText:         entityText,
		Score:              hit.Score,
		Start:              hit.Start,
		End:                hit.End,
		Context:            context,
		PrimaryRegex:       primaryRegex,
		SupportingKeywords: keywords,
	}
}

// safeSlice slices text on byte offsets, clamping to valid bounds so a
// malformed hit never panics.
func safeSlice(text string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start > end {
		return ""
	}
	return text[start:end]
}

// redact replaces every occurrence of value within context with
// "[REDACTED]". A finding's context must never contain the literal entity
// text (invariant 1).
func redact(context, value string) string {
	if value == "" {
		return context
	}
	return strings.ReplaceAll(context, value, "[REDACTED]")
}

// supportingKeywords extracts the top-5-by-frequency lowercase alphabetic
// tokens of length >= 3 from the unredacted window, excluding the fixed
// stopword set and excluding substrings of the (lowercased) entity text.
// Ties are broken by first occurrence.
func supportingKeywords(contextRaw, entityText string) []string {
	lowerEntity := strings.ToLower(entityText)
	words := wordPattern.FindAllString(strings.ToLower(contextRaw), -1)

	type count struct {
		word       string
		freq       int
		firstIndex int
	}
	order := make([]string, 0, len(words))
	counts := make(map[string]*count)

	for i, w := range words {
		if stopwords[w] {
			continue
		}
		if lowerEntity != "" && strings.Contains(lowerEntity, w) {
			continue
		}
		c, ok := counts[w]
		if !ok {
			c = &count{word: w, firstIndex: i}
			counts[w] = c
			order = append(order, w)
		}
		c.freq++
	}

	sort.SliceStable(order, func(i, j int) bool {
		ci, cj := counts[order[i]], counts[order[j]]
		if ci.freq != cj.freq {
			return ci.freq > cj.freq
		}
		return ci.firstIndex < cj.firstIndex
	})

	if len(order) > 5 {
		order = order[:5]
	}
	return order
}

var entityRegexTable = map[string]string{
	"SSN":            `\b\d{3}-\d{2}-\d{4}\b`,
	"CREDIT_CARD":    `\b(?:\d[ -]*?){13,19}\b`,
	"PHONE_NUMBER":   `\b\+?\d[\d\s().-]{7,}\b`,
	"EMAIL_ADDRESS":  `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
	"IP_ADDRESS":     `\b(?:\d{1,3}\.){3}\d{1,3}\b`,
}

// InferRegex returns the primary regex for an entity type/text pair: a
// fixed pattern for the well-known types, otherwise a character-class
// generalization of entityText (digit -> \d, letter -> [A-Za-z],
// whitespace -> \s, everything else escaped literally).
func InferRegex(entityType, entityText string) string {
	if pattern, ok := entityRegexTable[entityType]; ok {
		return pattern
	}
	return generalize(entityText)
}

func generalize(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			b.WriteString(`\d`)
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteString(`[A-Za-z]`)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteString(`\s`)
		case r < utf8.RuneSelf:
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
