// Package itinerary recovers a structured travel plan from raw model output.
// The text SHOULD contain exactly one itinerary JSON object, but in practice
// arrives wrapped in prose, inside a fenced code block, or truncated
// mid-object by the output-length cutoff. Recovery is pure and deterministic:
// identical input always yields identical output, and re-parsing a
// re-serialized accepted record yields an equivalent record.
//
// The pipeline: fast reject -> ordered candidate generators -> repair pass
// -> JSON decode -> structural acceptance. Exhausting every candidate is not
// an error; it means the text is an ordinary chat reply.
package itinerary

import (
	"encoding/json"
	"strings"

	"github.com/tbourn/go-travel-backend/internal/domain"
)

// defaultType is injected when an accepted object lacks a discriminator.
const defaultType = "itinerary"

// candidate generators, tried in order until one yields a parsable object.
// Each returns the substring to attempt plus whether it produced anything.
var candidateFns = []func(string) (string, bool){
	fencedBlock,
	braceSpan,
	braceToEnd,
}

// Parse extracts an itinerary record from text, or returns nil when the text
// does not contain one. A nil return is "not structured", never a failure;
// callers fall back to serving the raw text.
func Parse(text string) *domain.Itinerary {
	if !looksStructured(text) {
		return nil
	}

	for _, gen := range candidateFns {
		raw, ok := gen(text)
		if !ok {
			continue
		}
		repaired, truncated := repair(raw)
		if repaired == "" {
			continue
		}
		if rec := accept(repaired); rec != nil {
			rec.Partial = truncated
			return rec
		}
	}
	return nil
}

// looksStructured is the fast reject: text without either marker substring
// cannot be an itinerary payload and skips candidate generation entirely.
func looksStructured(text string) bool {
	return strings.Contains(text, `"days"`) || strings.Contains(text, `"itinerary"`)
}

// fencedBlock returns the content of the first fenced code block. An
// unclosed fence (a truncated reply) takes everything to the end of text.
func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	body := text[start+3:]
	// Drop an optional language tag on the fence line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		first := strings.TrimSpace(body[:nl])
		if first == "" || isLangTag(first) {
			body = body[nl+1:]
		}
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	body = strings.TrimSpace(body)
	return body, body != ""
}

func isLangTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(s) <= 12
}

// braceSpan returns the substring from the first '{' to the last '}'.
func braceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// braceToEnd returns the substring from the first '{' to the end of text,
// covering hard truncation where no closing brace ever arrived.
func braceToEnd(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	return strings.TrimSpace(text[start:]), true
}

// accept decodes a repaired candidate and applies the structural contract:
// the object must carry a "days" field holding a list. A missing type
// discriminator is defaulted rather than rejected.
func accept(candidate string) *domain.Itinerary {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return nil
	}
	days, ok := probe["days"]
	if !ok || len(days) == 0 || days[0] != '[' {
		return nil
	}

	var rec domain.Itinerary
	if err := json.Unmarshal([]byte(candidate), &rec); err != nil {
		return nil
	}
	if rec.Type == "" {
		rec.Type = defaultType
	}
	return &rec
}
