// Package assistant interprets replies from the language model: it recovers
// structured JSON payloads embedded in free-form text and classifies them
// into render modes.
package assistant

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Payload is a JSON value (object or array) recovered from assistant output.
// The zero value means the text was not structured.
type Payload struct {
	value any
}

// Structured reports whether the payload holds a decoded value.
func (p Payload) Structured() bool {
	return p.value != nil
}

var (
	// fenceRe removes markdown code fences, with or without a language tag.
	fenceRe = regexp.MustCompile("```[a-zA-Z]*\n?")

	// sentinelRe removes bracketed model-control tokens at the edges of the
	// reply, e.g. "[INST]" or "[/OUT]". The character class excludes quotes
	// and braces so real JSON arrays are never touched.
	sentinelRe = regexp.MustCompile(`^\[[A-Z0-9_/ -]+\]\s*|\s*\[[A-Z0-9_/ -]+\]$`)
)

// Extract attempts to recover a well-formed JSON object or array from raw
// assistant text. It returns false — never an error — when the text is not
// structured; the caller's fallback is to treat the text as conversational.
//
// Truncated JSON is a parse failure, not a partial result: the only repair
// attempted is quote normalization, because the upstream model inconsistently
// emits single- and double-quoted JSON-like text.
func Extract(raw string) (Payload, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Payload{}, false
	}

	s = fenceRe.ReplaceAllString(s, "")
	s = sentinelRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”‘’")

	candidate := jsonCandidate(s)
	if candidate == "" {
		return Payload{}, false
	}

	if v, ok := parseStrict(candidate); ok {
		return Payload{value: v}, true
	}

	// The model sometimes emits single-quoted pseudo-JSON. Only rewrite after
	// a strict parse has failed, so legal JSON containing apostrophes is
	// never corrupted.
	if normalized := strings.ReplaceAll(candidate, "'", `"`); normalized != candidate {
		if v, ok := parseStrict(normalized); ok {
			return Payload{value: v}, true
		}
	}

	return Payload{}, false
}

// jsonCandidate slices out the widest plausible JSON span: from the first
// opening brace or bracket to the last closing one. Surrounding prose is
// discarded; if no span exists there is nothing to parse.
func jsonCandidate(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	end := strings.LastIndexAny(s, "}]")
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

func parseStrict(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, true
	default:
		// Scalars are valid JSON but not payloads.
		return nil, false
	}
}
