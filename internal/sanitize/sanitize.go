// Package sanitize cleans model-generated markup before display. It is split
// into three composable pure stages: markdown rendering, allow-list
// sanitization, and full tag stripping.
package sanitize

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// scriptingTags can never be allow-listed. Requests to allow them are
// silently dropped before the policy is built.
var scriptingTags = map[string]bool{
	"script": true,
	"style":  true,
	"iframe": true,
	"object": true,
	"embed":  true,
	"form":   true,
}

type Sanitizer struct {
	policy *bluemonday.Policy
}

// New builds a sanitizer that keeps only the given tags and attributes.
// Scripting vectors (script/style/iframe tags, on* event-handler attributes,
// javascript: URLs) are removed regardless of the allow-lists.
func New(allowedTags, allowedAttrs []string) *Sanitizer {
	p := bluemonday.NewPolicy()

	for _, tag := range allowedTags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || scriptingTags[tag] {
			continue
		}
		p.AllowElements(tag)
	}

	attrs := make([]string, 0, len(allowedAttrs))
	for _, attr := range allowedAttrs {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" || strings.HasPrefix(attr, "on") {
			continue
		}
		attrs = append(attrs, attr)
	}
	if len(attrs) > 0 {
		p.AllowAttrs(attrs...).Globally()
	}

	p.AllowURLSchemes("http", "https", "mailto")

	return &Sanitizer{policy: p}
}

// Sanitize returns html reduced to the allow-listed tags and attributes.
// Malformed markup degrades to stripped plain text; Sanitize never fails and
// is idempotent.
func (s *Sanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}

var strict = bluemonday.StrictPolicy()

// StripTags removes all markup, leaving plain text. Used for the chat
// plain-text branch and for SMS bodies.
func StripTags(s string) string {
	return strict.Sanitize(s)
}

// RenderMarkdown converts markdown to HTML. The output is unsafe until it has
// passed through Sanitize. On a render error the source text is returned
// unchanged so the caller's sanitize step still applies.
func RenderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return md
	}
	return buf.String()
}
