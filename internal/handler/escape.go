package handler

import (
	"html"
	"strings"
)

// Escaping/formatting helpers shared by all handlers. These replace the
// base-controller inheritance of the service this API descends from: a
// handful of pure functions, no state, no hierarchy.

// escapeString trims surrounding whitespace and HTML-escapes the value.
// Applied to free-text profile fields before they reach the service layer,
// so stored values are safe to echo into any HTML context.
func escapeString(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// escapePtr escapes through an optional field, preserving nil.
func escapePtr(s *string) *string {
	if s == nil {
		return nil
	}
	escaped := escapeString(*s)
	return &escaped
}
