// Package sanitize is the input-sanitization collaborator consumed by
// form-level handlers. It follows the same fail-closed philosophy as the
// RBAC core: when validity cannot be determined, the value is invalid.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Result describes what sanitization did to a value.
type Result struct {
	SanitizedValue string   `json:"sanitized_value"`
	WasModified    bool     `json:"was_modified"`
	Errors         []string `json:"errors,omitempty"`
}

// Sanitizer is the sanitization contract: Sanitize always yields a value
// safe to store and render; IsValid reports whether the raw value was
// already safe.
type Sanitizer interface {
	Sanitize(raw string) Result
	IsValid(raw string) bool
}

var (
	scriptTagPattern    = regexp.MustCompile(`(?i)<\s*/?\s*script`)
	eventHandlerPattern = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
	jsSchemePattern     = regexp.MustCompile(`(?i)javascript\s*:`)
)

// HTMLSanitizer escapes markup metacharacters, strips control characters
// and flags script-injection patterns. Values longer than MaxLength are
// rejected outright rather than truncated.
type HTMLSanitizer struct {
	MaxLength int
}

// NewHTMLSanitizer returns a sanitizer with the portal's default length
// bound.
func NewHTMLSanitizer() *HTMLSanitizer {
	return &HTMLSanitizer{MaxLength: 4096}
}

// Sanitize produces a safe rendition of raw along with what changed.
func (s *HTMLSanitizer) Sanitize(raw string) Result {
	result := Result{SanitizedValue: raw}

	if !utf8.ValidString(raw) {
		// Cannot reason about malformed input, so refuse it entirely.
		return Result{SanitizedValue: "", WasModified: raw != "", Errors: []string{"value is not valid UTF-8"}}
	}
	if s.MaxLength > 0 && len(raw) > s.MaxLength {
		return Result{SanitizedValue: "", WasModified: true, Errors: []string{"value exceeds maximum length"}}
	}

	if scriptTagPattern.MatchString(raw) {
		result.Errors = append(result.Errors, "script tag detected")
	}
	if eventHandlerPattern.MatchString(raw) {
		result.Errors = append(result.Errors, "inline event handler detected")
	}
	if jsSchemePattern.MatchString(raw) {
		result.Errors = append(result.Errors, "javascript scheme detected")
	}

	cleaned := stripControl(raw)
	cleaned = html.EscapeString(cleaned)
	cleaned = strings.TrimSpace(cleaned)

	result.WasModified = cleaned != raw
	result.SanitizedValue = cleaned
	return result
}

// IsValid reports whether raw needs no sanitization at all. Any
// modification or audit finding means invalid.
func (s *HTMLSanitizer) IsValid(raw string) bool {
	r := s.Sanitize(raw)
	return !r.WasModified && len(r.Errors) == 0
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
