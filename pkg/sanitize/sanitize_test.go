package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeCleanValue(t *testing.T) {
	s := NewHTMLSanitizer()

	r := s.Sanitize("Coating thickness out of range at line 3")
	assert.Equal(t, "Coating thickness out of range at line 3", r.SanitizedValue)
	assert.False(t, r.WasModified)
	assert.Empty(t, r.Errors)
	assert.True(t, s.IsValid("Coating thickness out of range at line 3"))
}

func TestSanitizeEscapesMarkup(t *testing.T) {
	s := NewHTMLSanitizer()

	r := s.Sanitize(`tolerance <2mm & >1mm`)
	assert.Equal(t, "tolerance &lt;2mm &amp; &gt;1mm", r.SanitizedValue)
	assert.True(t, r.WasModified)
	assert.Empty(t, r.Errors, "plain markup is escaped, not rejected")
	assert.False(t, s.IsValid(`tolerance <2mm & >1mm`))
}

func TestSanitizeFlagsInjectionPatterns(t *testing.T) {
	s := NewHTMLSanitizer()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"script tag", `<script>alert(1)</script>`, "script tag detected"},
		{"script tag with spacing", `< SCRIPT src=x>`, "script tag detected"},
		{"event handler", `<img src=x onerror=alert(1)>`, "inline event handler detected"},
		{"javascript scheme", `<a href="javascript:alert(1)">x</a>`, "javascript scheme detected"},
		{"javascript scheme spaced", `javascript : alert(1)`, "javascript scheme detected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := s.Sanitize(tt.raw)
			assert.Contains(t, r.Errors, tt.want)
			assert.NotContains(t, r.SanitizedValue, "<", "output never carries raw angle brackets")
		})
	}
}

func TestSanitizeStripsControlCharacters(t *testing.T) {
	s := NewHTMLSanitizer()

	r := s.Sanitize("line1\x00\x1bline2")
	assert.Equal(t, "line1line2", r.SanitizedValue)
	assert.True(t, r.WasModified)

	// Newlines and tabs survive; they are legitimate in descriptions.
	r = s.Sanitize("line1\n\tline2")
	assert.Equal(t, "line1\n\tline2", r.SanitizedValue)
	assert.False(t, r.WasModified)
}

func TestSanitizeTrimsWhitespace(t *testing.T) {
	s := NewHTMLSanitizer()

	r := s.Sanitize("  padded  ")
	assert.Equal(t, "padded", r.SanitizedValue)
	assert.True(t, r.WasModified)
}

func TestSanitizeRejectsInvalidUTF8(t *testing.T) {
	s := NewHTMLSanitizer()

	r := s.Sanitize("abc\xff\xfe")
	assert.Empty(t, r.SanitizedValue)
	assert.Contains(t, r.Errors, "value is not valid UTF-8")
}

func TestSanitizeRejectsOverlongValue(t *testing.T) {
	s := &HTMLSanitizer{MaxLength: 16}

	r := s.Sanitize(strings.Repeat("a", 17))
	assert.Empty(t, r.SanitizedValue, "overlong values are rejected, never truncated")
	assert.Contains(t, r.Errors, "value exceeds maximum length")

	r = s.Sanitize(strings.Repeat("a", 16))
	assert.Empty(t, r.Errors)
}

func TestSanitizeEmptyValue(t *testing.T) {
	s := NewHTMLSanitizer()

	r := s.Sanitize("")
	assert.Empty(t, r.SanitizedValue)
	assert.False(t, r.WasModified)
	assert.Empty(t, r.Errors)
	assert.True(t, s.IsValid(""))
}
