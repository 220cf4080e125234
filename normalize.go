package pagetext

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxContentLength is the number of characters kept before truncation.
	MaxContentLength = 50000

	// MinContentLength is the shortest content reported as a success.
	MinContentLength = 100

	// TruncationMarker is appended to content cut at MaxContentLength.
	TruncationMarker = "..."
)

// NormalizeText collapses every run of whitespace, newlines included, to a
// single space and trims the ends. The result contains no newlines, so
// newline runs are collapsed as a consequence. NormalizeText is idempotent.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// BoundText keeps the first MaxContentLength characters of s and appends
// TruncationMarker when anything was cut.
func BoundText(s string) string {
	// Fast path: byte length bounds rune count.
	if len(s) <= MaxContentLength {
		return s
	}
	if utf8.RuneCountInString(s) <= MaxContentLength {
		return s
	}

	n := 0
	for i := range s {
		if n == MaxContentLength {
			return s[:i] + TruncationMarker
		}
		n++
	}
	return s
}

// FinalizeContent normalizes and bounds raw extracted text. It returns an
// ENOCONTENT error when fewer than MinContentLength characters remain.
func FinalizeContent(raw string) (string, error) {
	content := BoundText(NormalizeText(raw))
	if utf8.RuneCountInString(content) < MinContentLength {
		return "", Errorf(ENOCONTENT, "could not extract meaningful content from the page")
	}
	return content, nil
}
