package util

import (
	"strings"
	"unicode/utf8"
)

// TextLength counts characters the way users see them, so one kana is one character.
func TextLength(s string) int {
	return utf8.RuneCountInString(s)
}

// FirstNonEmpty returns the first non-blank value, trimmed.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
