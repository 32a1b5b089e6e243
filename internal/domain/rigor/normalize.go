package rigor

import (
	"strings"
	"unicode"
)

// Normalize lower-cases raw text, turns punctuation and symbols into spaces,
// and collapses whitespace runs to a single space with none at either end.
// Multi-word phrases then match as contiguous substrings.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))

	pendingSpace := false
	for _, r := range raw {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsControl(r) {
			pendingSpace = sb.Len() > 0
			continue
		}
		if pendingSpace {
			sb.WriteByte(' ')
			pendingSpace = false
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// Words counts the space-separated words of normalised text.
func Words(normalized string) int {
	if normalized == "" {
		return 0
	}
	return strings.Count(normalized, " ") + 1
}
