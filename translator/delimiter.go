package translator

import (
	"strings"
	"unicode"
)

// DelimiterMarker separates passages inside one joined batch call. It is
// chosen to be unlikely in source text and to survive machine translation.
const DelimiterMarker = "[[§§]]"

// Delimiter is the full join string placed between segments
const Delimiter = "\n" + DelimiterMarker + "\n"

// JoinSegments joins segment texts for a single batch call
func JoinSegments(texts []string) string {
	return strings.Join(texts, Delimiter)
}

// SplitSegments splits a batch reply back into parts. Providers tend to
// reflow whitespace around the marker, so parts are trimmed.
func SplitSegments(text string) []string {
	parts := strings.Split(text, DelimiterMarker)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// RestoreSpacing re-applies the leading and trailing whitespace of original
// around translated
func RestoreSpacing(original, translated string) string {
	trimmed := strings.TrimFunc(translated, unicode.IsSpace)
	if trimmed == "" || strings.TrimFunc(original, unicode.IsSpace) == "" {
		return translated
	}

	lead := original[:len(original)-len(strings.TrimLeftFunc(original, unicode.IsSpace))]
	trail := original[len(strings.TrimRightFunc(original, unicode.IsSpace)):]

	return lead + trimmed + trail
}
