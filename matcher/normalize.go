package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a title for containment checks: whitespace runs
// collapse to a single space, the result is case-folded and trimmed.
func Normalize(s string) string {
	return fold(strings.Join(strings.Fields(s), " "))
}

// fold composes s to NFC, so decomposed accents from some filesystems compare
// equal to precomposed ones, then applies full Unicode case folding. A Caser
// keeps state, so a fresh one is built per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// isSingleToken reports whether s is one non-empty token without spaces
func isSingleToken(s string) bool {
	return s != "" && strings.IndexFunc(s, unicode.IsSpace) < 0
}
