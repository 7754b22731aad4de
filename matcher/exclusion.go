package matcher

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultTrackExclusions are tokens that mark a non-canonical rendition of a
// track. A candidate carrying one is skipped unless the local file name
// carries the same token.
var DefaultTrackExclusions = []string{
	"acustico",
	"acústico",
	"capella",
	"clean",
	"cover",
	"demo",
	"edit",
	"en directo",
	"instrumental",
	"karaoke",
	"live",
	"mix",
	"radio",
	"remake",
	"remix",
	"unplugged",
	"version",
	"versión",
	"vivo",
}

// DefaultAlbumExclusions are tokens that disqualify a candidate's album outright
var DefaultAlbumExclusions = []string{
	"karaoke",
}

// ExclusionSet is an immutable set of case-folded tokens, each matched as a whole word
type ExclusionSet struct {
	tokens []string
}

// NewExclusionSet builds a set from raw tokens. Tokens are trimmed, folded
// and de-duplicated; empty tokens are dropped.
func NewExclusionSet(tokens ...string) ExclusionSet {
	seen := make(map[string]struct{}, len(tokens))
	folded := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = Normalize(token)
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		folded = append(folded, token)
	}
	sort.Strings(folded)
	return ExclusionSet{tokens: folded}
}

// Tokens returns a copy of the set's tokens in sorted order
func (s ExclusionSet) Tokens() []string {
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Len returns the number of tokens in the set
func (s ExclusionSet) Len() int {
	return len(s.tokens)
}

// Match returns the first token of the set that occurs in text as a whole word
func (s ExclusionSet) Match(text string) (string, bool) {
	folded := fold(text)
	for _, token := range s.tokens {
		if containsWord(folded, token) {
			return token, true
		}
	}
	return "", false
}

// ContainsExcludedToken reports whether any token of the set occurs in text
// as a whole word, ignoring case.
func ContainsExcludedToken(text string, excluded ExclusionSet) bool {
	_, ok := excluded.Match(text)
	return ok
}

// ContainsToken reports whether a single token occurs in text as a whole word, ignoring case
func ContainsToken(text, token string) bool {
	token = Normalize(token)
	if token == "" {
		return false
	}
	return containsWord(fold(text), token)
}

// containsWord looks for word in s with a word boundary on both sides.
// Both arguments must already be folded.
func containsWord(s, word string) bool {
	for offset := 0; offset <= len(s)-len(word); {
		i := strings.Index(s[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
