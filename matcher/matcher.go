package matcher

import (
	"errors"
	"log"
	"slices"
	"strings"
	"time"
)

// Matcher selects the catalog candidate that corresponds to a local entry
type Matcher struct {
	trackExclusions  ExclusionSet
	albumExclusions  ExclusionSet
	singleTokenExact bool
	debug            bool
}

// Option configures a Matcher
type Option func(*Matcher)

// WithTrackExclusions replaces the track-name exclusion vocabulary
func WithTrackExclusions(set ExclusionSet) Option {
	return func(m *Matcher) {
		m.trackExclusions = set
	}
}

// WithAlbumExclusions replaces the album-name exclusion vocabulary
func WithAlbumExclusions(set ExclusionSet) Option {
	return func(m *Matcher) {
		m.albumExclusions = set
	}
}

// WithSingleTokenExact toggles the exact-name rule for one-word track names
func WithSingleTokenExact(enabled bool) Option {
	return func(m *Matcher) {
		m.singleTokenExact = enabled
	}
}

// WithDebug enables logging of every skipped candidate
func WithDebug(debug bool) Option {
	return func(m *Matcher) {
		m.debug = debug
	}
}

// New creates a Matcher with the default vocabularies and the single-token rule enabled
func New(opts ...Option) *Matcher {
	m := &Matcher{
		trackExclusions:  NewExclusionSet(DefaultTrackExclusions...),
		albumExclusions:  NewExclusionSet(DefaultAlbumExclusions...),
		singleTokenExact: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TrackExclusions returns the track-name vocabulary in use
func (m *Matcher) TrackExclusions() ExclusionSet {
	return m.trackExclusions
}

// AlbumExclusions returns the album-name vocabulary in use
func (m *Matcher) AlbumExclusions() ExclusionSet {
	return m.albumExclusions
}

type datedCandidate struct {
	candidate *Candidate
	released  time.Time
}

// Select picks at most one candidate for the query. Candidates are visited
// oldest release first (search order breaks ties); the first one that passes
// the naming and exclusion rules wins. Nil candidates are ignored.
//
// The only error is a release date that cannot be parsed, which is reported
// before any candidate is considered.
func (m *Matcher) Select(query LocalEntry, candidates []*Candidate) (MatchResult, error) {
	dated := make([]datedCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		released, err := ParseReleaseDate(candidate.ReleaseDate)
		if err != nil {
			var dateErr *ReleaseDateError
			if errors.As(err, &dateErr) {
				dateErr.TrackName = candidate.TrackName
			}
			return NoMatch(), err
		}
		dated = append(dated, datedCandidate{candidate: candidate, released: released})
	}

	if len(dated) == 0 {
		m.debugLog("No candidates for file track %q", query.TrackName)
		return NoMatch(), nil
	}

	slices.SortStableFunc(dated, func(a, b datedCandidate) int {
		return a.released.Compare(b.released)
	})

	normalizedQuery := Normalize(query.TrackName)
	exactOnly := m.singleTokenExact && isSingleToken(query.TrackName)

	for _, d := range dated {
		if m.accepts(query, normalizedQuery, exactOnly, d.candidate) {
			return Matched(d.candidate), nil
		}
	}

	m.debugLog("No acceptable candidate for file track %q among %d result(s)", query.TrackName, len(dated))
	return NoMatch(), nil
}

// accepts applies the naming and exclusion rules to one candidate
func (m *Matcher) accepts(query LocalEntry, normalizedQuery string, exactOnly bool, candidate *Candidate) bool {
	if exactOnly && fold(candidate.TrackName) != fold(query.TrackName) {
		m.debugLog("Skipping track %q due to naming (%q)", candidate.TrackName, query.TrackName)
		return false
	}

	normalizedCandidate := Normalize(candidate.TrackName)
	if !strings.Contains(normalizedCandidate, normalizedQuery) {
		m.debugLog("Skipping track %q due to naming (%q, %q, %q)", candidate.TrackName, query.TrackName, normalizedQuery, normalizedCandidate)
		return false
	}

	if token, ok := m.albumExclusions.Match(candidate.AlbumName); ok {
		m.debugLog("Skipping album %q due to substring %q", candidate.AlbumName, token)
		return false
	}

	if token, ok := m.trackExcluded(query.TrackName, candidate.TrackName); ok {
		m.debugLog("Skipping track %q due to substring %q", candidate.TrackName, token)
		return false
	}

	return true
}

// trackExcluded finds a track token present in the candidate name but absent
// from the query name. A token shared by both is not a reason to skip.
func (m *Matcher) trackExcluded(queryName, candidateName string) (string, bool) {
	foldedQuery := fold(queryName)
	foldedCandidate := fold(candidateName)
	for _, token := range m.trackExclusions.tokens {
		if containsWord(foldedCandidate, token) && !containsWord(foldedQuery, token) {
			return token, true
		}
	}
	return "", false
}

// debugLog logs a message only if debug mode is enabled
func (m *Matcher) debugLog(format string, args ...interface{}) {
	if m.debug {
		log.Printf(format, args...)
	}
}
