package matcher

// UnknownArtist is the artist name given to files that sit directly in the
// library root, where no artist directory exists.
const UnknownArtist = "N/A"

// LocalEntry represents a track found in the local library
type LocalEntry struct {
	TrackName  string
	ArtistName string
}

// HasArtist reports whether the entry carries a real artist name
func (e LocalEntry) HasArtist() bool {
	return e.ArtistName != "" && e.ArtistName != UnknownArtist
}

// Candidate represents one catalog search result
type Candidate struct {
	TrackName   string
	ArtistNames []string
	AlbumName   string
	ReleaseDate string // "YYYY", "YYYY-MM", "YYYY-MM-DD" or "0000"
	ExternalID  string // catalog URI, e.g. spotify:track:...
	ExternalURL string
}

// PrimaryArtist returns the first credited artist, or an empty string
func (c *Candidate) PrimaryArtist() string {
	if c == nil || len(c.ArtistNames) == 0 {
		return ""
	}
	return c.ArtistNames[0]
}

// MatchResult is the outcome of selecting among candidates: either no match
// or exactly one matched candidate.
type MatchResult struct {
	candidate *Candidate
}

// NoMatch returns a result carrying no candidate
func NoMatch() MatchResult {
	return MatchResult{}
}

// Matched returns a result for the winning candidate. A nil candidate yields NoMatch.
func Matched(c *Candidate) MatchResult {
	return MatchResult{candidate: c}
}

// IsMatch reports whether a candidate was selected
func (r MatchResult) IsMatch() bool {
	return r.candidate != nil
}

// Candidate returns the winning candidate and true, or nil and false on no match
func (r MatchResult) Candidate() (*Candidate, bool) {
	return r.candidate, r.candidate != nil
}

// String is used in debug output
func (r MatchResult) String() string {
	if r.candidate == nil {
		return "no match"
	}
	return "matched " + r.candidate.TrackName
}
