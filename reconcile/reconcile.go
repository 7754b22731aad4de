package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/grrywlsn/localify/audit"
	"github.com/grrywlsn/localify/matcher"
)

// Searcher queries the remote catalog for one local entry
type Searcher interface {
	Search(ctx context.Context, track, artist string) ([]*matcher.Candidate, error)
}

// PlaylistAdder appends a catalog track to the target playlist. Implementations
// own any retrying.
type PlaylistAdder interface {
	AddToPlaylist(ctx context.Context, externalID string) error
}

// AuditWriter receives one row per processed entry
type AuditWriter interface {
	Write(row audit.Row) error
}

// Outcome is the resolution of one local entry
type Outcome struct {
	Entry  matcher.LocalEntry
	Result matcher.MatchResult
}

// Report summarizes a run. Outcomes are in processing order, which is the
// order the entries were given in.
type Report struct {
	Outcomes  []Outcome
	Matched   int
	Unmatched int
}

// Total returns the number of processed entries
func (r *Report) Total() int {
	return len(r.Outcomes)
}

// Missing returns the entries that found no match
func (r *Report) Missing() []matcher.LocalEntry {
	var missing []matcher.LocalEntry
	for _, o := range r.Outcomes {
		if !o.Result.IsMatch() {
			missing = append(missing, o.Entry)
		}
	}
	return missing
}

// Reconciler drives search, selection, playlist adds and auditing
type Reconciler struct {
	matcher  *matcher.Matcher
	searcher Searcher
	adder    PlaylistAdder
	sinks    []AuditWriter
	debug    bool
	dryRun   bool
}

// New creates a Reconciler. Every audit row is written to each sink in order.
func New(m *matcher.Matcher, searcher Searcher, adder PlaylistAdder, sinks ...AuditWriter) *Reconciler {
	return &Reconciler{
		matcher:  m,
		searcher: searcher,
		adder:    adder,
		sinks:    sinks,
	}
}

// SetDebug enables or disables debug logging
func (r *Reconciler) SetDebug(debug bool) {
	r.debug = debug
}

// SetDryRun makes Run select and audit without adding to the playlist
func (r *Reconciler) SetDryRun(dryRun bool) {
	r.dryRun = dryRun
}

// Run resolves every entry one at a time. Any search, selection, add or audit
// failure aborts the run; the report returned alongside the error holds the
// entries completed so far.
func (r *Reconciler) Run(ctx context.Context, entries []matcher.LocalEntry) (*Report, error) {
	report := &Report{Outcomes: make([]Outcome, 0, len(entries))}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := r.resolve(ctx, entry)
		if err != nil {
			return report, fmt.Errorf("entry %d (%s - %s): %w", i+1, entry.ArtistName, entry.TrackName, err)
		}

		row := audit.NewRow(entry, result)
		for _, sink := range r.sinks {
			if err := sink.Write(row); err != nil {
				return report, fmt.Errorf("failed to write audit row for %q: %w", entry.TrackName, err)
			}
		}

		report.Outcomes = append(report.Outcomes, Outcome{Entry: entry, Result: result})
		if result.IsMatch() {
			report.Matched++
		} else {
			report.Unmatched++
		}
	}

	return report, nil
}

// resolve searches once, selects, and adds the selection to the playlist
func (r *Reconciler) resolve(ctx context.Context, entry matcher.LocalEntry) (matcher.MatchResult, error) {
	candidates, err := r.searcher.Search(ctx, entry.TrackName, entry.ArtistName)
	if err != nil {
		return matcher.NoMatch(), fmt.Errorf("search failed: %w", err)
	}
	r.debugLog("Search for %q returned %d candidate(s)", entry.TrackName, len(candidates))

	result, err := r.matcher.Select(entry, candidates)
	if err != nil {
		return matcher.NoMatch(), err
	}

	candidate, ok := result.Candidate()
	if !ok {
		log.Printf("❌ No match: %s - %s", entry.ArtistName, entry.TrackName)
		return result, nil
	}

	if r.dryRun {
		log.Printf("🔍 Would add: %s - %s -> %s", entry.ArtistName, entry.TrackName, candidate.ExternalURL)
		return result, nil
	}

	if err := r.adder.AddToPlaylist(ctx, candidate.ExternalID); err != nil {
		return matcher.NoMatch(), err
	}
	log.Printf("✅ Added: %s - %s -> %s", entry.ArtistName, entry.TrackName, candidate.ExternalURL)

	return result, nil
}

// debugLog logs a message only if debug mode is enabled
func (r *Reconciler) debugLog(format string, args ...interface{}) {
	if r.debug {
		log.Printf(format, args...)
	}
}
