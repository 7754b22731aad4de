package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/grrywlsn/localify/matcher"
)

// Header is the first line of every audit CSV
var Header = []string{"file_track", "file_artist", "matched_track", "matched_artist", "matched_url"}

// Row is one audit record per local entry. Matched is set from the match
// result; the matched fields are blank when nothing matched.
type Row struct {
	FileTrack     string
	FileArtist    string
	Matched       bool
	MatchedTrack  string
	MatchedArtist string
	MatchedURL    string
}

// NewRow builds the audit row for an entry and its match result
func NewRow(entry matcher.LocalEntry, result matcher.MatchResult) Row {
	row := Row{
		FileTrack:  entry.TrackName,
		FileArtist: entry.ArtistName,
	}
	if c, ok := result.Candidate(); ok {
		row.Matched = true
		row.MatchedTrack = c.TrackName
		row.MatchedArtist = c.PrimaryArtist()
		row.MatchedURL = c.ExternalURL
	}
	return row
}

func (r Row) record() []string {
	return []string{r.FileTrack, r.FileArtist, r.MatchedTrack, r.MatchedArtist, r.MatchedURL}
}

// CSVWriter writes audit rows as CSV, flushing after every row so a run
// aborted midway still leaves a readable log.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter writes the header to w and returns a writer for the rows
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w)}
	if err := cw.writeRecord(Header); err != nil {
		return nil, err
	}
	return cw, nil
}

// CreateCSV creates (or truncates) the file at path and writes the header
func CreateCSV(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit file %s: %w", path, err)
	}

	cw, err := NewCSVWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	cw.closer = f
	return cw, nil
}

// Write appends one row
func (cw *CSVWriter) Write(row Row) error {
	return cw.writeRecord(row.record())
}

func (cw *CSVWriter) writeRecord(record []string) error {
	if err := cw.w.Write(record); err != nil {
		return fmt.Errorf("failed to write audit row: %w", err)
	}
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		return fmt.Errorf("failed to flush audit row: %w", err)
	}
	return nil
}

// Close flushes pending output and closes the underlying file, if any
func (cw *CSVWriter) Close() error {
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		return err
	}
	if cw.closer != nil {
		return cw.closer.Close()
	}
	return nil
}
