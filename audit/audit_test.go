package audit

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grrywlsn/localify/matcher"
)

func TestNewRow(t *testing.T) {
	entry := matcher.LocalEntry{TrackName: "Bohemian Rhapsody", ArtistName: "Queen"}

	row := NewRow(entry, matcher.NoMatch())
	assert.Equal(t, Row{FileTrack: "Bohemian Rhapsody", FileArtist: "Queen"}, row)
	assert.False(t, row.Matched)

	winner := &matcher.Candidate{
		TrackName:   "Bohemian Rhapsody - Remastered 2011",
		ArtistNames: []string{"Queen", "Freddie Mercury"},
		ExternalURL: "https://open.spotify.com/track/abc",
	}
	row = NewRow(entry, matcher.Matched(winner))
	assert.Equal(t, Row{
		FileTrack:     "Bohemian Rhapsody",
		FileArtist:    "Queen",
		Matched:       true,
		MatchedTrack:  "Bohemian Rhapsody - Remastered 2011",
		MatchedArtist: "Queen",
		MatchedURL:    "https://open.spotify.com/track/abc",
	}, row)
	assert.True(t, row.Matched)

	// A match is recorded even when the catalog left its name and URL blank
	row = NewRow(entry, matcher.Matched(&matcher.Candidate{}))
	assert.True(t, row.Matched)
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	require.NoError(t, err)

	require.NoError(t, w.Write(Row{FileTrack: "Yesterday", FileArtist: "N/A"}))
	require.NoError(t, w.Write(Row{
		FileTrack:     "Song, With Comma",
		FileArtist:    "Artist",
		MatchedTrack:  "Song, With Comma",
		MatchedArtist: "Artist",
		MatchedURL:    "https://open.spotify.com/track/x",
	}))
	require.NoError(t, w.Close())

	expected := "file_track,file_artist,matched_track,matched_artist,matched_url\n" +
		"Yesterday,N/A,,,\n" +
		"\"Song, With Comma\",Artist,\"Song, With Comma\",Artist,https://open.spotify.com/track/x\n"
	assert.Equal(t, expected, buf.String())
}

func TestCreateCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songs.csv")
	w, err := CreateCSV(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(Row{FileTrack: "Track", FileArtist: "Artist"}))

	// Rows are flushed as they are written
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Track,Artist,,,")

	require.NoError(t, w.Close())
}

func TestCreateCSVBadPath(t *testing.T) {
	_, err := CreateCSV(filepath.Join(t.TempDir(), "missing", "songs.csv"))
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	run, err := h.BeginRun(ctx, RunInfo{MusicRoot: "/music", PlaylistID: "playlist", Market: "AR"})
	require.NoError(t, err)
	require.NotEmpty(t, run.ID())

	rows := []Row{
		{FileTrack: "One", FileArtist: "A", Matched: true, MatchedTrack: "One", MatchedArtist: "A", MatchedURL: "u1"},
		{FileTrack: "Two", FileArtist: "A"},
		{FileTrack: "Three", FileArtist: "N/A", Matched: true, MatchedTrack: "Three", MatchedArtist: "B", MatchedURL: "u3"},
		{FileTrack: "Four", FileArtist: "C", Matched: true},
	}
	for _, row := range rows {
		require.NoError(t, run.Write(row))
	}
	require.NoError(t, run.Finish(ctx, nil))

	got, err := h.Rows(ctx, run.ID())
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	failed, err := h.BeginRun(ctx, RunInfo{MusicRoot: "/music", PlaylistID: "playlist", Market: "AR"})
	require.NoError(t, err)
	require.NoError(t, failed.Finish(ctx, errors.New("boom")))

	summaries, err := h.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byID := map[string]RunSummary{}
	for _, s := range summaries {
		byID[s.ID] = s
	}
	completed := byID[run.ID()]
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Equal(t, 4, completed.Total)
	assert.Equal(t, 3, completed.Matched)
	assert.Equal(t, "AR", completed.Market)
	assert.False(t, completed.FinishedAt.IsZero())

	assert.Equal(t, StatusFailed, byID[failed.ID()].Status)
	assert.Equal(t, 0, byID[failed.ID()].Total)
}

func TestHistoryUnknownRun(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Rows(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestOpenHistoryUpgradesAuditRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE runs (
			id TEXT PRIMARY KEY, started_at TEXT NOT NULL, finished_at TEXT,
			music_root TEXT NOT NULL, playlist_id TEXT NOT NULL, market TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'running');
		CREATE TABLE audit_rows (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
			file_track TEXT NOT NULL, file_artist TEXT NOT NULL, matched_track TEXT NOT NULL,
			matched_artist TEXT NOT NULL, matched_url TEXT NOT NULL, PRIMARY KEY (run_id, seq));
		INSERT INTO runs (id, started_at, music_root, playlist_id, market, status)
			VALUES ('old', '2024-01-01T00:00:00.000000000Z', '/music', 'p', 'US', 'completed');
		INSERT INTO audit_rows VALUES ('old', 0, 'One', 'A', 'One', 'A', 'u1');
		INSERT INTO audit_rows VALUES ('old', 1, 'Two', 'A', '', '', '');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	h, err := OpenHistory(path)
	require.NoError(t, err)
	defer h.Close()

	rows, err := h.Rows(context.Background(), "old")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Matched)
	assert.False(t, rows[1].Matched)
}
