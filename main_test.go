package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/grrywlsn/localify/audit"
	"github.com/grrywlsn/localify/config"
	"github.com/grrywlsn/localify/matcher"
	"github.com/grrywlsn/localify/musicbrainz"
	"github.com/grrywlsn/localify/reconcile"
)

func TestDisplayMissingTracksSummary(t *testing.T) {
	missingTracks := []MissingTrack{
		{
			Entry:         matcher.LocalEntry{TrackName: "Test Song 1", ArtistName: "Test Artist 1"},
			MusicBrainzID: "musicbrainz_id_1",
		},
		{
			Entry: matcher.LocalEntry{TrackName: "Test Song 2", ArtistName: matcher.UnknownArtist},
		},
	}

	// Test that the function doesn't panic
	displayMissingTracksSummary(missingTracks)
}

func TestCollectOverrides(t *testing.T) {
	cmd := newRootCommand()
	flags := cmd.Flags()

	for flag, value := range map[string]string{
		"root":          "/music",
		"playlist-name": "My Library",
		"market":        "gb",
		"musicbrainz":   "true",
	} {
		if err := flags.Set(flag, value); err != nil {
			t.Fatalf("Failed to set flag %s: %v", flag, err)
		}
	}

	expected := map[string]string{
		"MUSIC_ROOT":            "/music",
		"SPOTIFY_PLAYLIST_NAME": "My Library",
		"SPOTIFY_MARKET":        "gb",
		"MUSICBRAINZ_LOOKUP":    "true",
	}

	if got := collectOverrides(cmd); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected overrides %v, got %v", expected, got)
	}
}

func TestCollectOverridesNoFlags(t *testing.T) {
	if got := collectOverrides(newRootCommand()); len(got) != 0 {
		t.Errorf("Expected no overrides, got %v", got)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitCodeSuccess},
		{"no tracks", fmt.Errorf("wrapped: %w", errNoTracks), exitCodeNoTracks},
		{"config", &exitError{code: exitCodeConfigError, err: errors.New("missing")}, exitCodeConfigError},
		{"wrapped client", fmt.Errorf("run: %w", &exitError{code: exitCodeClientError, err: errors.New("auth")}), exitCodeClientError},
		{"other", errors.New("boom"), exitCodeRunError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("Expected exit code %d, got %d", tt.want, got)
			}
		})
	}
}

func TestNewMatcherUsesExclusionsFile(t *testing.T) {
	cfg := &config.Config{Matching: config.MatchingConfig{SingleTokenExact: true}}

	m := newMatcher(cfg, config.Exclusions{Track: []string{"Live", "remix"}})
	if got := m.TrackExclusions().Tokens(); !reflect.DeepEqual(got, []string{"live", "remix"}) {
		t.Errorf("Expected track exclusions [live remix], got %v", got)
	}
	if got := m.AlbumExclusions().Tokens(); !reflect.DeepEqual(got, []string{"karaoke"}) {
		t.Errorf("Expected default album exclusions, got %v", got)
	}

	m = newMatcher(cfg, config.Exclusions{})
	if got := m.TrackExclusions().Len(); got != len(matcher.DefaultTrackExclusions) {
		t.Errorf("Expected %d default track exclusions, got %d", len(matcher.DefaultTrackExclusions), got)
	}
}

func TestLockPath(t *testing.T) {
	if got := lockPath("out/songs.csv"); got != "out/songs.csv.lock" {
		t.Errorf("Unexpected lock path %s", got)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := formatPercent(1, 4); got != "25.0%" {
		t.Errorf("Expected 25.0%%, got %s", got)
	}
	if got := formatPercent(0, 0); got != "0.0%" {
		t.Errorf("Expected 0.0%%, got %s", got)
	}
}

func TestSummaryRows(t *testing.T) {
	report := &reconcile.Report{
		Outcomes:  make([]reconcile.Outcome, 3),
		Matched:   2,
		Unmatched: 1,
	}

	expected := [][]string{
		{"Total tracks", "3", ""},
		{"Matched", "2", "66.7%"},
		{"No match", "1", "33.3%"},
	}
	if got := summaryRows(report); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Name", "Count"}, [][]string{{"Matched", "2"}, {"Short"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"Name", "Count", "Matched", "Short"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected table to contain %q:\n%s", want, out)
		}
	}

	if got := renderTable(nil, nil, nil); got != "" {
		t.Errorf("Expected empty table for no headers, got %q", got)
	}
}

func TestLookupMissingTracksDisabled(t *testing.T) {
	app := &Application{config: &config.Config{}}
	entries := []matcher.LocalEntry{{TrackName: "Song", ArtistName: "Artist"}}

	missing := app.lookupMissingTracks(context.Background(), entries)
	if len(missing) != 1 || missing[0].Entry != entries[0] || missing[0].MusicBrainzID != "" {
		t.Errorf("Unexpected missing tracks %+v", missing)
	}
}

func TestLookupMissingTracks(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		queries = append(queries, query)
		if strings.Contains(query, "Known") {
			io.WriteString(w, `{"recordings": [{"id": "mbid-1", "title": "Known", "score": 100}]}`)
			return
		}
		io.WriteString(w, `{"recordings": []}`)
	}))
	defer server.Close()

	app := &Application{
		config:            &config.Config{},
		musicBrainzClient: musicbrainz.NewClientWithBaseURL(server.URL),
	}

	missing := app.lookupMissingTracks(context.Background(), []matcher.LocalEntry{
		{TrackName: "Known", ArtistName: matcher.UnknownArtist},
		{TrackName: "Unknown", ArtistName: "Artist"},
	})

	if len(missing) != 2 {
		t.Fatalf("Expected 2 missing tracks, got %d", len(missing))
	}
	if missing[0].MusicBrainzID != "mbid-1" {
		t.Errorf("Expected MusicBrainz ID mbid-1, got %q", missing[0].MusicBrainzID)
	}
	if missing[1].MusicBrainzID != "" {
		t.Errorf("Expected no MusicBrainz ID, got %q", missing[1].MusicBrainzID)
	}
	if len(queries) != 2 || queries[0] != `recording:"Known"` {
		t.Errorf("Expected title-only query for a track without artist, got %v", queries)
	}
}

func TestHistoryCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	history, err := audit.OpenHistory(dbPath)
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	run, err := history.BeginRun(context.Background(), audit.RunInfo{MusicRoot: "/music", Market: "US"})
	if err != nil {
		t.Fatalf("Failed to begin run: %v", err)
	}
	if err := run.Write(audit.Row{FileTrack: "Song", FileArtist: "Artist", Matched: true, MatchedTrack: "Song", MatchedArtist: "Artist", MatchedURL: "https://open.spotify.com/track/x"}); err != nil {
		t.Fatalf("Failed to write row: %v", err)
	}
	if err := run.Finish(context.Background(), nil); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}
	history.Close()

	var out bytes.Buffer
	cmd := newHistoryCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--history-db", dbPath})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("History command failed: %v", err)
	}
	if !strings.Contains(out.String(), run.ID()) || !strings.Contains(out.String(), audit.StatusCompleted) {
		t.Errorf("Expected run listing to contain %s, got:\n%s", run.ID(), out.String())
	}

	out.Reset()
	cmd = newHistoryCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--history-db", dbPath, run.ID()})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("History command failed: %v", err)
	}
	if !strings.Contains(out.String(), "https://open.spotify.com/track/x") {
		t.Errorf("Expected audit rows in output, got:\n%s", out.String())
	}
}

func TestHistoryCommandWithoutDatabase(t *testing.T) {
	t.Setenv("HISTORY_DB", "")

	cmd := newHistoryCommand()
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(context.Background())
	if exitCode(err) != exitCodeConfigError {
		t.Errorf("Expected config error, got %v", err)
	}
}

func TestHistoryCommandReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HISTORY_DB", "")

	dbPath := filepath.Join(dir, "dotenv-history.db")
	if err := os.WriteFile(".env", []byte("HISTORY_DB="+dbPath+"\n"), 0o644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	var out bytes.Buffer
	cmd := newHistoryCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("History command failed: %v", err)
	}
	if !strings.Contains(out.String(), "No runs recorded yet") {
		t.Errorf("Expected empty history listing, got:\n%s", out.String())
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Expected history database at %s: %v", dbPath, err)
	}
}
