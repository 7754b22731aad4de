package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/grrywlsn/localify/audit"
	"github.com/grrywlsn/localify/config"
	"github.com/grrywlsn/localify/library"
	"github.com/grrywlsn/localify/matcher"
	"github.com/grrywlsn/localify/musicbrainz"
	"github.com/grrywlsn/localify/reconcile"
	"github.com/grrywlsn/localify/spotify"
)

// Version information - set during build
var version = "dev"

// Exit codes
const (
	exitCodeSuccess     = 0
	exitCodeNoTracks    = 1
	exitCodeConfigError = 2
	exitCodeClientError = 3
	exitCodeRunError    = 4
)

var errNoTracks = errors.New("no tracks found in music library")

// exitError carries the process exit code for a failure
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCode maps a command error to the process exit code
func exitCode(err error) int {
	if err == nil {
		return exitCodeSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, errNoTracks) {
		return exitCodeNoTracks
	}
	return exitCodeRunError
}

// Global debug flag
var debugMode bool

// Application represents the main application state
type Application struct {
	config            *config.Config
	matcher           *matcher.Matcher
	scanner           *library.Scanner
	spotifyClient     *spotify.Client
	musicBrainzClient *musicbrainz.Client
	dryRun            bool
}

// MissingTrack is a local track with no Spotify counterpart
type MissingTrack struct {
	Entry         matcher.LocalEntry
	MusicBrainzID string
}

// NewApplication creates a new application instance
func NewApplication(ctx context.Context, cfg *config.Config, dryRun bool) (*Application, error) {
	exclusions, err := config.LoadExclusions(cfg.Matching.ExclusionsFile)
	if err != nil {
		return nil, &exitError{code: exitCodeConfigError, err: err}
	}

	spotifyClient, err := spotify.NewClient(ctx, cfg)
	if err != nil {
		return nil, &exitError{code: exitCodeClientError, err: fmt.Errorf("failed to create Spotify client: %w", err)}
	}
	spotifyClient.SetDebug(debugMode)

	scanner := library.NewScanner(cfg.Library.Root, cfg.Library.LabelSeparator)
	scanner.SetDebug(debugMode)

	app := &Application{
		config:        cfg,
		matcher:       newMatcher(cfg, exclusions),
		scanner:       scanner,
		spotifyClient: spotifyClient,
		dryRun:        dryRun,
	}
	if cfg.Output.MusicBrainzLookup {
		app.musicBrainzClient = musicbrainz.NewClient()
	}
	return app, nil
}

// newMatcher builds the matcher, replacing a built-in vocabulary only when
// the exclusions file lists one
func newMatcher(cfg *config.Config, exclusions config.Exclusions) *matcher.Matcher {
	opts := []matcher.Option{
		matcher.WithSingleTokenExact(cfg.Matching.SingleTokenExact),
		matcher.WithDebug(debugMode),
	}
	if exclusions.Track != nil {
		opts = append(opts, matcher.WithTrackExclusions(matcher.NewExclusionSet(exclusions.Track...)))
	}
	if exclusions.Album != nil {
		opts = append(opts, matcher.WithAlbumExclusions(matcher.NewExclusionSet(exclusions.Album...)))
	}
	return matcher.New(opts...)
}

// lockPath is the lock file guarding an audit file against concurrent runs
func lockPath(auditFile string) string {
	return auditFile + ".lock"
}

// Run executes the main application logic
func (app *Application) Run(ctx context.Context) error {
	lock := flock.New(lockPath(app.config.Output.AuditFile))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another run is already writing %s", app.config.Output.AuditFile)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Printf("⚠️  Warning: failed to release lock: %v", err)
		}
	}()

	fmt.Printf("📂 Scanning %s...\n", app.config.Library.Root)
	entries, err := app.scanner.Scan()
	if err != nil {
		return fmt.Errorf("failed to scan music library: %w", err)
	}
	if len(entries) == 0 {
		app.printNoTracksMessage()
		return errNoTracks
	}
	fmt.Printf("🎵 Found %d local track(s)\n\n", len(entries))

	playlist, err := app.resolvePlaylist(ctx)
	if err != nil {
		return &exitError{code: exitCodeClientError, err: err}
	}

	csvWriter, err := audit.CreateCSV(app.config.Output.AuditFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := csvWriter.Close(); err != nil {
			log.Printf("⚠️  Warning: failed to close audit file: %v", err)
		}
	}()
	sinks := []reconcile.AuditWriter{csvWriter}

	var runWriter *audit.RunWriter
	if app.config.Output.HistoryDB != "" {
		history, err := audit.OpenHistory(app.config.Output.HistoryDB)
		if err != nil {
			return err
		}
		defer history.Close()

		runWriter, err = history.BeginRun(ctx, audit.RunInfo{
			MusicRoot:  app.config.Library.Root,
			PlaylistID: playlistID(playlist),
			Market:     app.config.Spotify.Market,
		})
		if err != nil {
			return err
		}
		sinks = append(sinks, runWriter)
	}

	var adder reconcile.PlaylistAdder
	if playlist != nil {
		adder = app.spotifyClient.Playlist(playlist.ID)
	}

	reconciler := reconcile.New(app.matcher, app.spotifyClient, adder, sinks...)
	reconciler.SetDebug(debugMode)
	reconciler.SetDryRun(app.dryRun)

	printHeader("MATCHING LOCAL TRACKS TO SPOTIFY")
	report, runErr := reconciler.Run(ctx, entries)

	if runWriter != nil {
		if err := runWriter.Finish(context.WithoutCancel(ctx), runErr); err != nil {
			log.Printf("⚠️  Warning: failed to record run %s: %v", runWriter.ID(), err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("reconciliation stopped after %d track(s): %w", report.Total(), runErr)
	}

	missing := app.lookupMissingTracks(ctx, report.Missing())

	app.displaySummary(report, playlist)
	if len(missing) > 0 {
		displayMissingTracksSummary(missing)
	}

	fmt.Printf("\n📝 Audit log written to %s\n", app.config.Output.AuditFile)
	if runWriter != nil {
		fmt.Printf("🗄️  Run recorded as %s\n", runWriter.ID())
	}
	return nil
}

// resolvePlaylist returns the configured playlist, creating it when only a
// name is given. A dry run never creates one.
func (app *Application) resolvePlaylist(ctx context.Context) (*spotify.PlaylistInfo, error) {
	if id := app.config.Spotify.PlaylistID; id != "" {
		info, err := app.spotifyClient.GetPlaylistInfo(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist info for %s: %w", id, err)
		}
		fmt.Printf("✅ Filling playlist: %s (ID: %s)\n", info.Name, info.ID)
		return info, nil
	}

	name := app.config.Spotify.PlaylistName
	if app.dryRun {
		fmt.Printf("🔍 Dry run: playlist %q will not be created\n", name)
		return nil, nil
	}

	info, err := app.spotifyClient.CreatePlaylist(ctx, name, app.config.Spotify.PlaylistPublic)
	if err != nil {
		return nil, err
	}
	fmt.Printf("✅ Created playlist: %s (ID: %s)\n", info.Name, info.ID)
	return info, nil
}

func playlistID(playlist *spotify.PlaylistInfo) string {
	if playlist == nil {
		return ""
	}
	return playlist.ID
}

// lookupMissingTracks resolves MusicBrainz recording IDs for unmatched tracks
// when the lookup is enabled
func (app *Application) lookupMissingTracks(ctx context.Context, entries []matcher.LocalEntry) []MissingTrack {
	missing := make([]MissingTrack, len(entries))
	for i, entry := range entries {
		missing[i].Entry = entry
	}

	if app.musicBrainzClient == nil || len(missing) == 0 {
		return missing
	}

	fmt.Println("\n🔍 Looking up MusicBrainz IDs for missing tracks...")
	for i := range missing {
		entry := missing[i].Entry
		artist := entry.ArtistName
		if !entry.HasArtist() {
			artist = ""
		}

		recording, err := app.musicBrainzClient.LookupRecording(ctx, artist, entry.TrackName)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if !errors.Is(err, musicbrainz.ErrNotFound) {
				log.Printf("⚠️  MusicBrainz lookup failed for %s - %s: %v", entry.ArtistName, entry.TrackName, err)
			}
			continue
		}
		missing[i].MusicBrainzID = recording.ID
	}
	return missing
}

// printNoTracksMessage displays a helpful message when the library yields nothing
func (app *Application) printNoTracksMessage() {
	fmt.Println("❌ No tracks found!")
	fmt.Printf("The music library at %s has no audio files.\n", app.config.Library.Root)
	fmt.Println("Expected layout:")
	fmt.Println("  <root>/<Artist>/<Track>.<ext>   one directory per artist")
	fmt.Println("  <root>/<Track>.<ext>            tracks without an artist")
	fmt.Println("\nExample:")
	fmt.Println("  ./localify --root ~/Music --playlist-name \"My Library\"")
	fmt.Println("  ./localify --debug --dry-run --root ~/Music --playlist-name \"My Library\"  # preview with debug output")
}

// flagKeys maps command line flags to the configuration keys they override
var flagKeys = []struct {
	flag  string
	key   string
	usage string
}{
	{"root", "MUSIC_ROOT", "Music library root (overrides MUSIC_ROOT env var)"},
	{"playlist-name", "SPOTIFY_PLAYLIST_NAME", "Name of the playlist to create (overrides SPOTIFY_PLAYLIST_NAME env var)"},
	{"playlist-id", "SPOTIFY_PLAYLIST_ID", "Existing playlist to fill instead of creating one (overrides SPOTIFY_PLAYLIST_ID env var)"},
	{"market", "SPOTIFY_MARKET", "Spotify market used for searches (overrides SPOTIFY_MARKET env var)"},
	{"exclusions", "EXCLUSIONS_FILE", "TOML file with track and album exclusion words (overrides EXCLUSIONS_FILE env var)"},
	{"audit-file", "AUDIT_FILE", "CSV audit log path (overrides AUDIT_FILE env var)"},
	{"history-db", "HISTORY_DB", "SQLite database recording every run (overrides HISTORY_DB env var)"},
}

// boolFlagKeys maps boolean flags to the configuration keys they override
var boolFlagKeys = []struct {
	flag  string
	key   string
	usage string
}{
	{"public", "SPOTIFY_PLAYLIST_PUBLIC", "Create the playlist as public (overrides SPOTIFY_PLAYLIST_PUBLIC env var)"},
	{"musicbrainz", "MUSICBRAINZ_LOOKUP", "Look up MusicBrainz IDs for unmatched tracks (overrides MUSICBRAINZ_LOOKUP env var)"},
}

// collectOverrides returns the configuration overrides for flags set on the command line
func collectOverrides(cmd *cobra.Command) map[string]string {
	overrides := make(map[string]string)
	flags := cmd.Flags()
	for _, fk := range flagKeys {
		if flags.Changed(fk.flag) {
			overrides[fk.key] = flags.Lookup(fk.flag).Value.String()
		}
	}
	for _, fk := range boolFlagKeys {
		if flags.Changed(fk.flag) {
			overrides[fk.key] = flags.Lookup(fk.flag).Value.String()
		}
	}
	return overrides
}

func newRootCommand() *cobra.Command {
	var dryRun bool

	rootCmd := &cobra.Command{
		Use:           "localify",
		Short:         "Recreate a local music library as a Spotify playlist",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithOverrides(collectOverrides(cmd))
			if err != nil {
				return &exitError{code: exitCodeConfigError, err: fmt.Errorf("failed to load config: %w", err)}
			}

			ctx := cmd.Context()
			app, err := NewApplication(ctx, cfg, dryRun)
			if err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}

	flags := rootCmd.Flags()
	for _, fk := range flagKeys {
		flags.String(fk.flag, "", fk.usage)
	}
	for _, fk := range boolFlagKeys {
		flags.Bool(fk.flag, false, fk.usage)
	}
	flags.BoolVar(&debugMode, "debug", false, "Enable debug output (skipped candidates and search details)")
	flags.BoolVar(&dryRun, "dry-run", false, "Match and audit without creating or modifying a playlist")

	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("❌ %v", err)
		}
		stop()
		os.Exit(exitCode(err))
	}
}
