package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run ID is not in the history
var ErrRunNotFound = errors.New("run not found")

// History keeps the audit rows of every reconciliation run in SQLite so
// earlier runs can be compared after the CSV has been overwritten.
type History struct {
	db *sql.DB
}

// RunInfo describes a run being started
type RunInfo struct {
	MusicRoot  string
	PlaylistID string
	Market     string
}

// RunSummary is a run as listed from history
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	RunInfo
	Status  string
	Total   int
	Matched int
}

// OpenHistory opens or creates the history database at path
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	if err := addMatchedColumn(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &History{db: db}, nil
}

// addMatchedColumn upgrades databases created before audit rows carried an
// explicit match flag. Older rows are marked matched when they hold a URL.
func addMatchedColumn(db *sql.DB) error {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('audit_rows') WHERE name = 'matched'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("inspect audit_rows: %w", err)
	}
	if count > 0 {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE audit_rows ADD COLUMN matched INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("add matched column: %w", err)
	}
	if _, err := db.Exec(`UPDATE audit_rows SET matched = 1 WHERE matched_url <> ''`); err != nil {
		return fmt.Errorf("backfill matched column: %w", err)
	}
	return nil
}

// Close closes the underlying database connection
func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// BeginRun records a new run and returns a writer for its rows
func (h *History) BeginRun(ctx context.Context, info RunInfo) (*RunWriter, error) {
	id := uuid.NewString()
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, music_root, playlist_id, market, status) VALUES (?, ?, ?, ?, ?, ?)`,
		id, formatTime(time.Now()), info.MusicRoot, info.PlaylistID, info.Market, StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &RunWriter{history: h, id: id}, nil
}

// Runs lists the most recent runs, newest first
func (h *History) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, r.finished_at, r.music_root, r.playlist_id, r.market, r.status,
		       COUNT(a.seq), COALESCE(SUM(a.matched), 0)
		FROM runs r
		LEFT JOIN audit_rows a ON a.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var s RunSummary
		var started string
		var finished sql.NullString
		if err := rows.Scan(&s.ID, &started, &finished, &s.MusicRoot, &s.PlaylistID, &s.Market, &s.Status, &s.Total, &s.Matched); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if s.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if finished.Valid {
			if s.FinishedAt, err = parseTime(finished.String); err != nil {
				return nil, err
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Rows returns the audit rows of a run in the order they were written
func (h *History) Rows(ctx context.Context, runID string) ([]Row, error) {
	var exists int
	err := h.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT file_track, file_artist, matched, matched_track, matched_artist, matched_url
		FROM audit_rows WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query audit rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.FileTrack, &r.FileArtist, &r.Matched, &r.MatchedTrack, &r.MatchedArtist, &r.MatchedURL); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunWriter appends the rows of one run
type RunWriter struct {
	history *History
	id      string
	seq     int
}

// ID returns the run identifier
func (w *RunWriter) ID() string {
	return w.id
}

// Write appends one row to the run
func (w *RunWriter) Write(row Row) error {
	_, err := w.history.db.Exec(`
		INSERT INTO audit_rows (run_id, seq, file_track, file_artist, matched, matched_track, matched_artist, matched_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.id, w.seq, row.FileTrack, row.FileArtist, row.Matched, row.MatchedTrack, row.MatchedArtist, row.MatchedURL)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	w.seq++
	return nil
}

// Finish marks the run completed, or failed when runErr is not nil
func (w *RunWriter) Finish(ctx context.Context, runErr error) error {
	status := StatusCompleted
	if runErr != nil {
		status = StatusFailed
	}
	_, err := w.history.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		formatTime(time.Now()), status, w.id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
