package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/grrywlsn/localify/musicbrainz"
	"github.com/grrywlsn/localify/reconcile"
	"github.com/grrywlsn/localify/spotify"
)

// Constants for display formatting
const (
	separatorLine   = "="
	separatorLength = 80
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func printHeader(title string) {
	fmt.Println("\n" + strings.Repeat(separatorLine, separatorLength))
	fmt.Println(title)
	fmt.Println(strings.Repeat(separatorLine, separatorLength))
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// formatPercent formats n as a share of total
func formatPercent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

// summaryRows builds the rows of the summary table
func summaryRows(report *reconcile.Report) [][]string {
	total := report.Total()
	return [][]string{
		{"Total tracks", fmt.Sprint(total), ""},
		{"Matched", fmt.Sprint(report.Matched), formatPercent(report.Matched, total)},
		{"No match", fmt.Sprint(report.Unmatched), formatPercent(report.Unmatched, total)},
	}
}

// displaySummary displays a summary of the matching results
func (app *Application) displaySummary(report *reconcile.Report, playlist *spotify.PlaylistInfo) {
	printHeader("SUMMARY")
	fmt.Println(renderTable([]string{"", "Tracks", "Share"}, summaryRows(report), []columnAlignment{alignLeft, alignRight, alignRight}))

	if report.Matched == 0 {
		fmt.Println("\n❌ No matches found")
		return
	}

	fmt.Printf("\n✅ Found %d matched tracks on Spotify\n", report.Matched)
	switch {
	case app.dryRun:
		fmt.Println("🔍 Dry run: no tracks were added")
	case playlist != nil:
		fmt.Printf("✅ Successfully filled playlist: %s (ID: %s)\n", playlist.Name, playlist.ID)
	}
}

// displayMissingTracksSummary displays a summary of tracks that were not matched
func displayMissingTracksSummary(missingTracks []MissingTrack) {
	printHeader("MISSING TRACKS SUMMARY")
	fmt.Printf("Tracks not found on Spotify (%d total):\n", len(missingTracks))
	fmt.Println(strings.Repeat("-", separatorLength))

	for i, track := range missingTracks {
		fmt.Printf("%3d. %s - %s\n", i+1, track.Entry.ArtistName, track.Entry.TrackName)
		if track.MusicBrainzID != "" {
			fmt.Printf("     MusicBrainz ID: %s - %s\n", track.MusicBrainzID, musicbrainz.RecordingURL(track.MusicBrainzID))
		}
	}
}
