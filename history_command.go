package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/grrywlsn/localify/audit"
	"github.com/grrywlsn/localify/config"
)

const defaultHistoryLimit = 20

func newHistoryCommand() *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List previous runs, or the audit rows of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return &exitError{code: exitCodeConfigError, err: fmt.Errorf("no history database: set HISTORY_DB or pass --history-db")}
			}

			history, err := audit.OpenHistory(dbPath)
			if err != nil {
				return err
			}
			defer history.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				rows, err := history.Rows(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderAuditRows(rows))
				return nil
			}

			runs, err := history.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "history-db", config.LookupValue("HISTORY_DB"), "SQLite database recording every run")
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Maximum number of runs to list")

	return cmd
}

func renderRuns(runs []audit.RunSummary) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Status,
			run.MusicRoot,
			fmt.Sprint(run.Total),
			fmt.Sprint(run.Matched),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Status", "Library", "Tracks", "Matched"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func renderAuditRows(auditRows []audit.Row) string {
	rows := make([][]string, 0, len(auditRows))
	for _, row := range auditRows {
		rows = append(rows, []string{row.FileArtist, row.FileTrack, row.MatchedArtist, row.MatchedTrack, row.MatchedURL})
	}
	return renderTable([]string{"Artist", "Track", "Matched artist", "Matched track", "URL"}, rows, nil)
}
