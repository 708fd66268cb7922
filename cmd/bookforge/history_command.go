package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"bookforge/internal/bookspec"
	"bookforge/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <spec-file|book-id>",
		Short: "Show recent runs and the chapter steps of the latest run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return errors.New("run journal is disabled (set [journal] enabled = true)")
			}
			bookID, err := bookspec.ResolveID(args[0])
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), bookID, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintf(out, "No runs recorded for %s\n", bookID)
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Status", "Chapters", "Duration", "Error"},
				runRows(runs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))

			latest := runs[0]
			attempts, err := store.Attempts(cmd.Context(), latest.ID)
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				return nil
			}
			fmt.Fprintf(out, "\nSteps of run %s\n", shortID(latest.ID))
			fmt.Fprintln(out, renderTable(
				[]string{"Chapter", "Step", "Status", "Duration", "Error"},
				attemptRows(attempts),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to show")
	return cmd
}

func runRows(runs []journal.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		chapters := "-"
		if run.Completed >= run.StartChapter {
			chapters = fmt.Sprintf("%d-%d", run.StartChapter, run.Completed)
		}
		rows = append(rows, []string{
			shortID(run.ID),
			formatTimestamp(run.StartedAt),
			string(run.Status),
			chapters,
			formatDuration(run.Duration()),
			formatError(run.ErrorKind, run.ErrorMessage),
		})
	}
	return rows
}

func attemptRows(attempts []journal.Attempt) [][]string {
	rows := make([][]string, 0, len(attempts))
	for _, attempt := range attempts {
		chapter := "-"
		if attempt.Chapter > 0 {
			chapter = strconv.Itoa(attempt.Chapter)
		}
		rows = append(rows, []string{
			chapter,
			string(attempt.Step),
			string(attempt.Status),
			formatDuration(attempt.Duration),
			formatError(attempt.ErrorKind, attempt.ErrorMessage),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func formatError(kind, message string) string {
	if kind == "" && message == "" {
		return ""
	}
	return truncateText(fmt.Sprintf("[%s] %s", kind, message), 70)
}
