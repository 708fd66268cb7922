package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bookforge/internal/artifacts"
	"bookforge/internal/bookspec"
	"bookforge/internal/progress"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [spec-file|book-id]",
		Short: "Show chapter progress for one book or all books",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := progress.NewStore(cfg.Paths.ProgressDir)
			if err != nil {
				return err
			}
			layout := artifacts.NewLayout(cfg.Paths.ChaptersDir, cfg.AudioExtension())

			var entries []progress.Entry
			if len(args) == 1 {
				bookID, err := bookspec.ResolveID(args[0])
				if err != nil {
					return err
				}
				record, err := store.Load(bookID)
				entries = append(entries, progress.Entry{BookID: bookID, Record: record, Err: err})
			} else {
				if entries, err = store.List(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No books in %s\n", store.Dir())
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Book", "Title", "Chapters", "Missing audio", "Updated", "Checkpoint"},
				statusRows(entries, layout),
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func statusRows(entries []progress.Entry, layout artifacts.Layout) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		title := bookspec.DisplayTitle(entry.BookID)
		if entry.Err != nil {
			rows = append(rows, []string{entry.BookID, title, "?", "?", "", "error: " + entry.Err.Error()})
			continue
		}
		record := entry.Record
		missing := len(layout.MissingAudio(entry.BookID, record.CompletedChapters))
		checkpoint := truncateText(record.ContinuitySummary, 60)
		if record.Legacy {
			checkpoint = "(legacy record) " + checkpoint
		}
		rows = append(rows, []string{
			entry.BookID,
			title,
			strconv.Itoa(record.CompletedChapters),
			strconv.Itoa(missing),
			formatTimestamp(record.UpdatedAt),
			checkpoint,
		})
	}
	return rows
}

func truncateText(checkpoint string, limit int) string {
	flat := strings.Join(strings.Fields(checkpoint), " ")
	if flat == "" {
		return "-"
	}
	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}
	return string(runes[:limit-1]) + "…"
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}
