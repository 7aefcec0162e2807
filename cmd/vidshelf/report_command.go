package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vidshelf/internal/ledger"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show recent runs and unresolved coverage gaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, cleanup, err := ctx.newRunner()
			if err != nil {
				return err
			}
			defer cleanup()

			runs, gaps, err := run.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"runs": runs, "gaps": gaps})
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
			} else {
				rows := make([][]string, 0, len(runs))
				for _, summary := range runs {
					rows = append(rows, []string{
						shortRunID(summary.ID),
						formatRunTime(summary.StartedAt),
						fmt.Sprintf("%d", summary.Matched),
						fmt.Sprintf("%d", summary.Unmatched),
						fmt.Sprintf("%d", summary.Ambiguous),
						fmt.Sprintf("%d", summary.LinksCreated),
						fmt.Sprintf("%d", summary.LinksFailed),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Matched", "Unmatched", "Ambiguous", "Links", "Failed"},
					rows, 2, 3, 4, 5, 6))
			}

			if len(gaps) > 0 {
				fmt.Fprintf(out, "Unresolved coverage gaps: %d\n", len(gaps))
				fmt.Fprintln(out, renderTable([]string{"Root", "Page", "Reason"}, gapRows(gaps), 1))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "How many runs to show")
	return cmd
}

func gapRows(gaps []ledger.GapRecord) [][]string {
	rows := make([][]string, 0, len(gaps))
	for _, gap := range gaps {
		rows = append(rows, []string{gap.RootURL, fmt.Sprintf("%d", gap.Page), gap.Reason})
	}
	return rows
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatRunTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04")
}
