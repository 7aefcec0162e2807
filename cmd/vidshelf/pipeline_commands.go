package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"vidshelf/internal/runner"
)

func newCrawlCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the remote site and rebuild the video and category lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, cleanup, err := ctx.newRunner()
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := run.Crawl(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}
			printCrawlReport(cmd, report)
			return nil
		},
	}
}

func printCrawlReport(cmd *cobra.Command, report *runner.CrawlReport) {
	out := cmd.OutOrStdout()
	source := "pagination crawl"
	if report.UsedSitemap {
		source = "sitemap"
	}
	fmt.Fprintf(out, "Discovered %d videos across %d categories (%d pages, via %s)\n",
		report.Videos, report.Categories, report.PagesFetched, source)
	if len(report.Gaps) == 0 {
		return
	}
	fmt.Fprintf(out, "Coverage is incomplete: %d pages failed and will be retried next run\n", len(report.Gaps))
	rows := make([][]string, 0, len(report.Gaps))
	for _, gap := range report.Gaps {
		rows = append(rows, []string{fmt.Sprintf("%d", gap.Page), gap.URL, gap.Reason})
	}
	fmt.Fprintln(out, renderTable([]string{"Page", "URL", "Reason"}, rows, 0))
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the local video folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, cleanup, err := ctx.newRunner()
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := run.Scan(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Found %d video files\n", report.Files)
			sources := make([]string, 0, len(report.Sources))
			for source := range report.Sources {
				sources = append(sources, source)
			}
			sort.Strings(sources)
			rows := make([][]string, 0, len(sources))
			for _, source := range sources {
				rows = append(rows, []string{source, fmt.Sprintf("%d", report.Sources[source])})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Source folder", "Files"}, rows, 1))
			}
			return nil
		},
	}
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match",
		Short: "Resolve which local file belongs to which catalogued video",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, cleanup, err := ctx.newRunner()
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := run.Match(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}
			printMatchReport(cmd, report)
			return nil
		},
	}
}

func printMatchReport(cmd *cobra.Command, report *runner.MatchReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Catalog: %d videos, local: %d files\n", report.Videos, report.Files)
	fmt.Fprintf(out, "Matched: %d  Unmatched: %d  Ambiguous: %d  Orphans: %d\n",
		report.Matched, report.Unmatched, report.Ambiguous, len(report.Orphans))

	if len(report.AmbiguousAt) > 0 {
		rows := make([][]string, 0, len(report.AmbiguousAt))
		for _, entry := range report.AmbiguousAt {
			rows = append(rows, []string{
				entry.Title,
				entry.Candidate,
				fmt.Sprintf("%.3f", entry.Score),
				fmt.Sprintf("%.3f", entry.RunnerUp),
			})
		}
		fmt.Fprintln(out, "Ambiguous matches, left for manual review:")
		fmt.Fprintln(out, renderTable([]string{"Title", "Best candidate", "Score", "Runner-up"}, rows, 2, 3))
	}
	if len(report.Orphans) > 0 {
		fmt.Fprintln(out, "Local files no video claims:")
		for _, orphan := range report.Orphans {
			fmt.Fprintf(out, "  %s\n", orphan)
		}
	}
	for _, issue := range report.ListIssues {
		fmt.Fprintf(out, "List issue: %s\n", issue)
	}
}

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "organize",
		Short: "Build the organized link tree from the current catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, cleanup, err := ctx.newRunner()
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := run.Organize(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}
			printOrganizeReport(cmd, report)
			return nil
		},
	}
}

func printOrganizeReport(cmd *cobra.Command, report *runner.OrganizeReport) {
	printMatchReport(cmd, &report.MatchReport)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Links: %d created, %d already in place, %d needed a fallback strategy, %d failed\n",
		report.LinksCreated, report.LinksSkipped, report.LinksFallback, report.LinksFailed)
	fmt.Fprintf(out, "Touched %d category folders (run %s)\n", report.Folders, report.RunID)
	for _, failure := range report.Failures {
		fmt.Fprintf(out, "Failed: %s (%s)\n", failure.LinkPath, failure.Reason)
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Crawl and organize in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, cleanup, err := ctx.newRunner()
			if err != nil {
				return err
			}
			defer cleanup()

			crawlReport, organizeReport, err := run.Run(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"crawl":    crawlReport,
					"organize": organizeReport,
				})
			}
			printCrawlReport(cmd, crawlReport)
			printOrganizeReport(cmd, organizeReport)
			return nil
		},
	}
}

func newRepairCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Upgrade hardlink and copy links to symlinks where possible",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, cleanup, err := ctx.newRunner()
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := run.Repair(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Repair: %d upgraded, %d unchanged, %d stale records removed\n",
				report.Upgraded, report.Unchanged, report.Removed)
			return nil
		},
	}
}
