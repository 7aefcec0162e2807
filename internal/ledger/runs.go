package ledger

import (
	"context"
	"fmt"
	"time"
)

// RunSummary is the persisted outcome of one run.
type RunSummary struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Matched       int
	Unmatched     int
	Ambiguous     int
	Orphans       int
	LinksCreated  int
	LinksSkipped  int
	LinksFallback int
	LinksFailed   int
}

// StartRun records the beginning of a run.
func (s *Store) StartRun(ctx context.Context, runID string) error {
	err := s.execWithRetry(ctx,
		"INSERT INTO runs (id, started_at) VALUES (?, ?)",
		runID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters for a run.
func (s *Store) FinishRun(ctx context.Context, summary RunSummary) error {
	err := s.execWithRetry(ctx, `
		UPDATE runs SET
			finished_at = ?,
			matched = ?, unmatched = ?, ambiguous = ?, orphans = ?,
			links_created = ?, links_skipped = ?, links_fallback = ?, links_failed = ?
		WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339),
		summary.Matched, summary.Unmatched, summary.Ambiguous, summary.Orphans,
		summary.LinksCreated, summary.LinksSkipped, summary.LinksFallback, summary.LinksFailed,
		summary.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecentRuns lists the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, COALESCE(finished_at, ''),
			matched, unmatched, ambiguous, orphans,
			links_created, links_skipped, links_fallback, links_failed
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var summary RunSummary
		var started, finished string
		if err := rows.Scan(&summary.ID, &started, &finished,
			&summary.Matched, &summary.Unmatched, &summary.Ambiguous, &summary.Orphans,
			&summary.LinksCreated, &summary.LinksSkipped, &summary.LinksFallback, &summary.LinksFailed); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339, started); err == nil {
			summary.StartedAt = parsed
		}
		if finished != "" {
			if parsed, err := time.Parse(time.RFC3339, finished); err == nil {
				summary.FinishedAt = parsed
			}
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return summaries, nil
}
