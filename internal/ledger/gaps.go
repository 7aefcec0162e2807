package ledger

import (
	"context"
	"fmt"
	"time"
)

// GapRecord is one listing page that could not be crawled after retries.
type GapRecord struct {
	ID         int64
	RootURL    string
	Page       int
	URL        string
	Reason     string
	RunID      string
	RecordedAt time.Time
	Resolved   bool
}

// RecordGap stores a coverage gap for later retry.
func (s *Store) RecordGap(ctx context.Context, gap GapRecord) error {
	if gap.RecordedAt.IsZero() {
		gap.RecordedAt = time.Now().UTC()
	}
	err := s.execWithRetry(ctx, `
		INSERT INTO coverage_gaps (root_url, page, url, reason, run_id, recorded_at, resolved)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		gap.RootURL, gap.Page, gap.URL, gap.Reason, gap.RunID,
		gap.RecordedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record gap: %w", err)
	}
	return nil
}

// OpenGaps lists unresolved coverage gaps ordered by root URL and page.
func (s *Store) OpenGaps(ctx context.Context) ([]GapRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root_url, page, url, reason, COALESCE(run_id, ''), recorded_at
		FROM coverage_gaps WHERE resolved = 0 ORDER BY root_url, page`)
	if err != nil {
		return nil, fmt.Errorf("query gaps: %w", err)
	}
	defer rows.Close()

	var gaps []GapRecord
	for rows.Next() {
		var gap GapRecord
		var recordedAt string
		if err := rows.Scan(&gap.ID, &gap.RootURL, &gap.Page, &gap.URL, &gap.Reason,
			&gap.RunID, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan gap row: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339, recordedAt); err == nil {
			gap.RecordedAt = parsed
		}
		gaps = append(gaps, gap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gap rows: %w", err)
	}
	return gaps, nil
}

// ResolveGapsForRoot marks every gap under a listing root resolved. Called
// after a crawl of that root completes without gaps.
func (s *Store) ResolveGapsForRoot(ctx context.Context, rootURL string) error {
	if err := s.execWithRetry(ctx,
		"UPDATE coverage_gaps SET resolved = 1 WHERE root_url = ? AND resolved = 0", rootURL); err != nil {
		return fmt.Errorf("resolve gaps: %w", err)
	}
	return nil
}
