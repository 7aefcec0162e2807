package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LinkRecord is one realized link in the organized tree and the strategy
// that created it.
type LinkRecord struct {
	EntityURL      string
	FilePath       string
	CategoryFolder string
	LinkPath       string
	Strategy       string
	RunID          string
	CreatedAt      time.Time
}

// RecordLink inserts or replaces the record for a link path. A repaired
// link overwrites its previous strategy.
func (s *Store) RecordLink(ctx context.Context, record LinkRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	err := s.execWithRetry(ctx, `
		INSERT INTO links (entity_url, file_path, category_folder, link_path, strategy, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(link_path) DO UPDATE SET
			entity_url = excluded.entity_url,
			file_path = excluded.file_path,
			category_folder = excluded.category_folder,
			strategy = excluded.strategy,
			run_id = excluded.run_id,
			created_at = excluded.created_at`,
		record.EntityURL, record.FilePath, record.CategoryFolder, record.LinkPath,
		record.Strategy, record.RunID, record.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record link: %w", err)
	}
	return nil
}

// LinkStrategy returns the recorded strategy for a link path, or "" when
// the path has no record.
func (s *Store) LinkStrategy(ctx context.Context, linkPath string) (string, error) {
	ctx = ensureContext(ctx)
	var strategy string
	err := s.db.QueryRowContext(ctx,
		"SELECT strategy FROM links WHERE link_path = ?", linkPath).Scan(&strategy)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query link strategy: %w", err)
	}
	return strategy, nil
}

// LinksByStrategy lists links created with any of the given strategies, used
// by the repair pass to find degraded links (hard links and copies) without
// walking the whole tree.
func (s *Store) LinksByStrategy(ctx context.Context, strategies ...string) ([]LinkRecord, error) {
	ctx = ensureContext(ctx)
	if len(strategies) == 0 {
		return nil, nil
	}

	query := "SELECT entity_url, file_path, category_folder, link_path, strategy, COALESCE(run_id, ''), created_at FROM links WHERE strategy IN (?"
	args := []any{strategies[0]}
	for _, strategy := range strategies[1:] {
		query += ", ?"
		args = append(args, strategy)
	}
	query += ") ORDER BY link_path"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query links by strategy: %w", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

// AllLinks lists every recorded link ordered by link path.
func (s *Store) AllLinks(ctx context.Context) ([]LinkRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT entity_url, file_path, category_folder, link_path, strategy, COALESCE(run_id, ''), created_at FROM links ORDER BY link_path")
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

// DeleteLink removes the record for a link path.
func (s *Store) DeleteLink(ctx context.Context, linkPath string) error {
	if err := s.execWithRetry(ctx, "DELETE FROM links WHERE link_path = ?", linkPath); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

func scanLinks(rows *sql.Rows) ([]LinkRecord, error) {
	var records []LinkRecord
	for rows.Next() {
		var record LinkRecord
		var createdAt string
		if err := rows.Scan(&record.EntityURL, &record.FilePath, &record.CategoryFolder,
			&record.LinkPath, &record.Strategy, &record.RunID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan link row: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
			record.CreatedAt = parsed
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link rows: %w", err)
	}
	return records, nil
}
