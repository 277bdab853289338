package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kynewsroom/internal/repository"

	"github.com/lib/pq"
)

type ItemLocationRepo struct{ db *sql.DB }

func NewItemLocationRepo(db *sql.DB) repository.ItemLocationRepository {
	return &ItemLocationRepo{db: db}
}

func (repo *ItemLocationRepo) ListByItem(ctx context.Context, itemID string) ([]string, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT county FROM item_locations WHERE item_id = $1 ORDER BY county`, itemID)
	if err != nil {
		return nil, fmt.Errorf("ListByItem: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counties []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("ListByItem: Scan: %w", err)
		}
		counties = append(counties, c)
	}
	return counties, rows.Err()
}

// ReplaceForItem swaps an item's full county set inside one transaction:
// the classifier always reclassifies from scratch, so a partial diff would
// leave stale rows behind on every county removed since the last pass.
func (repo *ItemLocationRepo) ReplaceForItem(ctx context.Context, itemID, stateCode string, counties []string) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReplaceForItem: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_locations WHERE item_id = $1`, itemID); err != nil {
		return fmt.Errorf("ReplaceForItem: delete: %w", err)
	}

	if len(counties) > 0 {
		const query = `
INSERT INTO item_locations (item_id, state_code, county)
SELECT $1, $2, unnest($3::text[])
ON CONFLICT DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, itemID, stateCode, pq.Array(counties)); err != nil {
			return fmt.Errorf("ReplaceForItem: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ReplaceForItem: commit: %w", err)
	}
	return nil
}

// CountByState joins item_locations against items so the window and draft
// exclusion match the same sort timestamp and sentinel ListKeyset/Search use.
func (repo *ItemLocationRepo) CountByState(ctx context.Context, stateCode string, since time.Time) ([]repository.CountyCount, error) {
	const query = `
SELECT l.county, COUNT(*)
FROM item_locations l
JOIN items i ON i.id = l.item_id
WHERE l.state_code = $1
  AND i.published_at < '9999-01-01'
  AND COALESCE(i.published_at, i.fetched_at) >= $2
GROUP BY l.county
ORDER BY COUNT(*) DESC, l.county ASC`

	rows, err := repo.db.QueryContext(ctx, query, stateCode, since)
	if err != nil {
		return nil, fmt.Errorf("CountByState: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []repository.CountyCount
	for rows.Next() {
		var c repository.CountyCount
		if err := rows.Scan(&c.County, &c.Count); err != nil {
			return nil, fmt.Errorf("CountByState: Scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
