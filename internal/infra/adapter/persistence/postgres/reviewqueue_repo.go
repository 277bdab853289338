package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/repository"
)

type ReviewQueueRepo struct{ db *sql.DB }

func NewReviewQueueRepo(db *sql.DB) repository.ReviewQueueRepository {
	return &ReviewQueueRepo{db: db}
}

func (repo *ReviewQueueRepo) Create(ctx context.Context, entry *entity.ReviewQueueEntry) error {
	const query = `
INSERT INTO summary_review_queue (item_id, status, reason, reviewer, reviewed_at, reviewed_summary, note)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	return repo.db.QueryRowContext(ctx, query,
		entry.ItemID, entry.Status, entry.Reason, entry.Reviewer, entry.ReviewedAt,
		entry.ReviewedSummary, entry.Note,
	).Scan(&entry.ID)
}

func (repo *ReviewQueueRepo) ListPending(ctx context.Context, limit int) ([]*entity.ReviewQueueEntry, error) {
	const query = `
SELECT id, item_id, status, reason, reviewer, reviewed_at, reviewed_summary, note, created_at, updated_at
FROM summary_review_queue
WHERE status = 'pending'
ORDER BY created_at ASC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ListPending: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*entity.ReviewQueueEntry, 0, limit)
	for rows.Next() {
		var e entity.ReviewQueueEntry
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Status, &e.Reason, &e.Reviewer, &e.ReviewedAt,
			&e.ReviewedSummary, &e.Note, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListPending: Scan: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (repo *ReviewQueueRepo) Resolve(ctx context.Context, id int64, status entity.ReviewStatus, reviewer, reviewedSummary, note string) error {
	const query = `
UPDATE summary_review_queue SET
	status = $1, reviewer = $2, reviewed_summary = $3, note = $4,
	reviewed_at = now(), updated_at = now()
WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query, status, reviewer, reviewedSummary, note, id)
	if err != nil {
		return fmt.Errorf("Resolve: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Resolve: no rows affected")
	}
	return nil
}
