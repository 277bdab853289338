package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/repository"
)

type AISummaryRepo struct{ db *sql.DB }

func NewAISummaryRepo(db *sql.DB) repository.AISummaryRepository {
	return &AISummaryRepo{db: db}
}

func (repo *AISummaryRepo) Get(ctx context.Context, itemID string) (*entity.AISummary, error) {
	const query = `SELECT item_id, summary, model, source_hash, generated_at FROM item_ai_summaries WHERE item_id = $1`
	var s entity.AISummary
	err := repo.db.QueryRowContext(ctx, query, itemID).Scan(&s.ItemID, &s.Summary, &s.Model, &s.SourceHash, &s.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &s, nil
}

func (repo *AISummaryRepo) Upsert(ctx context.Context, s *entity.AISummary) error {
	const query = `
INSERT INTO item_ai_summaries (item_id, summary, model, source_hash, generated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (item_id) DO UPDATE SET
	summary = EXCLUDED.summary,
	model = EXCLUDED.model,
	source_hash = EXCLUDED.source_hash,
	generated_at = EXCLUDED.generated_at`
	_, err := repo.db.ExecContext(ctx, query, s.ItemID, s.Summary, s.Model, s.SourceHash, s.GeneratedAt)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}
