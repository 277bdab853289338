package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/repository"
)

type ItemMediaRepo struct{ db *sql.DB }

func NewItemMediaRepo(db *sql.DB) repository.ItemMediaRepository {
	return &ItemMediaRepo{db: db}
}

func (repo *ItemMediaRepo) Get(ctx context.Context, itemID string) (*entity.ItemMedia, error) {
	const query = `SELECT item_id, source_url, object_key, content_type, byte_count, updated_at FROM item_media WHERE item_id = $1`
	var m entity.ItemMedia
	err := repo.db.QueryRowContext(ctx, query, itemID).Scan(&m.ItemID, &m.SourceURL, &m.ObjectKey, &m.ContentType, &m.ByteCount, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &m, nil
}

func (repo *ItemMediaRepo) Upsert(ctx context.Context, m *entity.ItemMedia) error {
	const query = `
INSERT INTO item_media (item_id, source_url, object_key, content_type, byte_count, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (item_id) DO UPDATE SET
	source_url = EXCLUDED.source_url,
	object_key = EXCLUDED.object_key,
	content_type = EXCLUDED.content_type,
	byte_count = EXCLUDED.byte_count,
	updated_at = EXCLUDED.updated_at`
	_, err := repo.db.ExecContext(ctx, query, m.ItemID, m.SourceURL, m.ObjectKey, m.ContentType, m.ByteCount, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}
