package repository

import (
	"context"

	"kynewsroom/internal/domain/entity"
)

// AISummaryRepository caches the generated summary keyed by item + the hash
// of the article text it was generated from.
type AISummaryRepository interface {
	Get(ctx context.Context, itemID string) (*entity.AISummary, error)
	Upsert(ctx context.Context, summary *entity.AISummary) error
}
