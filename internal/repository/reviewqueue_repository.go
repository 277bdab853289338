package repository

import (
	"context"

	"kynewsroom/internal/domain/entity"
)

// ReviewQueueRepository persists flagged summaries awaiting editor action.
type ReviewQueueRepository interface {
	Create(ctx context.Context, entry *entity.ReviewQueueEntry) error
	ListPending(ctx context.Context, limit int) ([]*entity.ReviewQueueEntry, error)
	Resolve(ctx context.Context, id int64, status entity.ReviewStatus, reviewer, reviewedSummary, note string) error
}
