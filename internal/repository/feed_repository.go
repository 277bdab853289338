package repository

import (
	"context"
	"time"

	"kynewsroom/internal/domain/entity"
)

// FeedRepository persists configured Feed sources.
type FeedRepository interface {
	Get(ctx context.Context, id int64) (*entity.Feed, error)
	List(ctx context.Context) ([]*entity.Feed, error)
	ListEnabled(ctx context.Context) ([]*entity.Feed, error)
	Search(ctx context.Context, keyword string) ([]*entity.Feed, error)
	Create(ctx context.Context, feed *entity.Feed) error
	Update(ctx context.Context, feed *entity.Feed) error
	Delete(ctx context.Context, id int64) error
	TouchChecked(ctx context.Context, id int64, t time.Time, etag, lastModified string) error
}
