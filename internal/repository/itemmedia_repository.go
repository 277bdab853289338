package repository

import (
	"context"

	"kynewsroom/internal/domain/entity"
)

// ItemMediaRepository tracks the object-storage mirror of an item's image.
type ItemMediaRepository interface {
	Get(ctx context.Context, itemID string) (*entity.ItemMedia, error)
	Upsert(ctx context.Context, media *entity.ItemMedia) error
}
