package repository

import (
	"context"
	"time"
)

// CountyCount is one row of the /api/counties aggregation: how many
// non-draft items published within the requested window were tagged with
// this county.
type CountyCount struct {
	County string
	Count  int
}

// ItemLocationRepository manages an item's classified county set.
type ItemLocationRepository interface {
	ListByItem(ctx context.Context, itemID string) ([]string, error)
	// ReplaceForItem swaps an item's full county set in one transaction:
	// delete-then-insert, never a partial diff.
	ReplaceForItem(ctx context.Context, itemID, stateCode string, counties []string) error
	// CountByState aggregates county tag counts for items whose sort
	// timestamp falls within the last `since` window, excluding drafts.
	CountByState(ctx context.Context, stateCode string, since time.Time) ([]CountyCount, error)
}
