package repository

import (
	"context"
	"time"

	"kynewsroom/internal/domain/entity"
)

// ItemWithCounties bundles an Item with the county list it was classified
// into, the shape the C8 read handlers return to clients.
type ItemWithCounties struct {
	Item     *entity.Item
	Counties []string
}

// ItemListFilters narrows a keyset-paginated item listing. Scope, FeedID,
// Category, State and the county filters are ANDed together; Counties
// widens the county match to any of several names (e.g. a multi-county
// metro search).
type ItemListFilters struct {
	Scope    string // "ky", "national", "all" ("" behaves like "all")
	FeedID   *int64
	Category string
	State    string
	County   string // shorthand for Counties: []string{County}
	Counties []string
	Since    *time.Time // lower bound on COALESCE(published_at, fetched_at)
	From     *time.Time
	To       *time.Time
	// Ascending reverses Search's sort order (cursor direction inverts with
	// it); ListKeyset is always newest-first.
	Ascending bool
	// MatchingCounties widens Search to also match items tagged with any of
	// these counties, even when the free-text match is weak. The read
	// usecase populates this by checking the query text against the known
	// county list before calling Search.
	MatchingCounties []string
}

// AllCounties merges County and Counties into one de-duplicated slice.
func (f ItemListFilters) AllCounties() []string {
	if f.County == "" {
		return f.Counties
	}
	for _, c := range f.Counties {
		if c == f.County {
			return f.Counties
		}
	}
	return append([]string{f.County}, f.Counties...)
}

// Cursor is the decoded form of the opaque "<sort_ts>|<id>" pagination
// token: items strictly past Cursor, in the query's sort order, are
// returned next. PublishedAt holds the sort timestamp, which is
// COALESCE(published_at, fetched_at) rather than the raw published_at
// column, so a cursor stays stable across items with no publish date.
type Cursor struct {
	PublishedAt time.Time
	ID          string
}

type ItemRepository interface {
	Get(ctx context.Context, id string) (*entity.Item, error)
	GetByCanonicalURL(ctx context.Context, url string) (*entity.Item, error)
	// ListKeyset returns up to limit items strictly older than cursor (nil
	// cursor means start from the newest item), excluding drafts. Callers
	// that post-filter the result (e.g. re-ranking by relevance) should
	// pass an over-fetched limit and trim afterwards.
	ListKeyset(ctx context.Context, filters ItemListFilters, cursor *Cursor, limit int) ([]ItemWithCounties, error)
	// Search matches keywords as a LIKE-OR across title, summary and
	// content_excerpt, widened per filters.MatchingCounties, in
	// filters.Ascending order. cursor follows the same sort key as
	// ListKeyset (nil means start from the first page).
	Search(ctx context.Context, keywords []string, filters ItemListFilters, cursor *Cursor, limit int) ([]ItemWithCounties, error)
	// Upsert inserts a new item or updates an existing one matched by
	// canonical_url, returning the resolved ID and whether a row was
	// actually inserted (false means it was a duplicate no-op/update).
	Upsert(ctx context.Context, item *entity.Item) (id string, inserted bool, err error)
	Delete(ctx context.Context, id string) error
	ExistsByCanonicalURLBatch(ctx context.Context, urls []string) (map[string]bool, error)
	AttachToFeed(ctx context.Context, feedID int64, itemID string) error
	MarkArticleFetch(ctx context.Context, id string, status entity.ArticleFetchStatus, excerpt string, checkedAt time.Time) error
}
