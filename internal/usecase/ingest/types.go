// Package ingest orchestrates feed polling, deduplication, and storage of
// news items, generalizing the single-pass RSS crawl into a multi-mode
// (RSS/Atom/scrape) pipeline with geo classification and AI summarization.
package ingest

import (
	"context"
	"errors"
	"time"

	"kynewsroom/internal/domain/entity"
)

// FeedFetcher fetches a feed's listing of items without downloading full
// article bodies. RSS/Atom feeds and HTML-scrape sources both implement
// this the same way the RSS-only original did.
type FeedFetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResult, error)
}

// FetchRequest carries the conditional-GET state a feed has accumulated
// from prior polls, so a fetcher can send If-None-Match/If-Modified-Since
// and skip re-parsing an unchanged feed.
type FetchRequest struct {
	URL          string
	ETag         string
	LastModified string
}

// FetchResult is a feed poll's outcome. NotModified is set when the origin
// server returned 304 and Items is empty; callers must not treat an empty
// Items slice as "feed removed all its articles" without checking it.
type FetchResult struct {
	Items        []FeedItem
	NotModified  bool
	ETag         string
	LastModified string
}

// FeedItem is a single entry found in a feed listing, before classification,
// summarization, or media mirroring.
type FeedItem struct {
	Title       string
	URL         string
	Author      string
	Content     string
	ImageURL    string
	PublishedAt time.Time
}

// ContentFetcher fetches and extracts the full body of a single article,
// used to enrich listings whose feed content is too short to classify or
// summarize well.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// MediaMirror mirrors an item's source image to object storage. Mirroring
// runs in the background; implementations must not block the caller, and
// any failure is logged internally rather than surfaced here.
type MediaMirror interface {
	MirrorAsync(itemID, imageURL string)
}

// Summarizer produces and caches a length-bounded AI summary for an item.
// Implementations own the cache-hit/regenerate decision and any review-queue
// side effects; a nil result with a nil error means no summary is available
// (generation failed, or repair couldn't land it in bounds) and the item
// should still be stored without one.
type Summarizer interface {
	Summarize(ctx context.Context, itemID, title, content string) (*entity.AISummary, error)
}

var (
	ErrInvalidURL        = errors.New("invalid URL or unsupported scheme")
	ErrPrivateIP         = errors.New("private IP access denied (SSRF prevention)")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrBodyTooLarge      = errors.New("response body too large")
	ErrTimeout           = errors.New("request timeout")
	ErrReadabilityFailed = errors.New("content extraction failed")
	ErrNotModified       = errors.New("feed not modified since last check")
)
