package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/infra/fetcher"
	"kynewsroom/internal/observability/metrics"
	"kynewsroom/internal/repository"
	"kynewsroom/internal/usecase/classify"
)

const (
	// summarizeParallelism caps concurrent AI calls independently of the
	// (higher) content-fetch parallelism, mirroring the two-tier limiter the
	// teacher's crawl pipeline used for the same reason: summarization is
	// the rate-limited, billed resource.
	summarizeParallelism = 5
)

// ContentFetchConfig controls per-item content-enhancement behavior.
type ContentFetchConfig struct {
	Parallelism int // concurrent ContentFetcher calls
	Threshold   int // minimum feed-supplied content length before fetching the full article
}

// Service orchestrates one ingestion pass: fetch each enabled feed, dedupe
// against existing items, classify region/county, summarize, mirror media,
// and persist — generalized from the teacher's single-mode RSS crawl into a
// mode-routed (RSS/Atom/scrape) pipeline.
type Service struct {
	Feeds         repository.FeedRepository
	Items         repository.ItemRepository
	Locations     repository.ItemLocationRepository
	FeedFetcher   FeedFetcher
	Scraper       FeedFetcher
	ContentFetcher ContentFetcher
	Summarizer    Summarizer
	Media         MediaMirror
	Classifier    *classify.Classifier
	contentConfig ContentFetchConfig
}

// NewService creates a Service wired to the given collaborators. Scraper,
// ContentFetcher, and Media may be nil to disable HTML-scrape feeds,
// content enhancement, or media mirroring respectively.
func NewService(
	feeds repository.FeedRepository,
	items repository.ItemRepository,
	locations repository.ItemLocationRepository,
	feedFetcher FeedFetcher,
	scraper FeedFetcher,
	contentFetcher ContentFetcher,
	summarizer Summarizer,
	media MediaMirror,
	classifier *classify.Classifier,
	contentConfig ContentFetchConfig,
) *Service {
	return &Service{
		Feeds:          feeds,
		Items:          items,
		Locations:      locations,
		FeedFetcher:    feedFetcher,
		Scraper:        scraper,
		ContentFetcher: contentFetcher,
		Summarizer:     summarizer,
		Media:          media,
		Classifier:     classifier,
		contentConfig:  contentConfig,
	}
}

// CrawlStats summarizes one ingestion pass across all feeds.
type CrawlStats struct {
	Feeds       int
	FeedItems   int64
	Inserted    int64
	Duplicated  int64
	NotModified int64
	Duration    time.Duration
}

// CrawlAllFeeds polls every enabled feed and ingests its new items.
func (s *Service) CrawlAllFeeds(ctx context.Context) (*CrawlStats, error) {
	start := time.Now()
	stats := &CrawlStats{}

	feeds, err := s.Feeds.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled feeds: %w", err)
	}
	stats.Feeds = len(feeds)

	for _, feed := range feeds {
		if err := s.processFeed(ctx, feed, stats); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, err
			}
			slog.Warn("feed processing failed", slog.Int64("feed_id", feed.ID), slog.Any("error", err))
			metrics.RecordFeedCrawlError(feed.ID, "process_failed")
		}
	}

	stats.Duration = time.Since(start)
	slog.Info("ingestion pass completed",
		slog.Int("feeds", stats.Feeds),
		slog.Int64("feed_items", stats.FeedItems),
		slog.Int64("inserted", stats.Inserted),
		slog.Int64("duplicated", stats.Duplicated),
		slog.Int64("not_modified", stats.NotModified),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// selectFetcher routes by the feed's configured fetch mode, falling back to
// the RSS fetcher for unknown/unset modes.
func (s *Service) selectFetcher(feed *entity.Feed) FeedFetcher {
	if feed.FetchMode == entity.FetchModeScrape && s.Scraper != nil {
		return s.Scraper
	}
	return s.FeedFetcher
}

func (s *Service) processFeed(ctx context.Context, feed *entity.Feed, stats *CrawlStats) error {
	feedStart := time.Now()

	result, err := s.selectFetcher(feed).Fetch(ctx, FetchRequest{
		URL:          feed.OriginURL,
		ETag:         feed.ETag,
		LastModified: feed.LastModified,
	})
	if err != nil {
		metrics.RecordFeedCrawlError(feed.ID, "fetch_failed")
		return fmt.Errorf("fetch feed: %w", err)
	}

	if result.NotModified {
		atomic.AddInt64(&stats.NotModified, 1)
		return s.Feeds.TouchChecked(context.WithoutCancel(ctx), feed.ID, time.Now(), feed.ETag, feed.LastModified)
	}

	atomic.AddInt64(&stats.FeedItems, int64(len(result.Items)))

	canonicalURLs := make([]string, 0, len(result.Items))
	canonicalByRaw := make(map[string]string, len(result.Items))
	for _, item := range result.Items {
		c, err := fetcher.Canonicalize(item.URL)
		if err != nil {
			continue
		}
		canonicalByRaw[item.URL] = c
		canonicalURLs = append(canonicalURLs, c)
	}

	existsMap, err := s.Items.ExistsByCanonicalURLBatch(ctx, canonicalURLs)
	if err != nil {
		metrics.RecordFeedCrawlError(feed.ID, "batch_check_failed")
		return fmt.Errorf("batch check canonical urls: %w", err)
	}

	beforeInserted := atomic.LoadInt64(&stats.Inserted)
	beforeDuplicated := atomic.LoadInt64(&stats.Duplicated)

	if err := s.processItems(ctx, feed, result.Items, canonicalByRaw, existsMap, stats); err != nil {
		return fmt.Errorf("process items: %w", err)
	}

	if err := s.Feeds.TouchChecked(context.WithoutCancel(ctx), feed.ID, time.Now(), result.ETag, result.LastModified); err != nil {
		return fmt.Errorf("touch feed checked: %w", err)
	}

	metrics.RecordFeedCrawl(feed.ID, time.Since(feedStart), int64(len(result.Items)),
		atomic.LoadInt64(&stats.Inserted)-beforeInserted, atomic.LoadInt64(&stats.Duplicated)-beforeDuplicated)

	return nil
}

func (s *Service) processItems(
	ctx context.Context,
	feed *entity.Feed,
	feedItems []FeedItem,
	canonicalByRaw map[string]string,
	existsMap map[string]bool,
	stats *CrawlStats,
) error {
	contentSem := make(chan struct{}, max(1, s.contentConfig.Parallelism))
	summarySem := make(chan struct{}, summarizeParallelism)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, fi := range feedItems {
		feedItem := fi
		canonicalURL, ok := canonicalByRaw[feedItem.URL]
		if !ok {
			continue
		}
		if existsMap[canonicalURL] {
			atomic.AddInt64(&stats.Duplicated, 1)
			continue
		}

		eg.Go(func() error {
			contentSem <- struct{}{}
			content := s.enhanceContent(egCtx, feedItem)
			<-contentSem

			return s.ingestOne(egCtx, feed, feedItem, canonicalURL, content, summarySem, stats)
		})
	}

	return eg.Wait()
}

func (s *Service) ingestOne(
	ctx context.Context,
	feed *entity.Feed,
	feedItem FeedItem,
	canonicalURL, content string,
	summarySem chan struct{},
	stats *CrawlStats,
) error {
	result := s.Classifier.Classify(feedItem.Title, content)
	if result.RegionScope != classify.RegionScopeKY {
		// Not Kentucky-relevant: tracked in stats as neither inserted nor
		// duplicated, simply skipped.
		return nil
	}

	publishedAt := feedItem.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = entity.DraftPublishedAt()
	}

	item := &entity.Item{
		ID:             uuid.New().String(),
		Title:          feedItem.Title,
		CanonicalURL:   canonicalURL,
		Author:         feedItem.Author,
		RegionScope:    string(result.RegionScope),
		PublishedAt:    publishedAt,
		ContentExcerpt: content,
		ImageURL:       feedItem.ImageURL,
		FetchedAt:      time.Now(),
	}

	id, inserted, err := s.Items.Upsert(ctx, item)
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	if err := s.Items.AttachToFeed(ctx, feed.ID, id); err != nil {
		return fmt.Errorf("attach item to feed: %w", err)
	}

	var counties []string
	for _, loc := range result.Locations {
		if loc.County != "" {
			counties = append(counties, loc.County)
		}
	}
	if err := s.Locations.ReplaceForItem(ctx, id, "KY", counties); err != nil {
		return fmt.Errorf("replace item locations: %w", err)
	}

	if inserted {
		atomic.AddInt64(&stats.Inserted, 1)
	} else {
		atomic.AddInt64(&stats.Duplicated, 1)
	}

	if s.Summarizer != nil {
		summarySem <- struct{}{}
		summaryStart := time.Now()
		_, err := s.Summarizer.Summarize(ctx, id, feedItem.Title, content)
		metrics.RecordSummarizationDuration(time.Since(summaryStart))
		metrics.RecordArticleSummarized(err == nil)
		<-summarySem
		if err != nil {
			slog.Warn("summarization failed", slog.String("item_id", id), slog.Any("error", err))
		}
	}

	if s.Media != nil && item.ImageURL != "" {
		s.Media.MirrorAsync(id, item.ImageURL)
	}

	return nil
}

// enhanceContent returns the feed-supplied content unless it's too short,
// in which case it fetches the full article body. A fetch failure or a
// shorter result both fall back to the feed content rather than failing
// the item — content enhancement is a best-effort improvement, not a
// requirement for ingestion.
func (s *Service) enhanceContent(ctx context.Context, item FeedItem) string {
	if s.ContentFetcher == nil {
		return item.Content
	}

	rssLength := len(item.Content)
	if rssLength >= s.contentConfig.Threshold {
		metrics.RecordContentFetchSkipped()
		return item.Content
	}

	start := time.Now()
	full, err := s.ContentFetcher.FetchContent(ctx, item.URL)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordContentFetchFailed(duration)
		return item.Content
	}
	metrics.RecordContentFetchSuccess(duration, len(full))

	if len(full) > rssLength {
		return full
	}
	return item.Content
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
