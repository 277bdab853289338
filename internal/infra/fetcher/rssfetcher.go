// Package fetcher provides implementations for retrieving feed listings and
// full article content over HTTP.
package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"kynewsroom/internal/resilience/circuitbreaker"
	"kynewsroom/internal/resilience/retry"
	"kynewsroom/internal/usecase/ingest"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// RSSFetcher implements ingest.FeedFetcher using the gofeed library. It
// carries circuit breaker and retry logic for reliability against flaky
// origin servers, and honors conditional GET so unchanged feeds don't get
// re-parsed every poll.
type RSSFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewRSSFetcher creates an RSSFetcher using the given HTTP client.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return &RSSFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

// Fetch retrieves and parses an RSS/Atom feed, skipping the parse entirely
// when the origin server reports 304 Not Modified.
func (f *RSSFetcher) Fetch(ctx context.Context, req ingest.FetchRequest) (ingest.FetchResult, error) {
	var result ingest.FetchResult

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, req)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", "feed-fetch"),
					slog.String("url", req.URL),
					slog.String("state", f.circuitBreaker.State().String()))
				return err
			}
			return err
		}
		result = cbResult.(ingest.FetchResult)
		return nil
	})
	if retryErr != nil {
		return ingest.FetchResult{}, retryErr
	}

	return result, nil
}

func (f *RSSFetcher) doFetch(ctx context.Context, req ingest.FetchRequest) (ingest.FetchResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return ingest.FetchResult{}, err
	}
	httpReq.Header.Set("User-Agent", "KYNewsroomBot/1.0")
	if req.ETag != "" {
		httpReq.Header.Set("If-None-Match", req.ETag)
	}
	if req.LastModified != "" {
		httpReq.Header.Set("If-Modified-Since", req.LastModified)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return ingest.FetchResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return ingest.FetchResult{NotModified: true, ETag: req.ETag, LastModified: req.LastModified}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return ingest.FetchResult{}, errors.New("feed fetch: unexpected status " + resp.Status)
	}

	fp := gofeed.NewParser()
	feed, err := fp.Parse(resp.Body)
	if err != nil {
		return ingest.FetchResult{}, err
	}

	items := make([]ingest.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		pubAt := time.Now()
		if it.PublishedParsed != nil {
			pubAt = *it.PublishedParsed
		}

		content := it.Content
		if content == "" {
			content = it.Description
		}

		author := ""
		if it.Author != nil {
			author = it.Author.Name
		} else if len(it.Authors) > 0 {
			author = it.Authors[0].Name
		}

		imageURL := ""
		if it.Image != nil {
			imageURL = it.Image.URL
		}

		items = append(items, ingest.FeedItem{
			Title:       it.Title,
			URL:         it.Link,
			Author:      author,
			Content:     content,
			ImageURL:    imageURL,
			PublishedAt: pubAt,
		})
	}

	return ingest.FetchResult{
		Items:        items,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}
