package entity

import (
	"strings"
	"time"
)

// ArticleFetchStatus records the outcome of the C3 article-enrichment step.
type ArticleFetchStatus string

const (
	ArticleFetchPending ArticleFetchStatus = "pending"
	ArticleFetchOK      ArticleFetchStatus = "ok"
	ArticleFetchFailed  ArticleFetchStatus = "failed"
	ArticleFetchSkipped ArticleFetchStatus = "skipped"
)

// draftPublishedAtPrefix marks items whose PublishedAt is a placeholder far
// in the future; these are excluded from every public read-path query.
const draftPublishedAtPrefix = "9999"

// Item represents a single ingested news article after dedupe/normalize.
type Item struct {
	ID                 string // uuid
	Title              string
	CanonicalURL       string
	Author             string
	RegionScope        string
	PublishedAt        time.Time
	Summary            string
	ContentExcerpt     string
	ImageURL           string
	FetchedAt          time.Time
	ContentHash        string
	ArticleCheckedAt   *time.Time
	ArticleFetchStatus ArticleFetchStatus
}

// DraftPublishedAt returns the sentinel PublishedAt value for an item whose
// source hasn't supplied a real publish date yet (e.g. a scrape source
// where the listing page predates the article going live). Assigning this
// marks the item a draft until a later enrichment pass finds a real date.
func DraftPublishedAt() time.Time {
	return time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
}

// IsDraft reports whether the item carries the draft sentinel in
// PublishedAt: a value whose formatted year begins with "9999" marks a
// placeholder publish date used by feeds that don't supply one until the
// article goes live. Draft items are excluded from public queries.
func (i *Item) IsDraft() bool {
	return strings.HasPrefix(i.PublishedAt.UTC().Format("2006"), draftPublishedAtPrefix)
}

// Validate validates the Item entity's required fields.
func (i *Item) Validate() error {
	if i.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if i.CanonicalURL == "" {
		return &ValidationError{Field: "canonical_url", Message: "canonical_url is required"}
	}
	if err := ValidateURL(i.CanonicalURL); err != nil {
		return err
	}
	return nil
}
