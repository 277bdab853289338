package entity

import (
	"errors"
	"fmt"
	"time"
)

// FetchMode selects how a Feed's listing page is retrieved and parsed.
type FetchMode string

const (
	FetchModeRSS    FetchMode = "rss"
	FetchModeAtom   FetchMode = "atom"
	FetchModeScrape FetchMode = "scrape"
)

// Feed represents a configured news source the ingestion pipeline polls.
// It carries the conditional-GET cache state (ETag/LastModified) so repeat
// polls can short-circuit on 304 Not Modified.
type Feed struct {
	ID             int64
	Name           string
	Category       string
	OriginURL      string
	StateCode      string
	DefaultCounty  string
	RegionScope    string
	FetchMode      FetchMode
	ScraperID      string
	Enabled        bool
	ETag           string
	LastModified   string
	LastCheckedAt  *time.Time
	ScraperConfig  *ScraperConfig `json:"scraper_config,omitempty"`
}

// ScraperConfig holds selectors/extraction hints for non-RSS listing pages.
// Different fields are used depending on the listing's rendering strategy:
// - static HTML: ItemSelector, TitleSelector, DateSelector, URLSelector, DateFormat
// - Next.js __NEXT_DATA__ payload: DataKey
// - Remix route loader payload: ContextKey
type ScraperConfig struct {
	ItemSelector  string `json:"item_selector,omitempty"`
	TitleSelector string `json:"title_selector,omitempty"`
	DateSelector  string `json:"date_selector,omitempty"`
	URLSelector   string `json:"url_selector,omitempty"`
	DateFormat    string `json:"date_format,omitempty"`

	DataKey    string `json:"data_key,omitempty"`
	ContextKey string `json:"context_key,omitempty"`

	URLPrefix string `json:"url_prefix,omitempty"`
}

// Validate validates the Feed entity fields, defaulting FetchMode to rss for
// backward compatibility with feed rows seeded before scrape mode existed.
func (f *Feed) Validate() error {
	if f.FetchMode == "" {
		f.FetchMode = FetchModeRSS
	}

	validModes := map[FetchMode]bool{
		FetchModeRSS:    true,
		FetchModeAtom:   true,
		FetchModeScrape: true,
	}
	if !validModes[f.FetchMode] {
		return fmt.Errorf("invalid fetch_mode: %s (must be rss, atom, or scrape)", f.FetchMode)
	}

	if f.FetchMode == FetchModeScrape && f.ScraperConfig == nil {
		return errors.New("scraper_config is required for scrape fetch_mode")
	}

	if f.OriginURL != "" {
		if err := ValidateURL(f.OriginURL); err != nil {
			return err
		}
	}

	return nil
}
