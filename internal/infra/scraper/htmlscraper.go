// Package scraper discovers article links on a listing page that publishes
// no RSS/Atom feed, using three parallel discovery strategies (ld+json,
// anchor scoring, loose URL scan) plus a bounded-concurrency meta-enrichment
// pass over the top-scoring candidates.
package scraper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/resilience/circuitbreaker"
	"kynewsroom/internal/resilience/retry"
	"kynewsroom/internal/usecase/ingest"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxBodySize        = 10 * 1024 * 1024
	maxJSONLDDepth     = 8
	defaultTopN        = 16
	defaultMetaWorkers = 4
	minCandidateScore  = 30
)

var (
	datePathPattern   = regexp.MustCompile(`/\d{4}/\d{2}/\d{2}/`)
	looseURLPattern   = regexp.MustCompile(`https?://[^\s"'<>]+`)
	topicPathPrefixes = []string{"/news/", "/local/", "/sports/", "/politics/", "/business/"}
	assetExtPattern   = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|pdf|css|js|svg)$`)
	tagPagePattern    = regexp.MustCompile(`(?i)/(tag|tags|topic|topics|author|authors)/`)
	searchPagePattern = regexp.MustCompile(`(?i)/search\b`)
	galleryPattern    = regexp.MustCompile(`(?i)/(video|videos|photo|photos|gallery)/`)
)

// HostKindMap is the static hostname→scraper-kind fallback used when a feed
// has no explicit scraper_id configured.
var HostKindMap = map[string]string{
	"gannett-story":     "gannett-story",
	"townnews-article":  "townnews-article",
	"mcclatchy-article": "mcclatchy-article",
}

// candidate is an article link discovered on a listing page, with its
// scoring inputs and any ld+json metadata found alongside it.
type candidate struct {
	url         string
	title       string
	score       int
	publishedAt string
	description string
	imageURL    string
	author      string
}

// HTMLScraper implements ingest.FeedFetcher for listing pages with no feed.
type HTMLScraper struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	topN           int
	metaWorkers    int
}

// NewHTMLScraper creates an HTMLScraper with the given HTTP client.
func NewHTMLScraper(client *http.Client) *HTMLScraper {
	return &HTMLScraper{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.WebScraperConfig()),
		retryConfig:    retry.WebScraperConfig(),
		topN:           defaultTopN,
		metaWorkers:    defaultMetaWorkers,
	}
}

// Fetch scrapes a listing page for candidate articles, then enriches the
// top-scoring candidates by fetching each page's meta tags.
func (s *HTMLScraper) Fetch(ctx context.Context, req ingest.FetchRequest) (ingest.FetchResult, error) {
	var result ingest.FetchResult

	retryErr := retry.WithBackoff(ctx, s.retryConfig, func() error {
		cbResult, err := s.circuitBreaker.Execute(func() (interface{}, error) {
			return s.doFetch(ctx, req.URL, nil)
		})
		if err != nil {
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

// FetchWithScraperConfig is the scrape path a feed with a configured
// scraper_id/ScraperConfig routes through, letting a feed-specific item
// selector override the generic discovery strategies.
func (s *HTMLScraper) FetchWithScraperConfig(ctx context.Context, listingURL string, cfg *entity.ScraperConfig) (ingest.FetchResult, error) {
	result, err := s.circuitBreaker.Execute(func() (interface{}, error) {
		return s.doFetch(ctx, listingURL, cfg)
	})
	if err != nil {
		return ingest.FetchResult{}, err
	}
	return result.(ingest.FetchResult), nil
}

func (s *HTMLScraper) doFetch(ctx context.Context, listingURL string, cfg *entity.ScraperConfig) (ingest.FetchResult, error) {
	html, err := s.fetchHTML(ctx, listingURL)
	if err != nil {
		return ingest.FetchResult{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ingest.FetchResult{}, err
	}

	var candidates []candidate
	if cfg != nil && cfg.ItemSelector != "" {
		candidates = s.discoverBySelector(doc, cfg)
	} else {
		byURL := map[string]*candidate{}
		for _, c := range s.discoverJSONLD(doc) {
			merge(byURL, c)
		}
		for _, c := range s.discoverAnchors(doc) {
			merge(byURL, c)
		}
		for _, c := range s.discoverLooseURLs(html) {
			merge(byURL, c)
		}
		for _, c := range byURL {
			if c.score >= minCandidateScore {
				candidates = append(candidates, *c)
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > s.topN {
		candidates = candidates[:s.topN]
	}

	items := s.enrichCandidates(ctx, candidates)
	return ingest.FetchResult{Items: items}, nil
}

func (s *HTMLScraper) fetchHTML(ctx context.Context, urlStr string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "KYNewsroomBot/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// discoverBySelector routes to an explicitly configured item/title/date/url
// selector set, used when a feed can't be matched to the generic heuristics.
func (s *HTMLScraper) discoverBySelector(doc *goquery.Document, cfg *entity.ScraperConfig) []candidate {
	var out []candidate
	doc.Find(cfg.ItemSelector).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(cfg.TitleSelector).First().Text())
		href, _ := sel.Find(cfg.URLSelector).First().Attr("href")
		if title == "" || href == "" {
			return
		}
		dateStr := strings.TrimSpace(sel.Find(cfg.DateSelector).First().Text())
		out = append(out, candidate{
			url:         makeAbsoluteURL(href, cfg.URLPrefix),
			title:       title,
			score:       minCandidateScore,
			publishedAt: parseConfiguredDate(dateStr, cfg.DateFormat),
		})
	})
	return out
}

func parseConfiguredDate(s, format string) string {
	if s == "" {
		return ""
	}
	layout := format
	if layout == "" {
		layout = time.RFC3339
	}
	if t, err := time.Parse(layout, s); err == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return ""
}

func makeAbsoluteURL(path, prefix string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(path, "/")
}

func merge(byURL map[string]*candidate, c candidate) {
	if c.url == "" {
		return
	}
	existing, ok := byURL[c.url]
	if !ok {
		cc := c
		byURL[c.url] = &cc
		return
	}
	if c.score > existing.score {
		existing.score = c.score
	}
	if existing.title == "" {
		existing.title = c.title
	}
	if existing.publishedAt == "" {
		existing.publishedAt = c.publishedAt
	}
	if existing.description == "" {
		existing.description = c.description
	}
	if existing.imageURL == "" {
		existing.imageURL = c.imageURL
	}
}

func (s *HTMLScraper) enrichCandidates(ctx context.Context, candidates []candidate) []ingest.FeedItem {
	sem := make(chan struct{}, s.metaWorkers)
	results := make([]ingest.FeedItem, len(candidates))
	done := make(chan int, len(candidates))

	for i, c := range candidates {
		i, c := i, c
		go func() {
			sem <- struct{}{}
			defer func() { <-sem; done <- i }()
			results[i] = s.enrichOne(ctx, c)
		}()
	}
	for range candidates {
		<-done
	}
	return results
}

func (s *HTMLScraper) enrichOne(ctx context.Context, c candidate) ingest.FeedItem {
	item := ingest.FeedItem{Title: c.title, URL: c.url, Content: c.description, ImageURL: c.imageURL}
	if t, err := time.Parse(time.RFC3339, c.publishedAt); err == nil {
		item.PublishedAt = t
	} else {
		item.PublishedAt = time.Now()
	}

	html, err := s.fetchHTML(ctx, c.url)
	if err != nil {
		return item
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return item
	}

	if title := firstNonEmpty(metaAttr(doc, "og:title"), metaAttr(doc, "twitter:title"), doc.Find("title").First().Text()); title != "" {
		item.Title = title
	}
	if desc := firstNonEmpty(metaAttr(doc, "og:description"), metaNameAttr(doc, "description")); desc != "" {
		item.Content = desc
	}
	if img := metaAttr(doc, "og:image"); strings.HasPrefix(img, "https://") {
		item.ImageURL = img
	}
	if pub := firstNonEmpty(metaAttr(doc, "article:published_time"), metaNameAttr(doc, "parsely-pub-date")); pub != "" {
		if t, err := time.Parse(time.RFC3339, pub); err == nil {
			item.PublishedAt = t
		}
	}
	return item
}

func metaAttr(doc *goquery.Document, property string) string {
	v, _ := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
	return v
}

func metaNameAttr(doc *goquery.Document, name string) string {
	v, _ := doc.Find(`meta[name="` + name + `"]`).First().Attr("content")
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// discoverJSONLD walks every <script type="application/ld+json"> block up to
// maxJSONLDDepth, emitting a candidate for any node shaped like a news
// article or contained in an ItemList.
func (s *HTMLScraper) discoverJSONLD(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var raw interface{}
		if err := json.Unmarshal([]byte(sel.Text()), &raw); err != nil {
			return
		}
		walkJSONLD(raw, 0, &out)
	})
	return out
}

func walkJSONLD(node interface{}, depth int, out *[]candidate) {
	if depth > maxJSONLDDepth {
		return
	}
	switch v := node.(type) {
	case map[string]interface{}:
		if c, ok := articleFromJSONLD(v); ok {
			*out = append(*out, c)
		}
		if items, ok := v["itemListElement"].([]interface{}); ok {
			for _, it := range items {
				walkJSONLD(it, depth+1, out)
			}
		}
		for _, val := range v {
			if _, isStr := val.(string); isStr {
				continue
			}
			walkJSONLD(val, depth+1, out)
		}
	case []interface{}:
		for _, item := range v {
			walkJSONLD(item, depth+1, out)
		}
	}
}

func articleFromJSONLD(m map[string]interface{}) (candidate, bool) {
	typ, _ := m["@type"].(string)
	isArticle := strings.Contains(strings.ToLower(typ), "article") || strings.Contains(strings.ToLower(typ), "newsarticle")
	item, hasItem := m["item"].(map[string]interface{})
	if hasItem {
		m = item
		typ, _ = m["@type"].(string)
		isArticle = isArticle || strings.Contains(strings.ToLower(typ), "article")
	}
	if !isArticle {
		return candidate{}, false
	}
	url, _ := m["url"].(string)
	headline, _ := m["headline"].(string)
	if url == "" || headline == "" {
		return candidate{}, false
	}
	published, _ := m["datePublished"].(string)
	desc, _ := m["description"].(string)
	author := authorFromJSONLD(m["author"])
	image := imageFromJSONLD(m["image"])

	return candidate{
		url: url, title: headline, score: 200,
		publishedAt: published, description: desc, author: author, imageURL: image,
	}, true
}

func authorFromJSONLD(v interface{}) string {
	switch a := v.(type) {
	case string:
		return a
	case map[string]interface{}:
		name, _ := a["name"].(string)
		return name
	}
	return ""
}

func imageFromJSONLD(v interface{}) string {
	switch img := v.(type) {
	case string:
		return img
	case map[string]interface{}:
		url, _ := img["url"].(string)
		return url
	case []interface{}:
		if len(img) > 0 {
			return imageFromJSONLD(img[0])
		}
	}
	return ""
}

// discoverAnchors scans <a href> links and scores them by path shape.
func (s *HTMLScraper) discoverAnchors(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		title := strings.TrimSpace(sel.Text())
		if href == "" {
			return
		}
		score := scoreURL(href, title)
		if score < minCandidateScore {
			return
		}
		out = append(out, candidate{url: href, title: title, score: score})
	})
	return out
}

func scoreURL(rawURL, title string) int {
	score := 0
	if len(title) >= 12 {
		score += 30
	}
	if datePathPattern.MatchString(rawURL) {
		score += 40
	}
	for _, prefix := range topicPathPrefixes {
		if strings.Contains(rawURL, prefix) {
			score += 25
			break
		}
	}
	if depth := strings.Count(strings.TrimPrefix(rawURL, "/"), "/"); depth >= 4 {
		score += 15
	}

	if strings.Contains(rawURL, "/story/") {
		score += 20
	}
	if strings.Contains(rawURL, "article_") && strings.HasSuffix(rawURL, ".html") {
		score += 20
	}
	if matched, _ := regexp.MatchString(`/article\d+\.html`, rawURL); matched {
		score += 20
	}

	if assetExtPattern.MatchString(rawURL) {
		score -= 250
	}
	if tagPagePattern.MatchString(rawURL) {
		score -= 140
	}
	if searchPagePattern.MatchString(rawURL) {
		score -= 60
	}
	if strings.Contains(rawURL, "/ap/") {
		score -= 25
	}
	if galleryPattern.MatchString(rawURL) {
		score -= 35
	}

	return score
}

// discoverLooseURLs is the fallback strategy: a raw regex scan of the page
// text for anything URL-shaped, scored the same way as anchors.
func (s *HTMLScraper) discoverLooseURLs(html string) []candidate {
	var out []candidate
	for _, u := range looseURLPattern.FindAllString(html, -1) {
		score := scoreURL(u, "")
		if score < minCandidateScore {
			continue
		}
		out = append(out, candidate{url: u, score: score})
	}
	return out
}
