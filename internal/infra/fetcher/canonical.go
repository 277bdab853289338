package fetcher

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var trackingParamPattern = regexp.MustCompile(`^(utm_|gclid|fbclid|mc_eid|mkt_tok|outputType|output)`)

// Canonicalize forces https, strips fragments and tracking params, and
// collapses a trailing slash, matching the identity key the deduplicator
// upserts items on.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("canonicalize: unsupported scheme %q", u.Scheme)
	}
	u.Scheme = "https"
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if trackingParamPattern.MatchString(key) {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}
