package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern represents a regex pattern and its corresponding normalized template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns defines the list of patterns for dynamic routes.
// Patterns are evaluated in order from most specific to least specific.
// Pre-compiled at initialization for optimal performance (<1μs per operation).
var pathPatterns = []*PathPattern{
	// Item routes with UUID ids
	{Pattern: regexp.MustCompile(`^/api/items/[0-9a-fA-F-]+$`), Template: "/api/items/:id"},

	// Media routes carry an object key tail (news/<id>.<ext>)
	{Pattern: regexp.MustCompile(`^/api/media/.+$`), Template: "/api/media/:key"},
}

// NormalizePath normalizes dynamic URL paths to prevent metrics label cardinality explosion.
// It converts paths with IDs (e.g., /articles/123) to template format (e.g., /articles/:id).
// Static paths and search endpoints remain unchanged.
//
// Performance: <1μs per operation (pre-compiled regex patterns)
//
// Examples:
//
//	NormalizePath("/api/items/123")         // "/api/items/:id"
//	NormalizePath("/api/items/456")         // "/api/items/:id"
//	NormalizePath("/api/media/news/a.jpg")  // "/api/media/:key"
//	NormalizePath("/api/search")            // "/api/search" (unchanged)
//	NormalizePath("/api/feeds")             // "/api/feeds" (unchanged)
//	NormalizePath("/health")                // "/health" (unchanged)
//	NormalizePath("/metrics")               // "/metrics" (unchanged)
//	NormalizePath("/unknown/path/123")      // "/unknown/path/123" (no match, return original)
//
// Query parameters and trailing slashes are handled:
//
//	NormalizePath("/api/items/123?page=1")  // "/api/items/:id"
//	NormalizePath("/api/items/123/")        // "/api/items/:id"
func NormalizePath(path string) string {
	// Strip query parameters if present
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	// Strip trailing slash if present (except for root path)
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	// Try to match against known patterns
	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}

	// No match found, return original path
	// This is safe - static paths like /health, /metrics, /auth/token
	// and search endpoints like /articles/search will pass through unchanged
	return path
}

// GetExpectedCardinality returns the expected number of unique path labels
// after normalization. This is useful for capacity planning and monitoring.
//
// Expected cardinality calculation:
//   - Static endpoints: ~10 (health, metrics, ready, live, search, feeds, etc.)
//   - Template endpoints: 2 (items/:id, media/:key)
//   - Total: ~12 unique path labels
func GetExpectedCardinality() int {
	// Count template patterns
	templateCount := len(pathPatterns)

	// Estimate static endpoints
	staticCount := 10 // /health, /metrics, /auth/token, etc.

	// Total expected cardinality
	return templateCount + staticCount
}
