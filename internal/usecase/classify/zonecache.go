package classify

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// patternCache compiles and memoizes the per-term regexes the classifier
// builds once per term and reuses across every article, avoiding a
// regexp.Compile call per item on a hot ingestion path.
type patternCache struct {
	cache *lru.Cache[string, *regexp.Regexp]
}

func newPatternCache(size int) *patternCache {
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		panic(fmt.Sprintf("classify: pattern cache: %v", err))
	}
	return &patternCache{cache: c}
}

func (p *patternCache) wordBoundary(term string) *regexp.Regexp {
	if re, ok := p.cache.Get(term); ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
	p.cache.Add(term, re)
	return re
}

func (p *patternCache) countySuffix(county string) *regexp.Regexp {
	key := "county:" + county
	if re, ok := p.cache.Get(key); ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(county) + `\s+(county|co\.?)`)
	p.cache.Add(key, re)
	return re
}
