// Package cache implements the content-addressed JSON response cache the
// read path sits behind: a Redis-backed envelope store supporting
// conditional GET and stale-while-revalidate, grounded on the go-redis/v9
// Get/Set/TTL pattern other_examples' h3-spatial-cache uses for its own
// feature cache (internal/cache/redisstore in that repo).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every response-cache entry, per spec.md's literal
// "api-cache:v2:" scheme.
const keyPrefix = "api-cache:v2:"

// Envelope is the stored unit: a JSON response body pinned to the etag it
// was computed from, plus when it was produced.
type Envelope struct {
	ETag     string    `json:"etag"`
	Payload  []byte    `json:"payload"`
	CachedAt time.Time `json:"cachedAt"`
}

// Store wraps a Redis client with the envelope get/set contract the read
// path handlers use. TTL/Stale are the package defaults; callers may
// override per call via SetWithTTL.
type Store struct {
	rdb   *redis.Client
	ttl   time.Duration
	stale time.Duration
}

// NewStore builds a Store. stale is floored to 60s by Set, matching
// spec.md's `TTL = ttl + max(stale, 60)` rule.
func NewStore(rdb *redis.Client, ttl, stale time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, stale: stale}
}

// Key builds the cache key for a request path and its query parameters,
// sorted so that equivalent queries in any parameter order share an entry.
func Key(path string, query url.Values) string {
	sorted := make([]string, 0, len(query))
	for k := range query {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(path)
	b.WriteByte('?')
	for i, k := range sorted {
		if i > 0 {
			b.WriteByte('&')
		}
		vals := append([]string(nil), query[k]...)
		sort.Strings(vals)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(vals, ","))
	}
	return b.String()
}

// Get returns the stored envelope, or nil if absent.
func (s *Store) Get(ctx context.Context, key string) (*Envelope, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("cache get %q: decode envelope: %w", key, err)
	}
	return &env, nil
}

// Set computes the etag from payload and stores the envelope with
// TTL = ttl + max(stale, 60)s, using the Store's configured defaults.
func (s *Store) Set(ctx context.Context, key string, payload []byte) (*Envelope, error) {
	return s.SetWithTTL(ctx, key, payload, s.ttl, s.stale)
}

// SetWithTTL is Set with an explicit ttl/stale, for routes whose
// API_CACHE_TTL_SECONDS override differs from the package default.
func (s *Store) SetWithTTL(ctx context.Context, key string, payload []byte, ttl, stale time.Duration) (*Envelope, error) {
	if stale < 60*time.Second {
		stale = 60 * time.Second
	}
	env := Envelope{ETag: computeETag(payload), Payload: payload, CachedAt: time.Now().UTC()}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("cache set %q: encode envelope: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, raw, ttl+stale).Err(); err != nil {
		return nil, fmt.Errorf("cache set %q: %w", key, err)
	}
	return &env, nil
}

// computeETag produces a weak-safe quoted etag from the response body's
// SHA-256, truncated to 32 hex characters as spec.md requires.
func computeETag(payload []byte) string {
	sum := sha256.Sum256(payload)
	return `"` + hex.EncodeToString(sum[:])[:32] + `"`
}

// WriteResponse serves a cached (or freshly produced) JSON body, setting
// the conditional-GET and cache-control headers spec.md §4.8 describes.
// produce is only invoked on a cache miss.
func (s *Store) WriteResponse(ctx context.Context, w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, produce func() ([]byte, error)) error {
	stale := s.stale
	if stale < 60*time.Second {
		stale = 60 * time.Second
	}

	env, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	hit := env != nil
	if !hit {
		payload, err := produce()
		if err != nil {
			return err
		}
		env, err = s.SetWithTTL(ctx, key, payload, ttl, stale)
		if err != nil {
			return err
		}
	}

	w.Header().Set("Cache-Control", buildCacheControl(ttl, stale))
	if hit {
		w.Header().Set("x-cache", "HIT")
	} else {
		w.Header().Set("x-cache", "MISS")
	}

	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == env.ETag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	w.Header().Set("ETag", env.ETag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(env.Payload)
	return err
}

func buildCacheControl(ttl, stale time.Duration) string {
	maxAge := ttl
	if maxAge > 60*time.Second {
		maxAge = 60 * time.Second
	}
	return "public, max-age=" + strconv.Itoa(int(maxAge.Seconds())) +
		", s-maxage=" + strconv.Itoa(int(ttl.Seconds())) +
		", stale-while-revalidate=" + strconv.Itoa(int(stale.Seconds()))
}
