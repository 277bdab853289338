// Package api implements the public read-path and admin-guarded write
// HTTP handlers: item listing/search/detail, county counts, feed listing,
// media streaming, the open-proxy, the admin ingest trigger, and admin
// feeds CRUD. Handlers are thin translators between net/http and
// internal/usecase/read.Service, following the same JSON-in/JSON-out shape
// the teacher's internal/handler/http/article handlers used.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"kynewsroom/internal/common/pagination"
	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/handler/http/respond"
	"kynewsroom/internal/infra/cache"
	"kynewsroom/internal/repository"
	"kynewsroom/internal/usecase/read"
)

// itemResponse is the wire shape for one item, trimming ItemView down to
// what a client needs.
type itemResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Author      string  `json:"author,omitempty"`
	RegionScope string  `json:"region_scope"`
	PublishedAt string  `json:"published_at,omitempty"`
	Summary     string  `json:"summary,omitempty"`
	MediaURL    string  `json:"media_url,omitempty"`
	Counties    []string `json:"counties,omitempty"`
}

func toItemResponse(v read.ItemView) itemResponse {
	out := itemResponse{
		ID:          v.Item.ID,
		Title:       v.Item.Title,
		URL:         v.Item.CanonicalURL,
		Author:      v.Item.Author,
		RegionScope: v.Item.RegionScope,
		MediaURL:    v.MediaURL,
		Counties:    v.Counties,
	}
	if !v.Item.PublishedAt.IsZero() && !v.Item.IsDraft() {
		out.PublishedAt = v.Item.PublishedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if v.Summary != nil {
		out.Summary = v.Summary.Summary
	} else {
		out.Summary = v.Item.Summary
	}
	return out
}

type pageResponse struct {
	Items      []itemResponse `json:"items"`
	NextCursor *string        `json:"next_cursor"`
	Limit      int            `json:"limit"`
}

func toPageResponse(page *read.Page) pageResponse {
	items := make([]itemResponse, 0, len(page.Items))
	for _, v := range page.Items {
		items = append(items, toItemResponse(v))
	}
	return pageResponse{Items: items, NextCursor: page.Pagination.NextCursor, Limit: page.Pagination.Limit}
}

// Handler bundles the read-path service and response cache the item,
// search, county, feed, media, and open-proxy handlers share.
type Handler struct {
	Read           *read.Service
	Cache          *cache.Store
	PaginationConf pagination.Config
	CacheTTLSeconds int
}

// ListItems handles GET /api/items, filtered by scope/category/state/county
// and the cursor/limit/hours pagination window.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.ParseQueryParams(r, h.PaginationConf)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	filters := filtersFromQuery(r)

	h.serveCached(w, r, func() (any, error) {
		page, err := h.Read.ListItems(r.Context(), filters, params)
		if err != nil {
			return nil, err
		}
		return toPageResponse(page), nil
	})
}

// SearchItems handles GET /api/search?q=...
func (h *Handler) SearchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respond.Error(w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	params, err := pagination.ParseQueryParams(r, h.PaginationConf)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	filters := filtersFromQuery(r)

	h.serveCached(w, r, func() (any, error) {
		page, err := h.Read.SearchItems(r.Context(), q, filters, params)
		if err != nil {
			return nil, err
		}
		return toPageResponse(page), nil
	})
}

// GetItem handles GET /api/items/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respond.Error(w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	view, err := h.Read.GetItem(r.Context(), id)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	if view == nil {
		respond.Error(w, http.StatusNotFound, errNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, toItemResponse(*view))
}

// ListCounties handles GET /api/counties?state=&hours=.
func (h *Handler) ListCounties(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		state = "KY"
	}
	hours := h.PaginationConf.DefaultHours
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		parsed, err := strconv.Atoi(hoursStr)
		if err != nil || parsed < 1 || parsed > h.PaginationConf.MaxHours {
			respond.Error(w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		hours = parsed
	}

	h.serveCached(w, r, func() (any, error) {
		counts, err := h.Read.ListCounties(r.Context(), state, hours)
		if err != nil {
			return nil, err
		}
		return map[string]any{"counties": counts}, nil
	})
}

// serveCached runs produce behind the response cache envelope when a
// cache is configured, and directly otherwise (e.g. in tests).
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, produce func() (any, error)) {
	if h.Cache == nil || isAdminOrAccessRequest(r) {
		v, err := produce()
		if err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
		respond.JSON(w, http.StatusOK, v)
		return
	}

	key := cache.Key(r.URL.Path, r.URL.Query())
	ttl := h.cacheTTL()
	err := h.Cache.WriteResponse(r.Context(), w, r, key, ttl, func() ([]byte, error) {
		v, err := produce()
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}

func (h *Handler) cacheTTL() time.Duration {
	if h.CacheTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(h.CacheTTLSeconds) * time.Second
}

// isAdminOrAccessRequest reports whether the response cache should be
// bypassed per spec.md's "GET requests without an admin or
// Cloudflare-Access header" rule.
func isAdminOrAccessRequest(r *http.Request) bool {
	if r.Header.Get("Authorization") != "" {
		return true
	}
	return r.Header.Get("Cf-Access-Authenticated-User-Email") != ""
}

func filtersFromQuery(r *http.Request) repository.ItemListFilters {
	q := r.URL.Query()
	filters := repository.ItemListFilters{
		Scope:    q.Get("scope"),
		Category: q.Get("category"),
		State:    q.Get("state"),
		County:   q.Get("county"),
	}
	return filters
}

var (
	errInvalidQuery = &entity.ValidationError{Field: "query", Message: "invalid or missing query parameter"}
	errNotFound     = &entity.ValidationError{Field: "id", Message: "item not found"}
)
