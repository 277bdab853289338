package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/handler/http/respond"
	"kynewsroom/internal/repository"
)

type feedResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	RegionScope   string `json:"region_scope"`
	StateCode     string `json:"state_code"`
	DefaultCounty string `json:"default_county,omitempty"`
}

func toFeedResponse(f *entity.Feed) feedResponse {
	return feedResponse{
		ID:            f.ID,
		Name:          f.Name,
		Category:      f.Category,
		RegionScope:   f.RegionScope,
		StateCode:     f.StateCode,
		DefaultCounty: f.DefaultCounty,
	}
}

// FeedsHandler exposes the configured feed list for the public read path
// plus the admin-guarded create/update/delete surface, the feeds analogue
// of the teacher's source package generalized to this module's Feed model.
type FeedsHandler struct {
	Feeds repository.FeedRepository
}

// ListFeeds handles GET /api/feeds, optionally narrowed by ?scope=ky|national.
func (h *FeedsHandler) ListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.Feeds.ListEnabled(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	scope := r.URL.Query().Get("scope")
	out := make([]feedResponse, 0, len(feeds))
	for _, f := range feeds {
		if scope != "" && f.RegionScope != scope {
			continue
		}
		out = append(out, toFeedResponse(f))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"feeds": out})
}

// feedWriteRequest is the admin create/update wire shape; ScraperConfig is
// only required when fetch_mode is "scrape".
type feedWriteRequest struct {
	Name          string                `json:"name"`
	Category      string                `json:"category"`
	OriginURL     string                `json:"origin_url"`
	StateCode     string                `json:"state_code"`
	DefaultCounty string                `json:"default_county"`
	RegionScope   string                `json:"region_scope"`
	FetchMode     entity.FetchMode      `json:"fetch_mode"`
	ScraperID     string                `json:"scraper_id"`
	Enabled       *bool                 `json:"enabled"`
	ScraperConfig *entity.ScraperConfig `json:"scraper_config,omitempty"`
}

func (req feedWriteRequest) toFeed() *entity.Feed {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return &entity.Feed{
		Name:          req.Name,
		Category:      req.Category,
		OriginURL:     req.OriginURL,
		StateCode:     req.StateCode,
		DefaultCounty: req.DefaultCounty,
		RegionScope:   req.RegionScope,
		FetchMode:     req.FetchMode,
		ScraperID:     req.ScraperID,
		Enabled:       enabled,
		ScraperConfig: req.ScraperConfig,
	}
}

// CreateFeed handles admin-guarded POST /api/admin/feeds.
func (h *FeedsHandler) CreateFeed(w http.ResponseWriter, r *http.Request) {
	var req feedWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errInvalidFeedBody)
		return
	}
	feed := req.toFeed()
	if err := feed.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Feeds.Create(r.Context(), feed); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toFeedResponse(feed))
}

// UpdateFeed handles admin-guarded PUT /api/admin/feeds/{id}, replacing the
// named feed's configuration wholesale.
func (h *FeedsHandler) UpdateFeed(w http.ResponseWriter, r *http.Request) {
	id, err := feedIDFromPath(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	var req feedWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errInvalidFeedBody)
		return
	}
	feed := req.toFeed()
	feed.ID = id
	if err := feed.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Feeds.Update(r.Context(), feed); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toFeedResponse(feed))
}

// DeleteFeed handles admin-guarded DELETE /api/admin/feeds/{id}.
func (h *FeedsHandler) DeleteFeed(w http.ResponseWriter, r *http.Request) {
	id, err := feedIDFromPath(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Feeds.Delete(r.Context(), id); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func feedIDFromPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, errInvalidFeedID
	}
	return id, nil
}

var (
	errInvalidFeedBody = &entity.ValidationError{Field: "body", Message: "invalid feed payload"}
	errInvalidFeedID   = &entity.ValidationError{Field: "id", Message: "invalid feed id"}
)
