package api

import (
	"net/http"

	"kynewsroom/internal/handler/http/respond"
	"kynewsroom/internal/usecase/ingest"
)

// AdminHandler exposes the one admin-guarded write endpoint spec.md names:
// a manual ingestion trigger, per "admin-triggered ingest is an
// authenticated HTTP POST".
type AdminHandler struct {
	Ingest *ingest.Service
}

// TriggerIngest handles POST /api/admin/ingest, running one crawl pass
// synchronously and returning its stats.
func (h *AdminHandler) TriggerIngest(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Ingest.CrawlAllFeeds(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}
