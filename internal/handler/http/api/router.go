package api

import (
	"net/http"

	"kynewsroom/internal/common/pagination"
	"kynewsroom/internal/infra/cache"
	"kynewsroom/internal/repository"
	"kynewsroom/internal/usecase/ingest"
	"kynewsroom/internal/usecase/read"
)

// RouterConfig bundles the collaborators NewRouter wires into the public
// read path and the admin-guarded ingest/feeds write paths.
type RouterConfig struct {
	Read            *read.Service
	Feeds           repository.FeedRepository
	Media           MediaReader
	Ingest          *ingest.Service
	Cache           *cache.Store
	Pagination      pagination.Config
	CacheTTLSeconds int
	AdminAuth       func(http.Handler) http.Handler
}

// NewRouter builds the mux serving every C8 read-path route plus the admin
// ingest trigger and feeds CRUD, using Go's method+wildcard ServeMux
// patterns rather than the teacher's hand-rolled path-prefix dispatch.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	items := &Handler{Read: cfg.Read, Cache: cfg.Cache, PaginationConf: cfg.Pagination, CacheTTLSeconds: cfg.CacheTTLSeconds}
	feeds := &FeedsHandler{Feeds: cfg.Feeds}
	mediaHandler := &MediaHandler{Media: cfg.Media}
	proxy := NewOpenProxyHandler()
	admin := &AdminHandler{Ingest: cfg.Ingest}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items", items.ListItems)
	mux.HandleFunc("GET /api/items/{id}", items.GetItem)
	mux.HandleFunc("GET /api/search", items.SearchItems)
	mux.HandleFunc("GET /api/counties", items.ListCounties)
	mux.HandleFunc("GET /api/feeds", feeds.ListFeeds)
	mux.HandleFunc("GET /api/media/{key...}", mediaHandler.GetMedia)
	mux.HandleFunc("HEAD /api/media/{key...}", mediaHandler.GetMedia)
	mux.HandleFunc("GET /api/open-proxy", proxy.Proxy)

	guard := cfg.AdminAuth
	if guard == nil {
		guard = func(h http.Handler) http.Handler { return h }
	}

	mux.Handle("POST /api/admin/ingest", guard(http.HandlerFunc(admin.TriggerIngest)))
	mux.Handle("POST /api/admin/feeds", guard(http.HandlerFunc(feeds.CreateFeed)))
	mux.Handle("PUT /api/admin/feeds/{id}", guard(http.HandlerFunc(feeds.UpdateFeed)))
	mux.Handle("DELETE /api/admin/feeds/{id}", guard(http.HandlerFunc(feeds.DeleteFeed)))

	return mux
}
