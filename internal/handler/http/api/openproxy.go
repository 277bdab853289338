package api

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"kynewsroom/internal/handler/http/respond"
	"kynewsroom/internal/infra/fetcher"
)

var errUpstreamStatus = errors.New("upstream returned a non-2xx status")

const (
	openProxyTimeout   = 15 * time.Second
	openProxyMaxBytes  = 4 << 20 // 4 MiB
)

// strippedSelectors removes elements that either execute code or commonly
// carry tracking/embedding payloads a proxied page shouldn't forward.
var strippedSelectors = []string{"script", "style", "iframe", "noscript", "object", "embed"}

// OpenProxyHandler fetches and sanitizes an arbitrary HTTPS page so the
// front-end can render linked-article previews without a browser-side CORS
// or mixed-content failure, guarded against SSRF the same way media
// mirroring and article enrichment are.
type OpenProxyHandler struct {
	Client *http.Client
}

// NewOpenProxyHandler builds a handler with a bounded-timeout client; TLS
// verification stays on, matching the rest of the fetch pipeline's
// defaults.
func NewOpenProxyHandler() *OpenProxyHandler {
	return &OpenProxyHandler{
		Client: &http.Client{
			Timeout:   openProxyTimeout,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}},
		},
	}
}

// Proxy handles GET /api/open-proxy?url=.
func (h *OpenProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		respond.Error(w, http.StatusBadRequest, errInvalidQuery)
		return
	}
	if err := fetcher.ValidateSourceURL(target, true); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), openProxyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	req.Header.Set("User-Agent", "KYNewsroomBot/1.0")

	resp, err := h.Client.Do(req)
	if err != nil {
		respond.SafeError(w, http.StatusBadGateway, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respond.Error(w, http.StatusBadGateway, errUpstreamStatus)
		return
	}

	limited := io.LimitReader(resp.Body, openProxyMaxBytes+1)
	doc, err := goquery.NewDocumentFromReader(limited)
	if err != nil {
		respond.SafeError(w, http.StatusBadGateway, err)
		return
	}

	sanitize(doc)

	html, err := doc.Html()
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Frame-Options", "SAMEORIGIN")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(html)); err != nil {
		slog.Warn("open-proxy: write response failed", slog.Any("error", err))
	}
}

// sanitize strips scriptable/embeddable elements and inline event handler
// attributes from the parsed document in place.
func sanitize(doc *goquery.Document) {
	doc.Find(joinSelectors(strippedSelectors)).Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if node := s.Get(0); node != nil {
			for _, attr := range node.Attr {
				if len(attr.Key) > 2 && attr.Key[:2] == "on" {
					s.RemoveAttr(attr.Key)
				}
			}
		}
	})
}

func joinSelectors(selectors []string) string {
	out := ""
	for i, s := range selectors {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
