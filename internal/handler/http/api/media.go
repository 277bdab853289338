package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/handler/http/respond"
)

var errMediaUnavailable = errors.New("media store unavailable")

// MediaReader is the subset of media.Store the media handler depends on,
// narrowed to an interface so the handler can be tested without a real
// S3 client.
type MediaReader interface {
	CurrentMedia(ctx context.Context, objectKey string) (*entity.ItemMedia, error)
	GetObject(ctx context.Context, objectKey string) (io.ReadCloser, string, error)
	PublicURL(objectKey string) string
}

// MediaHandler streams a mirrored hero image from object storage by its
// "news/<item_id>.<ext>" key, redirecting a stale key (one that no longer
// matches the item's current ObjectKey) to the live one.
type MediaHandler struct {
	Media MediaReader
}

// GetMedia handles GET/HEAD /api/media/{key...}.
func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		respond.Error(w, http.StatusBadRequest, errInvalidQuery)
		return
	}
	if h.Media == nil {
		respond.Error(w, http.StatusServiceUnavailable, errMediaUnavailable)
		return
	}

	current, err := h.Media.CurrentMedia(r.Context(), key)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	if current == nil {
		respond.Error(w, http.StatusNotFound, errNotFound)
		return
	}
	if current.ObjectKey != key {
		http.Redirect(w, r, h.Media.PublicURL(current.ObjectKey), http.StatusFound)
		return
	}

	body, contentType, err := h.Media.GetObject(r.Context(), key)
	if err != nil {
		respond.Error(w, http.StatusNotFound, errNotFound)
		return
	}
	defer func() { _ = body.Close() }()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
