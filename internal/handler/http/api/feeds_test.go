package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/handler/http/api"
)

type fakeFeedRepo struct {
	feeds     []*entity.Feed
	created   *entity.Feed
	updated   *entity.Feed
	deletedID int64
	createErr error
	updateErr error
	deleteErr error
}

func (f *fakeFeedRepo) Get(_ context.Context, id int64) (*entity.Feed, error) {
	for _, feed := range f.feeds {
		if feed.ID == id {
			return feed, nil
		}
	}
	return nil, nil
}
func (f *fakeFeedRepo) List(_ context.Context) ([]*entity.Feed, error) { return f.feeds, nil }
func (f *fakeFeedRepo) ListEnabled(_ context.Context) ([]*entity.Feed, error) {
	return f.feeds, nil
}
func (f *fakeFeedRepo) Search(_ context.Context, _ string) ([]*entity.Feed, error) { return nil, nil }
func (f *fakeFeedRepo) Create(_ context.Context, feed *entity.Feed) error {
	if f.createErr != nil {
		return f.createErr
	}
	feed.ID = 99
	f.created = feed
	return nil
}
func (f *fakeFeedRepo) Update(_ context.Context, feed *entity.Feed) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = feed
	return nil
}
func (f *fakeFeedRepo) Delete(_ context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedID = id
	return nil
}
func (f *fakeFeedRepo) TouchChecked(_ context.Context, _ int64, _ time.Time, _, _ string) error {
	return nil
}

func TestListFeeds_ReturnsAll(t *testing.T) {
	h := &api.FeedsHandler{Feeds: &fakeFeedRepo{feeds: []*entity.Feed{
		{ID: 1, Name: "Lexington Herald-Leader", RegionScope: "ky", StateCode: "KY"},
		{ID: 2, Name: "National Wire", RegionScope: "national"},
	}}}

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	rec := httptest.NewRecorder()
	h.ListFeeds(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	feeds, ok := body["feeds"].([]any)
	if !ok || len(feeds) != 2 {
		t.Fatalf("got feeds %v, want two entries", body["feeds"])
	}
}

func TestListFeeds_FilteredByScope(t *testing.T) {
	h := &api.FeedsHandler{Feeds: &fakeFeedRepo{feeds: []*entity.Feed{
		{ID: 1, Name: "Lexington Herald-Leader", RegionScope: "ky"},
		{ID: 2, Name: "National Wire", RegionScope: "national"},
	}}}

	req := httptest.NewRequest(http.MethodGet, "/api/feeds?scope=ky", nil)
	rec := httptest.NewRecorder()
	h.ListFeeds(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	feeds, ok := body["feeds"].([]any)
	if !ok || len(feeds) != 1 {
		t.Fatalf("got feeds %v, want one ky-scoped entry", body["feeds"])
	}
}

func TestCreateFeed_Success(t *testing.T) {
	repo := &fakeFeedRepo{}
	h := &api.FeedsHandler{Feeds: repo}

	body := `{"name":"Pike County Gazette","origin_url":"https://example.com/feed.xml","state_code":"KY","fetch_mode":"rss"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/feeds", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateFeed(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if repo.created == nil || repo.created.Name != "Pike County Gazette" {
		t.Fatalf("expected feed to be created, got %+v", repo.created)
	}
}

func TestCreateFeed_InvalidBody(t *testing.T) {
	h := &api.FeedsHandler{Feeds: &fakeFeedRepo{}}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/feeds", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.CreateFeed(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateFeed_RejectsScrapeModeWithoutConfig(t *testing.T) {
	h := &api.FeedsHandler{Feeds: &fakeFeedRepo{}}

	body := `{"name":"X","origin_url":"https://example.com","fetch_mode":"scrape"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/feeds", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateFeed(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUpdateFeed_Success(t *testing.T) {
	repo := &fakeFeedRepo{}
	h := &api.FeedsHandler{Feeds: repo}

	body := `{"name":"Renamed","origin_url":"https://example.com/feed.xml","fetch_mode":"rss"}`
	req := httptest.NewRequest(http.MethodPut, "/api/admin/feeds/7", strings.NewReader(body))
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	h.UpdateFeed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if repo.updated == nil || repo.updated.ID != 7 || repo.updated.Name != "Renamed" {
		t.Fatalf("expected feed 7 to be updated, got %+v", repo.updated)
	}
}

func TestUpdateFeed_InvalidID(t *testing.T) {
	h := &api.FeedsHandler{Feeds: &fakeFeedRepo{}}

	req := httptest.NewRequest(http.MethodPut, "/api/admin/feeds/not-a-number", strings.NewReader(`{}`))
	req.SetPathValue("id", "not-a-number")
	rec := httptest.NewRecorder()
	h.UpdateFeed(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDeleteFeed_Success(t *testing.T) {
	repo := &fakeFeedRepo{}
	h := &api.FeedsHandler{Feeds: repo}

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/feeds/3", nil)
	req.SetPathValue("id", "3")
	rec := httptest.NewRecorder()
	h.DeleteFeed(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusNoContent)
	}
	if repo.deletedID != 3 {
		t.Fatalf("expected feed 3 to be deleted, got %d", repo.deletedID)
	}
}

func TestDeleteFeed_RepoError(t *testing.T) {
	repo := &fakeFeedRepo{deleteErr: errors.New("db unavailable")}
	h := &api.FeedsHandler{Feeds: repo}

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/feeds/3", nil)
	req.SetPathValue("id", "3")
	rec := httptest.NewRecorder()
	h.DeleteFeed(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
