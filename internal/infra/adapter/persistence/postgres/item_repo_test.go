package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/repository"
)

var itemCols = []string{"id", "title", "canonical_url", "author", "region_scope", "published_at",
	"summary", "content_excerpt", "image_url", "fetched_at", "content_hash",
	"article_checked_at", "article_fetch_status"}

func TestItemRepo_Upsert_Inserted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("INSERT INTO items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow("item-1", true))

	repo := NewItemRepo(db)
	item := &entity.Item{
		ID:           "item-1",
		Title:        "Herald-Leader: new bridge opens",
		CanonicalURL: "https://herald-leader.com/bridge",
		PublishedAt:  time.Now(),
	}
	id, inserted, err := repo.Upsert(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, "item-1", id)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_Upsert_RequiresID(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewItemRepo(db)
	_, _, err = repo.Upsert(context.Background(), &entity.Item{CanonicalURL: "https://x.com/y"})
	assert.Error(t, err)
}

func TestItemRepo_ListKeyset_WithCursorAndCounty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM items i WHERE").
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow("item-2", "Fayette County news", "https://x.com/a", "", "central-ky", now,
				"summary text here", "", "", now, "hash", now, "ok"))
	mock.ExpectQuery("SELECT county FROM item_locations").
		WithArgs("item-2").
		WillReturnRows(sqlmock.NewRows([]string{"county"}).AddRow("Fayette"))

	repo := NewItemRepo(db)
	cursor := &repository.Cursor{PublishedAt: now, ID: "item-9"}
	results, err := repo.ListKeyset(context.Background(), repository.ItemListFilters{County: "Fayette"}, cursor, 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"Fayette"}, results[0].Counties)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_Search_EmptyKeywords(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewItemRepo(db)
	results, err := repo.Search(context.Background(), nil, repository.ItemListFilters{}, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestItemRepo_ExistsByCanonicalURLBatch_Empty(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewItemRepo(db)
	result, err := repo.ExistsByCanonicalURLBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestItemRepo_ExistsByCanonicalURLBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT canonical_url FROM items WHERE canonical_url = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"canonical_url"}).AddRow("https://x.com/a"))

	repo := NewItemRepo(db)
	result, err := repo.ExistsByCanonicalURLBatch(context.Background(), []string{"https://x.com/a", "https://x.com/b"})
	require.NoError(t, err)
	assert.True(t, result["https://x.com/a"])
	assert.False(t, result["https://x.com/b"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepo_AttachToFeed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT INTO feed_items").
		WithArgs(int64(1), "item-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewItemRepo(db)
	err = repo.AttachToFeed(context.Background(), 1, "item-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
