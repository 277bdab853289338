package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kynewsroom/internal/domain/entity"
)

func TestItemMediaRepo_Get_Found(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery("SELECT item_id, source_url, object_key, content_type, byte_count, updated_at FROM item_media").
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "source_url", "object_key", "content_type", "byte_count", "updated_at"}).
			AddRow("item-1", "https://x.com/img.jpg", "media/item-1.jpg", "image/jpeg", int64(2048), now))

	repo := NewItemMediaRepo(db)
	m, err := repo.Get(context.Background(), "item-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "media/item-1.jpg", m.ObjectKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemMediaRepo_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT INTO item_media").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewItemMediaRepo(db)
	err = repo.Upsert(context.Background(), &entity.ItemMedia{
		ItemID:      "item-1",
		SourceURL:   "https://x.com/img.jpg",
		ObjectKey:   "media/item-1.jpg",
		ContentType: "image/jpeg",
		ByteCount:   2048,
		UpdatedAt:   time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
