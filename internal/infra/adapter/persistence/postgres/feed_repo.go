// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/repository"
)

type FeedRepo struct{ db *sql.DB }

func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

func scanFeed(row interface{ Scan(...interface{}) error }) (*entity.Feed, error) {
	var f entity.Feed
	var scraperConfigJSON []byte
	if err := row.Scan(
		&f.ID, &f.Name, &f.Category, &f.OriginURL, &f.StateCode, &f.DefaultCounty,
		&f.RegionScope, &f.FetchMode, &f.ScraperID, &f.Enabled, &f.ETag,
		&f.LastModified, &f.LastCheckedAt, &scraperConfigJSON,
	); err != nil {
		return nil, err
	}
	if len(scraperConfigJSON) > 0 {
		var cfg entity.ScraperConfig
		if err := json.Unmarshal(scraperConfigJSON, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal scraper_config: %w", err)
		}
		f.ScraperConfig = &cfg
	}
	return &f, nil
}

const feedColumns = `id, name, category, origin_url, state_code, default_county,
	region_scope, fetch_mode, scraper_id, enabled, etag, last_modified,
	last_checked_at, scraper_config`

func (repo *FeedRepo) Get(ctx context.Context, id int64) (*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE id = $1 LIMIT 1`
	row := repo.db.QueryRowContext(ctx, query, id)
	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return feed, nil
}

func (repo *FeedRepo) List(ctx context.Context) ([]*entity.Feed, error) {
	return repo.query(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY id ASC`)
}

func (repo *FeedRepo) ListEnabled(ctx context.Context) ([]*entity.Feed, error) {
	return repo.query(ctx, `SELECT `+feedColumns+` FROM feeds WHERE enabled = TRUE ORDER BY id ASC`)
}

func (repo *FeedRepo) Search(ctx context.Context, kw string) ([]*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE name ILIKE $1 OR origin_url ILIKE $1 ORDER BY id ASC`
	return repo.query(ctx, query, "%"+kw+"%")
}

func (repo *FeedRepo) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Feed, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 50)
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("query: Scan: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func (repo *FeedRepo) Create(ctx context.Context, feed *entity.Feed) error {
	if feed.FetchMode == "" {
		feed.FetchMode = entity.FetchModeRSS
	}
	scraperConfigJSON, err := marshalScraperConfig(feed.ScraperConfig)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO feeds (name, category, origin_url, state_code, default_county,
	region_scope, fetch_mode, scraper_id, enabled, etag, last_modified,
	last_checked_at, scraper_config)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING id`
	return repo.db.QueryRowContext(ctx, query,
		feed.Name, feed.Category, feed.OriginURL, feed.StateCode, feed.DefaultCounty,
		feed.RegionScope, feed.FetchMode, feed.ScraperID, feed.Enabled, feed.ETag,
		feed.LastModified, feed.LastCheckedAt, scraperConfigJSON,
	).Scan(&feed.ID)
}

func (repo *FeedRepo) Update(ctx context.Context, feed *entity.Feed) error {
	scraperConfigJSON, err := marshalScraperConfig(feed.ScraperConfig)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	const query = `
UPDATE feeds SET
	name = $1, category = $2, origin_url = $3, state_code = $4, default_county = $5,
	region_scope = $6, fetch_mode = $7, scraper_id = $8, enabled = $9, etag = $10,
	last_modified = $11, last_checked_at = $12, scraper_config = $13
WHERE id = $14`
	res, err := repo.db.ExecContext(ctx, query,
		feed.Name, feed.Category, feed.OriginURL, feed.StateCode, feed.DefaultCounty,
		feed.RegionScope, feed.FetchMode, feed.ScraperID, feed.Enabled, feed.ETag,
		feed.LastModified, feed.LastCheckedAt, scraperConfigJSON, feed.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: no rows affected")
	}
	return nil
}

func (repo *FeedRepo) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}

func (repo *FeedRepo) TouchChecked(ctx context.Context, id int64, t time.Time, etag, lastModified string) error {
	const query = `UPDATE feeds SET last_checked_at = $1, etag = $2, last_modified = $3 WHERE id = $4`
	_, err := repo.db.ExecContext(ctx, query, t, etag, lastModified, id)
	return err
}

func marshalScraperConfig(cfg *entity.ScraperConfig) ([]byte, error) {
	if cfg == nil {
		return nil, nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal scraper_config: %w", err)
	}
	return b, nil
}
