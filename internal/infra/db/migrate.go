package db

import (
	"database/sql"
	_ "embed"
)

//go:embed seeds/feeds.sql
var seedFeedsSQL string

// MigrateUp applies the full schema: feeds, items, the feed_items join, item
// locations/summaries/media, the editor review queue, ingestion metrics, and
// the bounded-retention error log.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS feeds (
    id              SERIAL PRIMARY KEY,
    name            TEXT NOT NULL,
    category        TEXT NOT NULL DEFAULT '',
    origin_url      TEXT NOT NULL UNIQUE,
    state_code      VARCHAR(2) NOT NULL DEFAULT 'KY',
    default_county  TEXT NOT NULL DEFAULT '',
    region_scope    TEXT NOT NULL DEFAULT '',
    fetch_mode      VARCHAR(20) NOT NULL DEFAULT 'rss',
    scraper_id      TEXT NOT NULL DEFAULT '',
    enabled         BOOLEAN NOT NULL DEFAULT TRUE,
    etag            TEXT NOT NULL DEFAULT '',
    last_modified   TEXT NOT NULL DEFAULT '',
    last_checked_at TIMESTAMPTZ,
    scraper_config  JSONB
)`,
		`CREATE TABLE IF NOT EXISTS items (
    id                   UUID PRIMARY KEY,
    title                TEXT NOT NULL,
    canonical_url        TEXT NOT NULL UNIQUE,
    author               TEXT NOT NULL DEFAULT '',
    region_scope         TEXT NOT NULL DEFAULT '',
    published_at         TIMESTAMPTZ NOT NULL,
    summary              TEXT NOT NULL DEFAULT '',
    content_excerpt      TEXT NOT NULL DEFAULT '',
    image_url            TEXT NOT NULL DEFAULT '',
    fetched_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    content_hash         TEXT NOT NULL DEFAULT '',
    article_checked_at   TIMESTAMPTZ,
    article_fetch_status VARCHAR(20) NOT NULL DEFAULT 'pending'
)`,
		`CREATE TABLE IF NOT EXISTS feed_items (
    feed_id INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    item_id UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    PRIMARY KEY (feed_id, item_id)
)`,
		`CREATE TABLE IF NOT EXISTS item_locations (
    item_id    UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    state_code VARCHAR(2) NOT NULL,
    county     TEXT NOT NULL,
    PRIMARY KEY (item_id, state_code, county)
)`,
		`CREATE TABLE IF NOT EXISTS item_ai_summaries (
    item_id      UUID PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
    summary      TEXT NOT NULL,
    model        TEXT NOT NULL,
    source_hash  TEXT NOT NULL,
    generated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE TABLE IF NOT EXISTS item_media (
    item_id      UUID PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
    source_url   TEXT NOT NULL,
    object_key   TEXT NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    byte_count   BIGINT NOT NULL DEFAULT 0,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE TABLE IF NOT EXISTS summary_review_queue (
    id               SERIAL PRIMARY KEY,
    item_id          UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    status           VARCHAR(20) NOT NULL DEFAULT 'pending',
    reason           TEXT NOT NULL,
    reviewer         TEXT NOT NULL DEFAULT '',
    reviewed_at      TIMESTAMPTZ,
    reviewed_summary TEXT NOT NULL DEFAULT '',
    note             TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE TABLE IF NOT EXISTS fetch_runs (
    id         SERIAL PRIMARY KEY,
    started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    ended_at   TIMESTAMPTZ,
    feed_count INTEGER NOT NULL DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS feed_run_metrics (
    fetch_run_id    INTEGER NOT NULL REFERENCES fetch_runs(id) ON DELETE CASCADE,
    feed_id         INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    items_seen      INTEGER NOT NULL DEFAULT 0,
    items_inserted  INTEGER NOT NULL DEFAULT 0,
    items_duplicate INTEGER NOT NULL DEFAULT 0,
    fetch_error     TEXT NOT NULL DEFAULT '',
    duration_ms     BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (fetch_run_id, feed_id)
)`,
		`CREATE TABLE IF NOT EXISTS ingestion_metrics (
    day              DATE PRIMARY KEY,
    feeds_polled     INTEGER NOT NULL DEFAULT 0,
    items_inserted   INTEGER NOT NULL DEFAULT 0,
    summaries_made   INTEGER NOT NULL DEFAULT 0,
    summaries_failed INTEGER NOT NULL DEFAULT 0,
    media_mirrored   INTEGER NOT NULL DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS app_error_events (
    id         SERIAL PRIMARY KEY,
    kind       VARCHAR(30) NOT NULL,
    source     TEXT NOT NULL DEFAULT '',
    message    TEXT NOT NULL,
    context    TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    expires_at TIMESTAMPTZ NOT NULL
)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	indexes := []string{
		// keyset pagination reads order by (published_at, id) on items
		`CREATE INDEX IF NOT EXISTS idx_items_published_at_id ON items(published_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_items_fetch_status ON items(article_fetch_status)`,
		`CREATE INDEX IF NOT EXISTS idx_feeds_enabled ON feeds(enabled) WHERE enabled = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_feeds_fetch_mode ON feeds(fetch_mode)`,
		`CREATE INDEX IF NOT EXISTS idx_item_locations_county ON item_locations(state_code, county)`,
		`CREATE INDEX IF NOT EXISTS idx_review_queue_status ON summary_review_queue(status)`,
		`CREATE INDEX IF NOT EXISTS idx_error_events_expires_at ON app_error_events(expires_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// Full-text search acceleration, as the teacher does for articles:
	// ignore failure when pg_trgm isn't installable (no superuser, managed DB).
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`)
	searchIndexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_items_title_gin ON items USING gin(title gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_items_summary_gin ON items USING gin(summary gin_trgm_ops)`,
	}
	for _, idx := range searchIndexes {
		_, _ = db.Exec(idx)
	}

	// Idempotent constraint add, mirroring the teacher's DO $$ ... $$ guard.
	_, _ = db.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint
        WHERE conname = 'chk_feed_fetch_mode'
    ) THEN
        ALTER TABLE feeds ADD CONSTRAINT chk_feed_fetch_mode
        CHECK (fetch_mode IN ('rss', 'atom', 'scrape'));
    END IF;
END $$;
`)

	if _, err := db.Exec(seedFeedsSQL); err != nil {
		return err
	}

	return nil
}

// MigrateDown rolls back every table this migration created, in reverse
// dependency order.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS app_error_events CASCADE`,
		`DROP TABLE IF EXISTS ingestion_metrics CASCADE`,
		`DROP TABLE IF EXISTS feed_run_metrics CASCADE`,
		`DROP TABLE IF EXISTS fetch_runs CASCADE`,
		`DROP TABLE IF EXISTS summary_review_queue CASCADE`,
		`DROP TABLE IF EXISTS item_media CASCADE`,
		`DROP TABLE IF EXISTS item_ai_summaries CASCADE`,
		`DROP TABLE IF EXISTS item_locations CASCADE`,
		`DROP TABLE IF EXISTS feed_items CASCADE`,
		`DROP TABLE IF EXISTS items CASCADE`,
		`DROP TABLE IF EXISTS feeds CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
