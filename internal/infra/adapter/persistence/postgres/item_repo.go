package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/pkg/search"
	"kynewsroom/internal/repository"

	"github.com/lib/pq"
)

type ItemRepo struct{ db *sql.DB }

func NewItemRepo(db *sql.DB) repository.ItemRepository {
	return &ItemRepo{db: db}
}

const itemColumns = `id, title, canonical_url, author, region_scope, published_at,
	summary, content_excerpt, image_url, fetched_at, content_hash,
	article_checked_at, article_fetch_status`

func scanItem(row interface{ Scan(...interface{}) error }) (*entity.Item, error) {
	var it entity.Item
	if err := row.Scan(
		&it.ID, &it.Title, &it.CanonicalURL, &it.Author, &it.RegionScope, &it.PublishedAt,
		&it.Summary, &it.ContentExcerpt, &it.ImageURL, &it.FetchedAt, &it.ContentHash,
		&it.ArticleCheckedAt, &it.ArticleFetchStatus,
	); err != nil {
		return nil, err
	}
	return &it, nil
}

func (repo *ItemRepo) Get(ctx context.Context, id string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 LIMIT 1`
	item, err := scanItem(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return item, nil
}

func (repo *ItemRepo) GetByCanonicalURL(ctx context.Context, url string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE canonical_url = $1 LIMIT 1`
	item, err := scanItem(repo.db.QueryRowContext(ctx, query, url))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByCanonicalURL: %w", err)
	}
	return item, nil
}

// sortExpr is the keyset sort key: items with no published_at (still
// awaiting enrichment) sort by fetched_at instead, so a cursor stays
// stable regardless of which column supplied the timestamp.
const sortExpr = "COALESCE(i.published_at, i.fetched_at)"

// commonFilters appends the scope/feed/category/state/county/window
// conditions shared by ListKeyset and Search, starting from paramIndex.
func commonFilters(filters repository.ItemListFilters, paramIndex int) ([]string, []interface{}, int) {
	var conditions []string
	var args []interface{}

	switch filters.Scope {
	case "ky", "national":
		conditions = append(conditions, fmt.Sprintf("i.region_scope = $%d", paramIndex))
		args = append(args, filters.Scope)
		paramIndex++
	}
	if filters.FeedID != nil {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM feed_items fi WHERE fi.item_id = i.id AND fi.feed_id = $%d)", paramIndex))
		args = append(args, *filters.FeedID)
		paramIndex++
	}
	if filters.Category != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM feed_items fi JOIN feeds f ON f.id = fi.feed_id WHERE fi.item_id = i.id AND f.category = $%d)", paramIndex))
		args = append(args, filters.Category)
		paramIndex++
	}
	if filters.State != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM item_locations l WHERE l.item_id = i.id AND l.state_code = $%d)", paramIndex))
		args = append(args, filters.State)
		paramIndex++
	}
	if counties := filters.AllCounties(); len(counties) > 0 {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM item_locations l WHERE l.item_id = i.id AND l.county = ANY($%d))", paramIndex))
		args = append(args, pq.Array(counties))
		paramIndex++
	}
	if filters.Since != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", sortExpr, paramIndex))
		args = append(args, *filters.Since)
		paramIndex++
	}
	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("i.published_at >= $%d", paramIndex))
		args = append(args, *filters.From)
		paramIndex++
	}
	if filters.To != nil {
		conditions = append(conditions, fmt.Sprintf("i.published_at <= $%d", paramIndex))
		args = append(args, *filters.To)
		paramIndex++
	}
	return conditions, args, paramIndex
}

// ListKeyset returns items strictly past cursor in the sort order, newest
// first, excluding drafts (published_at year beginning "9999").
func (repo *ItemRepo) ListKeyset(ctx context.Context, filters repository.ItemListFilters, cursor *repository.Cursor, limit int) ([]repository.ItemWithCounties, error) {
	conditions := []string{"i.published_at < '9999-01-01'"}
	extra, args, paramIndex := commonFilters(filters, 1)
	conditions = append(conditions, extra...)

	if cursor != nil {
		conditions = append(conditions, fmt.Sprintf("(%s, i.id) < ($%d, $%d)", sortExpr, paramIndex, paramIndex+1))
		args = append(args, cursor.PublishedAt, cursor.ID)
		paramIndex += 2
	}

	query := `SELECT ` + qualify("i", itemColumns) + ` FROM items i`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s DESC, i.id DESC LIMIT $%d", sortExpr, paramIndex)
	args = append(args, limit)

	return repo.queryWithCounties(ctx, query, args...)
}

// Search matches any of keywords as a LIKE against title, summary or
// content_excerpt (OR across tokens and fields alike), widened to include
// items merely tagged with a county whose name appears in the query text
// even when the free-text match itself is weak.
func (repo *ItemRepo) Search(ctx context.Context, keywords []string, filters repository.ItemListFilters, cursor *repository.Cursor, limit int) ([]repository.ItemWithCounties, error) {
	if len(keywords) == 0 {
		return []repository.ItemWithCounties{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, search.DefaultSearchTimeout)
	defer cancel()

	conditions := []string{"i.published_at < '9999-01-01'"}
	extra, args, paramIndex := commonFilters(filters, 1)
	conditions = append(conditions, extra...)

	var matchClauses []string
	for _, kw := range keywords {
		escaped := search.EscapeILIKE(kw)
		matchClauses = append(matchClauses, fmt.Sprintf(
			"(i.title ILIKE $%d OR i.summary ILIKE $%d OR i.content_excerpt ILIKE $%d)", paramIndex, paramIndex, paramIndex))
		args = append(args, escaped)
		paramIndex++
	}
	for _, county := range filters.MatchingCounties {
		matchClauses = append(matchClauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM item_locations l WHERE l.item_id = i.id AND l.county = $%d)", paramIndex))
		args = append(args, county)
		paramIndex++
	}
	conditions = append(conditions, "("+strings.Join(matchClauses, " OR ")+")")

	direction := "DESC"
	cursorOp := "<"
	if filters.Ascending {
		direction = "ASC"
		cursorOp = ">"
	}
	if cursor != nil {
		conditions = append(conditions, fmt.Sprintf("(%s, i.id) %s ($%d, $%d)", sortExpr, cursorOp, paramIndex, paramIndex+1))
		args = append(args, cursor.PublishedAt, cursor.ID)
		paramIndex += 2
	}

	query := `SELECT ` + qualify("i", itemColumns) + ` FROM items i WHERE ` +
		strings.Join(conditions, " AND ") +
		fmt.Sprintf(" ORDER BY %s %s, i.id %s LIMIT $%d", sortExpr, direction, direction, paramIndex)
	args = append(args, limit)

	return repo.queryWithCounties(ctx, query, args...)
}

func (repo *ItemRepo) queryWithCounties(ctx context.Context, query string, args ...interface{}) ([]repository.ItemWithCounties, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("queryWithCounties: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]repository.ItemWithCounties, 0, 50)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("queryWithCounties: Scan: %w", err)
		}
		result = append(result, repository.ItemWithCounties{Item: item})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		counties, err := repo.listCounties(ctx, result[i].Item.ID)
		if err != nil {
			return nil, fmt.Errorf("queryWithCounties: listCounties: %w", err)
		}
		result[i].Counties = counties
	}
	return result, nil
}

func (repo *ItemRepo) listCounties(ctx context.Context, itemID string) ([]string, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT county FROM item_locations WHERE item_id = $1 ORDER BY county`, itemID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var counties []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		counties = append(counties, c)
	}
	return counties, rows.Err()
}

// Upsert inserts the item, or on a canonical_url collision refreshes the
// mutable fields (title/summary/excerpt/image) while leaving the original
// id and fetched_at untouched.
func (repo *ItemRepo) Upsert(ctx context.Context, item *entity.Item) (string, bool, error) {
	if item.ID == "" {
		return "", false, fmt.Errorf("Upsert: item.ID is required")
	}

	const query = `
INSERT INTO items (id, title, canonical_url, author, region_scope, published_at,
	summary, content_excerpt, image_url, fetched_at, content_hash,
	article_checked_at, article_fetch_status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (canonical_url) DO UPDATE SET
	title = EXCLUDED.title,
	author = EXCLUDED.author,
	region_scope = EXCLUDED.region_scope,
	summary = CASE WHEN items.summary = '' THEN EXCLUDED.summary ELSE items.summary END,
	content_excerpt = EXCLUDED.content_excerpt,
	image_url = EXCLUDED.image_url
RETURNING id, (xmax = 0) AS inserted`

	var id string
	var inserted bool
	err := repo.db.QueryRowContext(ctx, query,
		item.ID, item.Title, item.CanonicalURL, item.Author, item.RegionScope, item.PublishedAt,
		item.Summary, item.ContentExcerpt, item.ImageURL, item.FetchedAt, item.ContentHash,
		item.ArticleCheckedAt, item.ArticleFetchStatus,
	).Scan(&id, &inserted)
	if err != nil {
		return "", false, fmt.Errorf("Upsert: %w", err)
	}
	return id, inserted, nil
}

func (repo *ItemRepo) Delete(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}

func (repo *ItemRepo) ExistsByCanonicalURLBatch(ctx context.Context, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return make(map[string]bool), nil
	}

	const query = `SELECT canonical_url FROM items WHERE canonical_url = ANY($1)`
	rows, err := repo.db.QueryContext(ctx, query, pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("ExistsByCanonicalURLBatch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("ExistsByCanonicalURLBatch: Scan: %w", err)
		}
		result[url] = true
	}
	return result, rows.Err()
}

func (repo *ItemRepo) AttachToFeed(ctx context.Context, feedID int64, itemID string) error {
	const query = `INSERT INTO feed_items (feed_id, item_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := repo.db.ExecContext(ctx, query, feedID, itemID)
	if err != nil {
		return fmt.Errorf("AttachToFeed: %w", err)
	}
	return nil
}

func (repo *ItemRepo) MarkArticleFetch(ctx context.Context, id string, status entity.ArticleFetchStatus, excerpt string, checkedAt time.Time) error {
	const query = `UPDATE items SET article_fetch_status = $1, content_excerpt = $2, article_checked_at = $3 WHERE id = $4`
	_, err := repo.db.ExecContext(ctx, query, status, excerpt, checkedAt, id)
	return err
}

func qualify(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
