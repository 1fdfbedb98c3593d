package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/pkg/search"
	"sentinelpi/internal/repository"
)

type ItemRepo struct{ db dbConn }

func NewItemRepo(db dbConn) repository.ItemRepository {
	return &ItemRepo{db: db}
}

const itemColumns = `id, source_id, guid, content_hash, title, url, author, content, summary,
	published_at, collected_at, image_url, media_urls, keywords, highlighted, excluded, tags,
	score, score_detail, duplicate_of, read, starred, archived`

func scanItem(scan func(dest ...any) error) (*entity.Item, error) {
	var it entity.Item
	var mediaURLsJSON, keywordsJSON, tagsJSON, scoreDetailJSON string
	var publishedAt sql.NullTime
	var duplicateOf sql.NullString

	if err := scan(&it.ID, &it.SourceID, &it.GUID, &it.ContentHash, &it.Title, &it.URL,
		&it.Author, &it.Content, &it.Summary, &publishedAt, &it.CollectedAt, &it.ImageURL,
		&mediaURLsJSON, &keywordsJSON, &it.Highlighted, &it.Excluded, &tagsJSON, &it.Score, &scoreDetailJSON,
		&duplicateOf, &it.Read, &it.Starred, &it.Archived); err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		it.PublishedAt = publishedAt.Time
	}
	if duplicateOf.Valid {
		it.DuplicateOf = &duplicateOf.String
	}
	if mediaURLsJSON != "" {
		if err := json.Unmarshal([]byte(mediaURLsJSON), &it.MediaURLs); err != nil {
			return nil, fmt.Errorf("scanItem: unmarshal media_urls: %w", err)
		}
	}
	if keywordsJSON != "" {
		if err := json.Unmarshal([]byte(keywordsJSON), &it.Keywords); err != nil {
			return nil, fmt.Errorf("scanItem: unmarshal keywords: %w", err)
		}
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &it.Tags); err != nil {
			return nil, fmt.Errorf("scanItem: unmarshal tags: %w", err)
		}
	}
	if scoreDetailJSON != "" {
		if err := json.Unmarshal([]byte(scoreDetailJSON), &it.ScoreDetail); err != nil {
			return nil, fmt.Errorf("scanItem: unmarshal score_detail: %w", err)
		}
	}
	return &it, nil
}

func (repo *ItemRepo) List(ctx context.Context) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY published_at DESC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.Item, 0, 64)
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (repo *ItemRepo) ListWithSource(ctx context.Context) ([]repository.ItemWithSource, error) {
	return repo.listWithSourcePage(ctx, -1, 0)
}

func (repo *ItemRepo) ListWithSourcePaginated(ctx context.Context, offset, limit int) ([]repository.ItemWithSource, error) {
	return repo.listWithSourcePage(ctx, limit, offset)
}

func (repo *ItemRepo) listWithSourcePage(ctx context.Context, limit, offset int) ([]repository.ItemWithSource, error) {
	cols := strings.ReplaceAll(itemColumns, ", ", ", i.")
	query := `SELECT i.` + cols + `, s.name FROM items i JOIN sources s ON s.id = i.source_id ORDER BY i.published_at DESC`
	args := []any{}
	if limit >= 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listWithSourcePage: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]repository.ItemWithSource, 0, 64)
	for rows.Next() {
		var sourceName string
		item, err := scanItem(func(dest ...any) error {
			return rows.Scan(append(dest, &sourceName)...)
		})
		if err != nil {
			return nil, fmt.Errorf("listWithSourcePage: Scan: %w", err)
		}
		results = append(results, repository.ItemWithSource{Item: item, SourceName: sourceName})
	}
	return results, rows.Err()
}

func (repo *ItemRepo) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	return count, err
}

func (repo *ItemRepo) Get(ctx context.Context, id string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ? LIMIT 1`
	row := repo.db.QueryRowContext(ctx, query, id)
	item, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return item, nil
}

func (repo *ItemRepo) GetWithSource(ctx context.Context, id string) (*entity.Item, string, error) {
	cols := strings.ReplaceAll(itemColumns, ", ", ", i.")
	query := `SELECT i.` + cols + `, s.name FROM items i JOIN sources s ON s.id = i.source_id WHERE i.id = ? LIMIT 1`
	var sourceName string
	item, err := scanItem(func(dest ...any) error {
		return repo.db.QueryRowContext(ctx, query, id).Scan(append(dest, &sourceName)...)
	})
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("GetWithSource: %w", err)
	}
	return item, sourceName, nil
}

func (repo *ItemRepo) GetByContentHash(ctx context.Context, hash string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE content_hash = ? LIMIT 1`
	item, err := scanItem(repo.db.QueryRowContext(ctx, query, hash).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByContentHash: %w", err)
	}
	return item, nil
}

func (repo *ItemRepo) GetBySourceAndGUID(ctx context.Context, sourceID, guid string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE source_id = ? AND guid = ? LIMIT 1`
	item, err := scanItem(repo.db.QueryRowContext(ctx, query, sourceID, guid).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetBySourceAndGUID: %w", err)
	}
	return item, nil
}

func (repo *ItemRepo) Search(ctx context.Context, keyword string) ([]*entity.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, search.DefaultSearchTimeout)
	defer cancel()

	query := `SELECT ` + itemColumns + ` FROM items WHERE title LIKE ? OR content LIKE ? ORDER BY published_at DESC`
	param := "%" + keyword + "%"
	rows, err := repo.db.QueryContext(ctx, query, param, param)
	if err != nil {
		return nil, fmt.Errorf("Search: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.Item, 0, 32)
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("Search: Scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SearchWithFilters applies multi-keyword AND logic (each keyword matched
// against title OR content) plus the optional structured filters.
func (repo *ItemRepo) SearchWithFilters(ctx context.Context, keywords []string, filters repository.ItemSearchFilters) ([]*entity.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, search.DefaultSearchTimeout)
	defer cancel()

	var conditions []string
	var args []any

	for _, kw := range keywords {
		pattern := "%" + kw + "%"
		conditions = append(conditions, "(title LIKE ? OR content LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if filters.SourceID != nil {
		conditions = append(conditions, "source_id = ?")
		args = append(args, *filters.SourceID)
	}
	if filters.From != nil {
		conditions = append(conditions, "published_at >= ?")
		args = append(args, *filters.From)
	}
	if filters.To != nil {
		conditions = append(conditions, "published_at <= ?")
		args = append(args, *filters.To)
	}
	if filters.MinScore != nil {
		conditions = append(conditions, "score >= ?")
		args = append(args, *filters.MinScore)
	}
	if filters.Starred != nil {
		conditions = append(conditions, "starred = ?")
		args = append(args, *filters.Starred)
	}
	if filters.Archived != nil {
		conditions = append(conditions, "archived = ?")
		args = append(args, *filters.Archived)
	}
	if filters.ExcludeDup {
		conditions = append(conditions, "duplicate_of IS NULL")
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY published_at DESC`

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchWithFilters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.Item, 0, 32)
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("SearchWithFilters: Scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (repo *ItemRepo) Create(ctx context.Context, it *entity.Item) error {
	mediaURLs, err := json.Marshal(it.MediaURLs)
	if err != nil {
		return fmt.Errorf("Create: marshal media_urls: %w", err)
	}
	keywords, err := json.Marshal(it.Keywords)
	if err != nil {
		return fmt.Errorf("Create: marshal keywords: %w", err)
	}
	tags, err := json.Marshal(it.Tags)
	if err != nil {
		return fmt.Errorf("Create: marshal tags: %w", err)
	}
	scoreDetail, err := json.Marshal(it.ScoreDetail)
	if err != nil {
		return fmt.Errorf("Create: marshal score_detail: %w", err)
	}

	const query = `
INSERT INTO items (id, source_id, guid, content_hash, title, url, author, content, summary,
	published_at, collected_at, image_url, media_urls, keywords, highlighted, excluded, tags,
	score, score_detail, duplicate_of, read, starred, archived)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = repo.db.ExecContext(ctx, query,
		it.ID, it.SourceID, it.GUID, it.ContentHash, it.Title, it.URL, it.Author, it.Content,
		it.Summary, it.PublishedAt, it.CollectedAt, it.ImageURL, string(mediaURLs), string(keywords), it.Highlighted,
		it.Excluded, string(tags), it.Score, string(scoreDetail), it.DuplicateOf, it.Read, it.Starred, it.Archived)
	if err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	return nil
}

func (repo *ItemRepo) Update(ctx context.Context, it *entity.Item) error {
	mediaURLs, err := json.Marshal(it.MediaURLs)
	if err != nil {
		return fmt.Errorf("Update: marshal media_urls: %w", err)
	}
	keywords, err := json.Marshal(it.Keywords)
	if err != nil {
		return fmt.Errorf("Update: marshal keywords: %w", err)
	}
	tags, err := json.Marshal(it.Tags)
	if err != nil {
		return fmt.Errorf("Update: marshal tags: %w", err)
	}
	scoreDetail, err := json.Marshal(it.ScoreDetail)
	if err != nil {
		return fmt.Errorf("Update: marshal score_detail: %w", err)
	}

	const query = `
UPDATE items SET
	title = ?, url = ?, author = ?, content = ?, summary = ?, published_at = ?,
	image_url = ?, media_urls = ?, keywords = ?, highlighted = ?, excluded = ?, tags = ?,
	score = ?, score_detail = ?, duplicate_of = ?, read = ?, starred = ?, archived = ?
WHERE id = ?`
	res, err := repo.db.ExecContext(ctx, query,
		it.Title, it.URL, it.Author, it.Content, it.Summary, it.PublishedAt, it.ImageURL,
		string(mediaURLs), string(keywords), it.Highlighted, it.Excluded, string(tags), it.Score, string(scoreDetail),
		it.DuplicateOf, it.Read, it.Starred, it.Archived, it.ID)
	if err != nil {
		return fmt.Errorf("Update: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Update: no rows affected")
	}
	return nil
}

func (repo *ItemRepo) Delete(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("Delete: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}

func (repo *ItemRepo) ExistsByContentHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := repo.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE content_hash = ?)`, hash).Scan(&exists)
	return exists, err
}

// ExistsByContentHashBatch resolves existence for many hashes in one round
// trip, avoiding an N+1 query pattern during a collection cycle.
func (repo *ItemRepo) ExistsByContentHashBatch(ctx context.Context, hashes []string) (map[string]bool, error) {
	result := make(map[string]bool, len(hashes))
	if len(hashes) == 0 {
		return result, nil
	}
	for _, h := range hashes {
		result[h] = false
	}

	placeholders := make([]string, len(hashes))
	args := make([]any, len(hashes))
	for i, h := range hashes {
		placeholders[i] = "?"
		args[i] = h
	}
	query := `SELECT content_hash FROM items WHERE content_hash IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ExistsByContentHashBatch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("ExistsByContentHashBatch: Scan: %w", err)
		}
		result[hash] = true
	}
	return result, rows.Err()
}
