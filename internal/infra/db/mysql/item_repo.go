package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	domain "github.com/keepstack/keepstack/internal/domain/items"
)

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, raw_content, images_json, kind, title, category, tags_json,
       analysis_json, status, last_error, is_favorite, created_at`

// Insert creates the item row
func (r *ItemRepository) Insert(ctx context.Context, it *domain.ContentItem) error {
	const q = `
INSERT INTO content_items
(id, raw_content, images_json, kind, title, category, tags_json,
 analysis_json, status, last_error, is_favorite, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?);
`
	imagesJSON, err := marshalJSON(it.Images)
	if err != nil {
		return fmt.Errorf("marshaling images: %w", err)
	}
	tagsJSON, err := marshalJSON(it.Tags)
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}

	var analysisJSON sql.NullString
	if it.Analysis != nil {
		s, err := marshalJSON(it.Analysis)
		if err != nil {
			return fmt.Errorf("marshaling analysis: %w", err)
		}
		analysisJSON = sql.NullString{String: s, Valid: true}
	}

	created := it.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		it.ID, it.RawContent, imagesJSON, it.Kind, it.Title, it.Category, tagsJSON,
		analysisJSON, it.Status, it.LastError, it.IsFavorite, created,
	)
	return err
}

// Get by ID; (nil, nil) when the row does not exist
func (r *ItemRepository) Get(ctx context.Context, id domain.ItemID) (*domain.ContentItem, error) {
	q := `SELECT ` + itemColumns + ` FROM content_items WHERE id=? LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, id)

	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

// Delete removes the row; deleting a missing id is not an error
func (r *ItemRepository) Delete(ctx context.Context, id domain.ItemID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM content_items WHERE id=?;`, id)
	return err
}

// ListPending returns items awaiting processing, oldest first. The seq
// auto-increment column breaks created_at ties in insertion order.
func (r *ItemRepository) ListPending(ctx context.Context) ([]*domain.ContentItem, error) {
	q := `SELECT ` + itemColumns + `
FROM content_items
WHERE status=? ORDER BY created_at ASC, seq ASC;`
	return r.queryItems(ctx, q, domain.StatusPending)
}

// ListQueue returns items that have not reached processed, newest first
func (r *ItemRepository) ListQueue(ctx context.Context, limit int) ([]*domain.ContentItem, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + itemColumns + `
FROM content_items
WHERE status <> ? ORDER BY created_at DESC, seq DESC LIMIT ?;`
	return r.queryItems(ctx, q, domain.StatusProcessed, limit)
}

// Latest items by creation time
func (r *ItemRepository) Latest(ctx context.Context, limit int) ([]*domain.ContentItem, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + itemColumns + `
FROM content_items
ORDER BY created_at DESC, seq DESC LIMIT ?;`
	return r.queryItems(ctx, q, limit)
}

// Paginate with offset + limit (classic pagination)
func (r *ItemRepository) Paginate(ctx context.Context, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + itemColumns + ` FROM content_items WHERE 1=1`
	where, args := filterClauses(filters)
	query += where
	query += "\nORDER BY created_at DESC, seq DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, offset)

	list, err := r.queryItems(ctx, query, args...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying items: %w", err)
	}

	total, err := r.Count(ctx, filters)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       list,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Count returns the total number of records matching the given filters
func (r *ItemRepository) Count(ctx context.Context, filters map[string]interface{}) (int64, error) {
	query := "SELECT COUNT(*) FROM content_items WHERE 1=1"
	where, args := filterClauses(filters)
	query += where

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CategorySummary counts items per category
func (r *ItemRepository) CategorySummary(ctx context.Context) (map[string]int, error) {
	const q = `SELECT category, COUNT(*) FROM content_items GROUP BY category;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		out[category] = n
	}
	return out, rows.Err()
}

// UpdateStatus only touches the status column; no-op when the row is gone
func (r *ItemRepository) UpdateStatus(ctx context.Context, id domain.ItemID, status domain.Status) error {
	const q = `UPDATE content_items SET status=? WHERE id=?;`
	_, err := r.db.ExecContext(ctx, q, status, id)
	return err
}

// MarkFailed records the error outcome together with the raw message
func (r *ItemRepository) MarkFailed(ctx context.Context, id domain.ItemID, message string) error {
	const q = `UPDATE content_items SET status=?, last_error=? WHERE id=?;`
	_, err := r.db.ExecContext(ctx, q, domain.StatusError, message, id)
	return err
}

// ApplyAnalysis stores the analysis payload with the final derived fields
func (r *ItemRepository) ApplyAnalysis(ctx context.Context, id domain.ItemID, title string, tags []string, category string, analysis *domain.Analysis) error {
	tagsJSON, err := marshalJSON(tags)
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}
	analysisJSON, err := marshalJSON(analysis)
	if err != nil {
		return fmt.Errorf("marshaling analysis: %w", err)
	}

	const q = `
UPDATE content_items
SET title = ?,
    tags_json = ?,
    category = ?,
    analysis_json = ?,
    status = ?,
    last_error = ''
WHERE id = ?;`
	_, err = r.db.ExecContext(ctx, q, title, tagsJSON, category, analysisJSON, domain.StatusProcessed, id)
	return err
}

// Requeue moves an errored item back to pending
func (r *ItemRepository) Requeue(ctx context.Context, id domain.ItemID) error {
	const q = `UPDATE content_items SET status=?, last_error='' WHERE id=? AND status=?;`
	_, err := r.db.ExecContext(ctx, q, domain.StatusPending, id, domain.StatusError)
	return err
}

// ToggleFavorite flips the favorite flag
func (r *ItemRepository) ToggleFavorite(ctx context.Context, id domain.ItemID) error {
	const q = `UPDATE content_items SET is_favorite = NOT is_favorite WHERE id=?;`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *ItemRepository) queryItems(ctx context.Context, query string, args ...interface{}) ([]*domain.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ContentItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*domain.ContentItem, error) {
	var it domain.ContentItem
	var imagesJSON, tagsJSON string
	var analysisJSON sql.NullString
	if err := row.Scan(
		&it.ID, &it.RawContent, &imagesJSON, &it.Kind, &it.Title, &it.Category, &tagsJSON,
		&analysisJSON, &it.Status, &it.LastError, &it.IsFavorite, &it.CreatedAt,
	); err != nil {
		return nil, err
	}
	it.Images = unmarshalImages(imagesJSON)
	it.Tags = unmarshalTags(tagsJSON)
	if analysisJSON.Valid {
		it.Analysis = unmarshalAnalysis(analysisJSON.String)
	}
	return &it, nil
}

func filterClauses(filters map[string]interface{}) (string, []interface{}) {
	var where string
	var args []interface{}
	if filters != nil {
		for key, value := range filters {
			switch key {
			case "status":
				where += " AND status = ?"
				args = append(args, value)
			case "kind":
				where += " AND kind = ?"
				args = append(args, value)
			case "category":
				where += " AND category = ?"
				args = append(args, value)
			case "favorite":
				where += " AND is_favorite = ?"
				args = append(args, value)
			case "q":
				// Use LIKE with wildcards - sanitize input to prevent SQL injection
				searchTerm := escapeLikePattern(value.(string))
				where += " AND (title LIKE ? OR raw_content LIKE ?)"
				args = append(args, "%"+searchTerm+"%", "%"+searchTerm+"%")
			}
		}
	}
	return where, args
}
