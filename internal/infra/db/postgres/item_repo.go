package postgres

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

func (r *ItemRepository) Insert(ctx context.Context, it *domain.ContentItem) error {
	const q = `
INSERT INTO content_items
(id, raw_content, images_json, kind, title, category, tags_json,
 analysis_json, status, last_error, is_favorite, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

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

func (r *ItemRepository) Get(ctx context.Context, id domain.ItemID) (*domain.ContentItem, error) {
	q := `SELECT ` + itemColumns + ` FROM content_items WHERE id=$1 LIMIT 1;`
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

func (r *ItemRepository) Delete(ctx context.Context, id domain.ItemID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM content_items WHERE id=$1;`, id)
	return err
}

func (r *ItemRepository) ListPending(ctx context.Context) ([]*domain.ContentItem, error) {
	q := `SELECT ` + itemColumns + `
FROM content_items
WHERE status=$1 ORDER BY created_at ASC, seq ASC;`
	return r.queryItems(ctx, q, domain.StatusPending)
}

func (r *ItemRepository) ListQueue(ctx context.Context, limit int) ([]*domain.ContentItem, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + itemColumns + `
FROM content_items
WHERE status <> $1 ORDER BY created_at DESC, seq DESC LIMIT $2;`
	return r.queryItems(ctx, q, domain.StatusProcessed, limit)
}

func (r *ItemRepository) Latest(ctx context.Context, limit int) ([]*domain.ContentItem, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + itemColumns + `
FROM content_items
ORDER BY created_at DESC, seq DESC LIMIT $1;`
	return r.queryItems(ctx, q, limit)
}

func (r *ItemRepository) Paginate(ctx context.Context, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + itemColumns + ` FROM content_items WHERE 1=1`
	where, args := filterClauses(filters, 1)
	query += where
	query += fmt.Sprintf("\nORDER BY created_at DESC, seq DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
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

func (r *ItemRepository) Count(ctx context.Context, filters map[string]interface{}) (int64, error) {
	query := "SELECT COUNT(*) FROM content_items WHERE 1=1"
	where, args := filterClauses(filters, 1)
	query += where

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

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

func (r *ItemRepository) UpdateStatus(ctx context.Context, id domain.ItemID, status domain.Status) error {
	const q = `UPDATE content_items SET status=$1 WHERE id=$2;`
	_, err := r.db.ExecContext(ctx, q, status, id)
	return err
}

func (r *ItemRepository) MarkFailed(ctx context.Context, id domain.ItemID, message string) error {
	const q = `UPDATE content_items SET status=$1, last_error=$2 WHERE id=$3;`
	_, err := r.db.ExecContext(ctx, q, domain.StatusError, message, id)
	return err
}

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
SET title = $1,
    tags_json = $2,
    category = $3,
    analysis_json = $4,
    status = $5,
    last_error = ''
WHERE id = $6;`
	_, err = r.db.ExecContext(ctx, q, title, tagsJSON, category, analysisJSON, domain.StatusProcessed, id)
	return err
}

func (r *ItemRepository) Requeue(ctx context.Context, id domain.ItemID) error {
	const q = `UPDATE content_items SET status=$1, last_error='' WHERE id=$2 AND status=$3;`
	_, err := r.db.ExecContext(ctx, q, domain.StatusPending, id, domain.StatusError)
	return err
}

func (r *ItemRepository) ToggleFavorite(ctx context.Context, id domain.ItemID) error {
	const q = `UPDATE content_items SET is_favorite = NOT is_favorite WHERE id=$1;`
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

func filterClauses(filters map[string]interface{}, start int) (string, []interface{}) {
	var where string
	var args []interface{}
	n := start
	if filters != nil {
		for key, value := range filters {
			switch key {
			case "status":
				where += fmt.Sprintf(" AND status = $%d", n)
				args = append(args, value)
				n++
			case "kind":
				where += fmt.Sprintf(" AND kind = $%d", n)
				args = append(args, value)
				n++
			case "category":
				where += fmt.Sprintf(" AND category = $%d", n)
				args = append(args, value)
				n++
			case "favorite":
				where += fmt.Sprintf(" AND is_favorite = $%d", n)
				args = append(args, value)
				n++
			case "q":
				searchTerm := escapeLikePattern(value.(string))
				where += fmt.Sprintf(" AND (title ILIKE $%d OR raw_content ILIKE $%d)", n, n+1)
				args = append(args, "%"+searchTerm+"%", "%"+searchTerm+"%")
				n += 2
			}
		}
	}
	return where, args
}
