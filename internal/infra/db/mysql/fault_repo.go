package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/keepstack/keepstack/internal/domain/faults"
)

type FaultRepository struct {
	db *sql.DB
}

func NewFaultRepository(db *sql.DB) *FaultRepository { return &FaultRepository{db: db} }

func (r *FaultRepository) Save(ctx context.Context, f *faults.Fault) error {
	const q = `
INSERT INTO content_item_faults
  (item_id, stage, message, created_at)
VALUES (?,?,?,?);
`
	stage := f.Stage
	if strings.TrimSpace(stage) == "" {
		stage = "-"
	}
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, f.ItemID, stage, msg, created)
	return err
}

func (r *FaultRepository) ListByItem(ctx context.Context, itemID string, limit int) ([]*faults.Fault, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, item_id, stage, message, created_at
FROM content_item_faults
WHERE item_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*faults.Fault
	for rows.Next() {
		var f faults.Fault
		if err := rows.Scan(&f.ID, &f.ItemID, &f.Stage, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
