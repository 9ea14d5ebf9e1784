package memory

import (
	"context"
	"sync"

	"github.com/keepstack/keepstack/internal/domain/faults"
)

// FaultRepository keeps processing faults in memory, newest first per item.
type FaultRepository struct {
	mu   sync.Mutex
	next int64
	rows []*faults.Fault
}

func NewFaultRepository() *FaultRepository {
	return &FaultRepository{}
}

func (r *FaultRepository) Save(ctx context.Context, f *faults.Fault) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	cp := *f
	cp.ID = r.next
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *FaultRepository) ListByItem(ctx context.Context, itemID string, limit int) ([]*faults.Fault, error) {
	_ = ctx
	if limit <= 0 {
		limit = 50
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*faults.Fault
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if r.rows[i].ItemID == itemID {
			cp := *r.rows[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
