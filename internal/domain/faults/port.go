package faults

import (
	"context"
)

// Repository defines persistence for processing faults
type Repository interface {
	Save(ctx context.Context, f *Fault) error
	ListByItem(ctx context.Context, itemID string, limit int) ([]*Fault, error)
}
