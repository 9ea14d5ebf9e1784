package items

import "context"

// Repository is the persistence port for content items.
//
// Every targeted mutation (UpdateStatus, MarkFailed, ApplyAnalysis, Requeue,
// ToggleFavorite) must be a safe no-op when the id no longer exists: an item
// may be deleted while its analysis is in flight, and the late result has to
// be discarded silently instead of resurrecting the row.
type Repository interface {
	Insert(ctx context.Context, item *ContentItem) error
	Get(ctx context.Context, id ItemID) (*ContentItem, error) // (nil, nil) when missing
	Delete(ctx context.Context, id ItemID) error

	// ListPending returns every item awaiting processing, oldest first
	// (created_at asc, insertion order as tie-break).
	ListPending(ctx context.Context) ([]*ContentItem, error)

	// ListQueue returns items that have not reached StatusProcessed,
	// newest first.
	ListQueue(ctx context.Context, limit int) ([]*ContentItem, error)

	Latest(ctx context.Context, limit int) ([]*ContentItem, error)
	Paginate(ctx context.Context, page, pageSize int, filters map[string]interface{}) (PaginatedResult, error)
	CategorySummary(ctx context.Context) (map[string]int, error)

	UpdateStatus(ctx context.Context, id ItemID, status Status) error
	// MarkFailed sets StatusError and records the raw error for diagnostics.
	MarkFailed(ctx context.Context, id ItemID, message string) error
	// ApplyAnalysis stores the analysis payload together with the final
	// derived fields and sets StatusProcessed.
	ApplyAnalysis(ctx context.Context, id ItemID, title string, tags []string, category string, analysis *Analysis) error
	// Requeue moves an item back to StatusPending, but only from StatusError.
	Requeue(ctx context.Context, id ItemID) error
	ToggleFavorite(ctx context.Context, id ItemID) error
}
