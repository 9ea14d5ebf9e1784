package ai

import (
	"context"

	"github.com/keepstack/keepstack/internal/domain/items"
)

// Analyzer wraps the external analysis service. One call covers the item's
// text and all of its images; the adapter must not retry on its own.
// A sensitive classification is reported as ErrSensitiveContent.
type Analyzer interface {
	Analyze(ctx context.Context, content string, images []items.Image) (*items.Analysis, error)
}
