package items

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/keepstack/keepstack/internal/application"
	domain "github.com/keepstack/keepstack/internal/domain/items"
)

// maxTitleRunes bounds the provisional title derived from raw content.
const maxTitleRunes = 80

// ImageStore port for archiving image payloads (object storage).
// Optional collaborator: a nil store skips archiving.
type ImageStore interface {
	UploadImage(ctx context.Context, key string, mimeType string, data []byte) (string, error)
}

// Service implements the ingestion use-cases: submit plus the CRUD actions
// the capture UI performs on items (list, get, delete, favorite, retry).
type Service struct {
	Repo   domain.Repository
	Images ImageStore
	Clock  application.Clock
	Log    *slog.Logger
}

// SubmitCommand is the ingestion input.
type SubmitCommand struct {
	Content string
	Images  []domain.Image
	Kind    domain.Kind // optional hint; detected from content when absent or invalid
}

// Submit validates and stores a new item in StatusPending. Analysis happens
// later, out of band, once the queue processor picks the item up.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*domain.ContentItem, error) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" && len(cmd.Images) == 0 {
		return nil, domain.ErrEmptySubmission
	}

	kind := cmd.Kind
	if !domain.ValidKind(kind) {
		kind = domain.DetectKind(content)
	}

	item := &domain.ContentItem{
		ID:         domain.ItemID(uuid.New().String()),
		RawContent: cmd.Content,
		Images:     cmd.Images,
		Kind:       kind,
		Title:      deriveTitle(content),
		Category:   domain.DefaultCategory,
		Tags:       []string{},
		Status:     domain.StatusPending,
		CreatedAt:  s.Clock.Now(),
	}

	// Archive images before insert so the stored row carries the URLs.
	// Upload failures are tolerated: the bytes stay on the item and the
	// analysis call does not depend on object storage.
	if s.Images != nil {
		for i := range item.Images {
			key := fmt.Sprintf("%s/%d%s", item.ID, i, extensionFor(item.Images[i].MimeType))
			url, err := s.Images.UploadImage(ctx, key, item.Images[i].MimeType, item.Images[i].Data)
			if err != nil {
				s.log().Warn("image upload failed", "item_id", item.ID, "index", i, "error", err)
				continue
			}
			item.Images[i].URL = url
		}
	}

	if err := s.Repo.Insert(ctx, item); err != nil {
		return nil, fmt.Errorf("inserting item: %w", err)
	}

	s.log().Info("item submitted", "item_id", item.ID, "kind", item.Kind, "images", len(item.Images))
	return item, nil
}

// Get returns one item by id.
func (s *Service) Get(ctx context.Context, id domain.ItemID) (*domain.ContentItem, error) {
	it, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, domain.ErrNotFound
	}
	return it, nil
}

// Latest returns the N most recently created items.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.ContentItem, error) {
	return s.Repo.Latest(ctx, limit)
}

// Paginate lists items with optional filters (status, kind, category,
// favorite, q for text search).
func (s *Service) Paginate(ctx context.Context, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, page, pageSize, filters)
}

// Queue returns every item that has not reached StatusProcessed.
func (s *Service) Queue(ctx context.Context, limit int) ([]*domain.ContentItem, error) {
	return s.Repo.ListQueue(ctx, limit)
}

// Summary returns item counts per category.
func (s *Service) Summary(ctx context.Context) (map[string]int, error) {
	return s.Repo.CategorySummary(ctx)
}

// Delete removes an item immediately, regardless of status. A deletion that
// races a running analysis is safe: the late result update no-ops.
func (s *Service) Delete(ctx context.Context, id domain.ItemID) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log().Info("item deleted", "item_id", id)
	return nil
}

// ToggleFavorite flips the user-facing favorite flag.
func (s *Service) ToggleFavorite(ctx context.Context, id domain.ItemID) (*domain.ContentItem, error) {
	if err := s.Repo.ToggleFavorite(ctx, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Retry re-queues an item that ended in StatusError. Sensitive items are not
// retryable: content flagged once is never resubmitted automatically, the
// only exit is deletion or manual re-classification.
func (s *Service) Retry(ctx context.Context, id domain.ItemID) (*domain.ContentItem, error) {
	it, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.Status != domain.StatusError {
		return nil, domain.ErrNotRetryable
	}
	if err := s.Repo.Requeue(ctx, id); err != nil {
		return nil, err
	}
	s.log().Info("item requeued", "item_id", id)
	return s.Get(ctx, id)
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// deriveTitle takes the first line of the content, truncated to
// maxTitleRunes. Image-only submissions get a placeholder.
func deriveTitle(content string) string {
	if content == "" {
		return "Untitled"
	}
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	r := []rune(line)
	if len(r) > maxTitleRunes {
		return string(r[:maxTitleRunes]) + "..."
	}
	return line
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ""
}
