// Package memory provides an in-memory Repository for development and tests.
// Mutation methods mirror the SQL repos: updates against a missing id are
// silent no-ops so a delete can race an in-flight analysis safely.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	domain "github.com/keepstack/keepstack/internal/domain/items"
)

type Store struct {
	mu   sync.RWMutex
	seq  int
	byID map[domain.ItemID]*record
}

// record pairs the item with its insertion sequence for FIFO tie-breaks.
type record struct {
	item *domain.ContentItem
	seq  int
}

func New() *Store {
	return &Store{byID: make(map[domain.ItemID]*record)}
}

func (s *Store) Insert(ctx context.Context, item *domain.ContentItem) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	cp := cloneItem(item)
	s.byID[item.ID] = &record{item: cp, seq: s.seq}
	return nil
}

func (s *Store) Get(ctx context.Context, id domain.ItemID) (*domain.ContentItem, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneItem(rec.item), nil
}

func (s *Store) Delete(ctx context.Context, id domain.ItemID) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byID, id)
	return nil
}

func (s *Store) ListPending(ctx context.Context) ([]*domain.ContentItem, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.selectRecords(func(it *domain.ContentItem) bool {
		return it.Status == domain.StatusPending
	})
	sortOldestFirst(recs)
	return itemsOf(recs), nil
}

func (s *Store) ListQueue(ctx context.Context, limit int) ([]*domain.ContentItem, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.selectRecords(func(it *domain.ContentItem) bool {
		return it.Status != domain.StatusProcessed
	})
	sortNewestFirst(recs)
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return itemsOf(recs), nil
}

func (s *Store) Latest(ctx context.Context, limit int) ([]*domain.ContentItem, error) {
	_ = ctx
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.selectRecords(func(*domain.ContentItem) bool { return true })
	sortNewestFirst(recs)
	if limit < len(recs) {
		recs = recs[:limit]
	}
	return itemsOf(recs), nil
}

func (s *Store) Paginate(ctx context.Context, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	_ = ctx
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.selectRecords(func(it *domain.ContentItem) bool {
		return matchesFilters(it, filters)
	})
	sortNewestFirst(recs)

	total := int64(len(recs))
	start := (page - 1) * pageSize
	if start > len(recs) {
		start = len(recs)
	}
	end := start + pageSize
	if end > len(recs) {
		end = len(recs)
	}

	return domain.PaginatedResult{
		Data:       itemsOf(recs[start:end]),
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (s *Store) CategorySummary(ctx context.Context) (map[string]int, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int)
	for _, rec := range s.byID {
		out[rec.item.Category]++
	}
	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id domain.ItemID, status domain.Status) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byID[id]; ok {
		rec.item.Status = status
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, id domain.ItemID, message string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byID[id]; ok {
		rec.item.Status = domain.StatusError
		rec.item.LastError = message
	}
	return nil
}

func (s *Store) ApplyAnalysis(ctx context.Context, id domain.ItemID, title string, tags []string, category string, analysis *domain.Analysis) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byID[id]; ok {
		rec.item.Title = title
		rec.item.Tags = tags
		rec.item.Category = category
		rec.item.Analysis = analysis
		rec.item.Status = domain.StatusProcessed
		rec.item.LastError = ""
	}
	return nil
}

func (s *Store) Requeue(ctx context.Context, id domain.ItemID) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byID[id]; ok && rec.item.Status == domain.StatusError {
		rec.item.Status = domain.StatusPending
		rec.item.LastError = ""
	}
	return nil
}

func (s *Store) ToggleFavorite(ctx context.Context, id domain.ItemID) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.byID[id]; ok {
		rec.item.IsFavorite = !rec.item.IsFavorite
	}
	return nil
}

func (s *Store) selectRecords(keep func(*domain.ContentItem) bool) []*record {
	out := make([]*record, 0, len(s.byID))
	for _, rec := range s.byID {
		if keep(rec.item) {
			out = append(out, rec)
		}
	}
	return out
}

func sortOldestFirst(recs []*record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].item.CreatedAt.Equal(recs[j].item.CreatedAt) {
			return recs[i].seq < recs[j].seq
		}
		return recs[i].item.CreatedAt.Before(recs[j].item.CreatedAt)
	})
}

func sortNewestFirst(recs []*record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].item.CreatedAt.Equal(recs[j].item.CreatedAt) {
			return recs[i].seq > recs[j].seq
		}
		return recs[i].item.CreatedAt.After(recs[j].item.CreatedAt)
	})
}

func itemsOf(recs []*record) []*domain.ContentItem {
	out := make([]*domain.ContentItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, cloneItem(rec.item))
	}
	return out
}

func matchesFilters(it *domain.ContentItem, filters map[string]interface{}) bool {
	for key, value := range filters {
		switch key {
		case "status":
			if string(it.Status) != value {
				return false
			}
		case "kind":
			if string(it.Kind) != value {
				return false
			}
		case "category":
			if it.Category != value {
				return false
			}
		case "favorite":
			if fav, ok := value.(bool); ok && it.IsFavorite != fav {
				return false
			}
		case "q":
			q, _ := value.(string)
			q = strings.ToLower(q)
			if q != "" &&
				!strings.Contains(strings.ToLower(it.Title), q) &&
				!strings.Contains(strings.ToLower(it.RawContent), q) {
				return false
			}
		}
	}
	return true
}

// cloneItem guards callers from mutating stored state (and vice versa).
func cloneItem(it *domain.ContentItem) *domain.ContentItem {
	cp := *it
	if it.Tags != nil {
		cp.Tags = append([]string(nil), it.Tags...)
	}
	if it.Images != nil {
		cp.Images = append([]domain.Image(nil), it.Images...)
	}
	if it.Analysis != nil {
		a := *it.Analysis
		cp.Analysis = &a
	}
	return &cp
}
