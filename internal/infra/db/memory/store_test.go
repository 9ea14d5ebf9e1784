package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/keepstack/keepstack/internal/domain/items"
)

func item(id string, status domain.Status, createdAt time.Time) *domain.ContentItem {
	return &domain.ContentItem{
		ID:         domain.ItemID(id),
		RawContent: "raw " + id,
		Kind:       domain.KindText,
		Title:      "title " + id,
		Category:   domain.DefaultCategory,
		Tags:       []string{},
		Status:     status,
		CreatedAt:  createdAt,
	}
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	s := New()
	it, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, it)
}

func TestInsertAndGetReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	orig := item("a", domain.StatusPending, time.Now())
	orig.Tags = []string{"one"}
	require.NoError(t, s.Insert(ctx, orig))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)

	// Mutating the returned copy must not affect stored state.
	got.Title = "changed"
	got.Tags[0] = "changed"

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "title a", again.Title)
	assert.Equal(t, []string{"one"}, again.Tags)
}

func TestListPendingOldestFirstWithTieBreak(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, item("newer", domain.StatusPending, at.Add(time.Minute))))
	require.NoError(t, s.Insert(ctx, item("tie1", domain.StatusPending, at)))
	require.NoError(t, s.Insert(ctx, item("tie2", domain.StatusPending, at)))
	require.NoError(t, s.Insert(ctx, item("done", domain.StatusProcessed, at)))

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, domain.ItemID("tie1"), pending[0].ID)
	assert.Equal(t, domain.ItemID("tie2"), pending[1].ID)
	assert.Equal(t, domain.ItemID("newer"), pending[2].ID)
}

func TestListQueueExcludesProcessed(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, item("p", domain.StatusPending, at)))
	require.NoError(t, s.Insert(ctx, item("e", domain.StatusError, at.Add(time.Minute))))
	require.NoError(t, s.Insert(ctx, item("s", domain.StatusSensitive, at.Add(2*time.Minute))))
	require.NoError(t, s.Insert(ctx, item("done", domain.StatusProcessed, at.Add(3*time.Minute))))

	queue, err := s.ListQueue(ctx, 0)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	// Newest first.
	assert.Equal(t, domain.ItemID("s"), queue[0].ID)
	assert.Equal(t, domain.ItemID("e"), queue[1].ID)
	assert.Equal(t, domain.ItemID("p"), queue[2].ID)
}

func TestMutationsOnMissingIDAreNoops(t *testing.T) {
	s := New()
	ctx := context.Background()

	assert.NoError(t, s.UpdateStatus(ctx, "nope", domain.StatusProcessing))
	assert.NoError(t, s.MarkFailed(ctx, "nope", "boom"))
	assert.NoError(t, s.ApplyAnalysis(ctx, "nope", "t", nil, "c", &domain.Analysis{}))
	assert.NoError(t, s.Requeue(ctx, "nope"))
	assert.NoError(t, s.ToggleFavorite(ctx, "nope"))
	assert.NoError(t, s.Delete(ctx, "nope"))

	// Nothing was resurrected.
	it, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, it)
}

func TestApplyAnalysisMarksProcessedAndClearsError(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, item("a", domain.StatusProcessing, time.Now())))
	require.NoError(t, s.MarkFailed(ctx, "a", "transient"))

	a := &domain.Analysis{Title: "T", Category: "Work"}
	require.NoError(t, s.ApplyAnalysis(ctx, "a", "T", []string{"x"}, "Work", a))

	it, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, it.Status)
	assert.Equal(t, "T", it.Title)
	assert.Equal(t, "Work", it.Category)
	assert.Empty(t, it.LastError)
	require.NotNil(t, it.Analysis)
}

func TestRequeueOnlyFromError(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, item("ok", domain.StatusProcessed, time.Now())))
	require.NoError(t, s.Insert(ctx, item("bad", domain.StatusError, time.Now())))

	require.NoError(t, s.Requeue(ctx, "ok"))
	require.NoError(t, s.Requeue(ctx, "bad"))

	it, _ := s.Get(ctx, "ok")
	assert.Equal(t, domain.StatusProcessed, it.Status)
	it, _ = s.Get(ctx, "bad")
	assert.Equal(t, domain.StatusPending, it.Status)
}

func TestPaginateFiltersAndCounts(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for _, it := range []*domain.ContentItem{
		item("a", domain.StatusProcessed, at),
		item("b", domain.StatusProcessed, at.Add(time.Minute)),
		item("c", domain.StatusPending, at.Add(2*time.Minute)),
	} {
		require.NoError(t, s.Insert(ctx, it))
	}
	require.NoError(t, s.ToggleFavorite(ctx, "a"))

	res, err := s.Paginate(ctx, 1, 10, map[string]interface{}{"status": "processed"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	assert.Len(t, res.Data, 2)

	res, err = s.Paginate(ctx, 1, 10, map[string]interface{}{"favorite": true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
	assert.Equal(t, domain.ItemID("a"), res.Data[0].ID)

	res, err = s.Paginate(ctx, 1, 10, map[string]interface{}{"q": "RAW B"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
	assert.Equal(t, domain.ItemID("b"), res.Data[0].ID)
}

func TestPaginatePaging(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ids := []string{"a", "b", "c", "d", "e"}
	for i, id := range ids {
		require.NoError(t, s.Insert(ctx, item(id, domain.StatusPending, at.Add(time.Duration(i)*time.Minute))))
	}

	res, err := s.Paginate(ctx, 2, 2, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, res.Total)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Data, 2)
	// Newest first: page 2 holds the middle slice.
	assert.Equal(t, domain.ItemID("c"), res.Data[0].ID)
	assert.Equal(t, domain.ItemID("b"), res.Data[1].ID)
}

func TestCategorySummary(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := item("a", domain.StatusProcessed, time.Now())
	a.Category = "Work"
	b := item("b", domain.StatusProcessed, time.Now())
	b.Category = "Work"
	c := item("c", domain.StatusPending, time.Now())
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, b))
	require.NoError(t, s.Insert(ctx, c))

	summary, err := s.CategorySummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Work": 2, domain.DefaultCategory: 1}, summary)
}
