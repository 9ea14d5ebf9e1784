package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appitems "github.com/keepstack/keepstack/internal/application/items"
	"github.com/keepstack/keepstack/internal/application/queue"
	domai "github.com/keepstack/keepstack/internal/domain/ai"
	domain "github.com/keepstack/keepstack/internal/domain/items"
	"github.com/keepstack/keepstack/internal/infra/db/memory"
)

type clock struct{ t time.Time }

func (c clock) Now() time.Time { return c.t }

type stubAnalyzer struct {
	result *domain.Analysis
	err    error
}

func (s *stubAnalyzer) Analyze(context.Context, string, []domain.Image) (*domain.Analysis, error) {
	return s.result, s.err
}

type fixture struct {
	server *httptest.Server
	store  *memory.Store
	proc   *queue.Processor
}

func newFixture(t *testing.T, an *stubAnalyzer) *fixture {
	t.Helper()

	store := memory.New()
	faultLog := memory.NewFaultRepository()
	ck := clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	svc := &appitems.Service{Repo: store, Clock: ck}
	proc := queue.New(store, an, ck, nil, queue.WithFaultLog(faultLog))

	handler := NewRouter(Deps{
		Items:     svc,
		Processor: proc,
		FaultLog:  faultLog,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &fixture{server: srv, store: store, proc: proc}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeItem(t *testing.T, resp *http.Response) domain.ContentItem {
	t.Helper()
	defer resp.Body.Close()
	var it domain.ContentItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&it))
	return it
}

func TestSubmitAndProcessRoundTrip(t *testing.T) {
	an := &stubAnalyzer{result: &domain.Analysis{
		Title:    "T",
		Summary:  "short summary",
		Category: "Work",
		Tags:     []string{"notes"},
	}}
	f := newFixture(t, an)

	resp := f.do(t, http.MethodPost, "/v1/items", map[string]interface{}{
		"content": "https://example.com - notes",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeItem(t, resp)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, domain.KindLink, created.Kind)

	picked, err := f.proc.ProcessNext(context.Background())
	require.NoError(t, err)
	require.True(t, picked)

	resp = f.do(t, http.MethodGet, "/v1/items/"+string(created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeItem(t, resp)
	assert.Equal(t, domain.StatusProcessed, got.Status)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "Work", got.Category)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, "short summary", got.Analysis.Summary)
}

func TestSubmitEmptyBodyRejected(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})

	resp := f.do(t, http.MethodPost, "/v1/items", map[string]interface{}{"content": "   "})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitInvalidKindRejected(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})

	resp := f.do(t, http.MethodPost, "/v1/items", map[string]interface{}{
		"content": "hello",
		"kind":    "video",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetMissingItemReturns404(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})

	resp := f.do(t, http.MethodGet, "/v1/items/does-not-exist", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})

	resp := f.do(t, http.MethodPost, "/v1/items", map[string]interface{}{"content": "scrap this"})
	created := decodeItem(t, resp)

	resp = f.do(t, http.MethodDelete, "/v1/items/"+string(created.ID), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/v1/items/"+string(created.ID), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToggleFavoriteEndpoint(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})

	resp := f.do(t, http.MethodPost, "/v1/items", map[string]interface{}{"content": "star me"})
	created := decodeItem(t, resp)

	resp = f.do(t, http.MethodPost, "/v1/items/"+string(created.ID)+"/favorite", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeItem(t, resp)
	assert.True(t, got.IsFavorite)
}

func TestRetryConflictsUnlessErrored(t *testing.T) {
	an := &stubAnalyzer{err: errors.New("upstream down")}
	f := newFixture(t, an)

	resp := f.do(t, http.MethodPost, "/v1/items", map[string]interface{}{"content": "flaky"})
	created := decodeItem(t, resp)

	// Still pending: retry is a conflict.
	resp = f.do(t, http.MethodPost, "/v1/items/"+string(created.ID)+"/retry", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, err := f.proc.ProcessNext(context.Background())
	require.NoError(t, err)

	// Now errored: retry re-queues.
	resp = f.do(t, http.MethodPost, "/v1/items/"+string(created.ID)+"/retry", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeItem(t, resp)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestSensitiveOutcomeSurfacesInQueueView(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{err: fmt.Errorf("flagged: %w", domai.ErrSensitiveContent)})

	resp := f.do(t, http.MethodPost, "/v1/items", map[string]interface{}{"content": "secret stuff"})
	created := decodeItem(t, resp)

	_, err := f.proc.ProcessNext(context.Background())
	require.NoError(t, err)

	resp = f.do(t, http.MethodGet, "/v1/queue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	var pending []domain.ContentItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pending))
	require.Len(t, pending, 1)
	assert.Equal(t, created.ID, pending[0].ID)
	assert.Equal(t, domain.StatusSensitive, pending[0].Status)
}

func TestFaultsEndpointListsFailures(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{err: errors.New("model overloaded")})

	resp := f.do(t, http.MethodPost, "/v1/items", map[string]interface{}{"content": "flaky"})
	created := decodeItem(t, resp)

	_, err := f.proc.ProcessNext(context.Background())
	require.NoError(t, err)

	resp = f.do(t, http.MethodGet, "/v1/items/"+string(created.ID)+"/faults", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	var faults []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&faults))
	require.Len(t, faults, 1)
	assert.Equal(t, "model overloaded", faults[0]["message"])
}

func TestQueueProcessEndpointAccepted(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})

	resp := f.do(t, http.MethodPost, "/v1/queue/process", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestListWithFilters(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})

	for _, c := range []string{"first note", "second note"} {
		resp := f.do(t, http.MethodPost, "/v1/items", map[string]interface{}{"content": c})
		resp.Body.Close()
	}

	resp := f.do(t, http.MethodGet, "/v1/items?status=pending&page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	var result struct {
		Data       []domain.ContentItem `json:"data"`
		Total      int64                `json:"totalItems"`
		TotalPages int                  `json:"totalPages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.EqualValues(t, 2, result.Total)
	assert.Len(t, result.Data, 2)
}

func TestListInvalidFavoriteFilter(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})

	resp := f.do(t, http.MethodGet, "/v1/items?favorite=maybe", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSummaryEndpoint(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})

	resp := f.do(t, http.MethodPost, "/v1/items", map[string]interface{}{"content": "note"})
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/v1/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	var summary map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 1, summary[domain.DefaultCategory])
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	f := newFixture(t, &stubAnalyzer{})

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		resp := f.do(t, http.MethodGet, path, nil)
		resp.Body.Close()
		assert.Equalf(t, http.StatusOK, resp.StatusCode, "path %s", path)
	}
}

func TestAPIKeyAuthGuardsItemRoutes(t *testing.T) {
	store := memory.New()
	ck := clock{t: time.Now()}
	svc := &appitems.Service{Repo: store, Clock: ck}
	proc := queue.New(store, &stubAnalyzer{}, ck, nil)

	handler := NewRouter(Deps{
		Items:     svc,
		Processor: proc,
		APIKeys:   map[string]string{"capture-ui": "sekrit"},
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/v1/items/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/items/latest", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Health stays open without a key.
	resp, err = srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
