package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appitems "github.com/keepstack/keepstack/internal/application/items"
	"github.com/keepstack/keepstack/internal/application/queue"
	domai "github.com/keepstack/keepstack/internal/domain/ai"
	"github.com/keepstack/keepstack/internal/domain/faults"
	domain "github.com/keepstack/keepstack/internal/domain/items"
	"github.com/keepstack/keepstack/internal/middleware"
)

// Deps holds the collaborators the HTTP surface needs. FaultLog is
// optional; a nil value disables the faults listing endpoint.
type Deps struct {
	Items     *appitems.Service
	Processor *queue.Processor
	FaultLog  faults.Repository
	Health    map[string]middleware.HealthChecker
	Logger    *slog.Logger

	// APIKeys maps client name to key; empty disables auth.
	APIKeys map[string]string
	// RateLimitCapacity <= 0 disables rate limiting.
	RateLimitCapacity  int
	RateLimitRefillPer int
}

type Router struct {
	items    *appitems.Service
	proc     *queue.Processor
	faultLog faults.Repository
}

func NewRouter(deps Deps) http.Handler {
	r := &Router{items: deps.Items, proc: deps.Processor, faultLog: deps.FaultLog}
	mux := chi.NewRouter()

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	mux.Use(middleware.LoggingMiddleware(log))
	mux.Use(middleware.MetricsMiddleware)
	if len(deps.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(deps.APIKeys))
	}
	if deps.RateLimitCapacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(deps.RateLimitCapacity, deps.RateLimitRefillPer))
	}

	mux.Get("/health", middleware.HealthHandler(deps.Health))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/items", r.wrap(r.handleSubmit))
		rt.Get("/items", r.wrap(r.handleList))
		rt.Get("/items/latest", r.wrap(r.handleLatest))
		rt.Get("/items/{id}", r.wrap(r.handleGet))
		rt.Delete("/items/{id}", r.wrap(r.handleDelete))
		rt.Post("/items/{id}/favorite", r.wrap(r.handleToggleFavorite))
		rt.Post("/items/{id}/retry", r.wrap(r.handleRetry))
		if r.faultLog != nil {
			rt.Get("/items/{id}/faults", r.wrap(r.handleFaults))
		}
		rt.Get("/queue", r.wrap(r.handleQueue))
		rt.Post("/queue/process", r.wrap(r.handleProcessNow))
		rt.Get("/summary", r.wrap(r.handleSummary))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequestError marks client input errors so wrap can map them to 400.
type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error { return badRequestError{err: err} }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var br badRequestError
			switch {
			case errors.Is(err, domain.ErrEmptySubmission) || errors.As(err, &br):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domain.ErrNotFound) || errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrNotRetryable):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, domai.ErrQuotaExceeded):
				http.Error(w, "analysis quota exceeded", http.StatusTooManyRequests)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/items
// Body: {"content": "...", "kind": "text|link|file", "images": [{"mimeType": "...", "data": "<base64>"}]}
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Content string `json:"content"`
		Kind    string `json:"kind"`
		Images  []struct {
			MimeType string `json:"mimeType"`
			Data     []byte `json:"data"`
		} `json:"images"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest(fmt.Errorf("invalid json body: %w", err))
	}

	if err := middleware.ValidateKind(body.Kind); err != nil {
		return badRequest(err)
	}
	if err := middleware.ValidateContentSize(body.Content); err != nil {
		return badRequest(err)
	}
	if err := middleware.ValidateImageCount(len(body.Images)); err != nil {
		return badRequest(err)
	}
	images := make([]domain.Image, 0, len(body.Images))
	for _, img := range body.Images {
		if err := middleware.ValidateImage(img.MimeType, len(img.Data)); err != nil {
			return badRequest(err)
		}
		images = append(images, domain.Image{MimeType: img.MimeType, Data: img.Data})
	}

	item, err := r.items.Submit(req.Context(), appitems.SubmitCommand{
		Content: body.Content,
		Images:  images,
		Kind:    domain.Kind(body.Kind),
	})
	if err != nil {
		return err
	}

	middleware.IncrementItemsSubmitted()
	r.proc.Kick()

	return writeJSON(w, http.StatusCreated, item)
}

// GET /v1/items?page=&page_size=&status=&kind=&category=&favorite=&q=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))

	filters := map[string]interface{}{}
	if v := q.Get("status"); v != "" {
		filters["status"] = v
	}
	if v := q.Get("kind"); v != "" {
		filters["kind"] = v
	}
	if v := q.Get("category"); v != "" {
		filters["category"] = v
	}
	if v := q.Get("favorite"); v != "" {
		fav, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(fmt.Errorf("invalid favorite filter: %q", v))
		}
		filters["favorite"] = fav
	}
	if v := q.Get("q"); v != "" {
		filters["q"] = v
	}

	result, err := r.items.Paginate(req.Context(), page, size, filters)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, result)
}

// GET /v1/items/latest?limit=
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.items.Latest(req.Context(), limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.ContentItem{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/items/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := domain.ItemID(chi.URLParam(req, "id"))
	item, err := r.items.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, item)
}

// DELETE /v1/items/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id := domain.ItemID(chi.URLParam(req, "id"))
	if err := r.items.Delete(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/items/{id}/favorite
func (r *Router) handleToggleFavorite(w http.ResponseWriter, req *http.Request) error {
	id := domain.ItemID(chi.URLParam(req, "id"))
	item, err := r.items.ToggleFavorite(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, item)
}

// POST /v1/items/{id}/retry
func (r *Router) handleRetry(w http.ResponseWriter, req *http.Request) error {
	id := domain.ItemID(chi.URLParam(req, "id"))
	item, err := r.items.Retry(req.Context(), id)
	if err != nil {
		return err
	}
	r.proc.Kick()
	return writeJSON(w, http.StatusOK, item)
}

// GET /v1/items/{id}/faults?limit=
func (r *Router) handleFaults(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.faultLog.ListByItem(req.Context(), id, limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*faults.Fault{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/queue?limit=
func (r *Router) handleQueue(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.items.Queue(req.Context(), limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.ContentItem{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/queue/process wakes the processor without waiting for the next
// poll tick. Processing itself stays sequential and asynchronous.
func (r *Router) handleProcessNow(w http.ResponseWriter, req *http.Request) error {
	r.proc.Kick()
	return writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// GET /v1/summary
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	summary, err := r.items.Summary(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, summary)
}
