package queue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/keepstack/keepstack/internal/application"
	domai "github.com/keepstack/keepstack/internal/domain/ai"
	"github.com/keepstack/keepstack/internal/domain/faults"
	domain "github.com/keepstack/keepstack/internal/domain/items"
	"github.com/keepstack/keepstack/internal/middleware"
)

const (
	defaultInterval    = 5 * time.Second
	defaultCallTimeout = 60 * time.Second
)

// Processor drives pending items through analysis, one at a time.
//
// All processing happens on the single goroutine inside Run, so at most one
// item is ever in StatusProcessing and at most one analysis call is in
// flight. Items are picked strictly oldest-first among pending ones.
type Processor struct {
	repo        domain.Repository
	analyzer    domai.Analyzer
	faults      faults.Repository // optional, nil disables the audit trail
	clock       application.Clock
	log         *slog.Logger
	interval    time.Duration
	callTimeout time.Duration
	kick        chan struct{}
}

type Option func(*Processor)

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithCallTimeout bounds each analysis call.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.callTimeout = d
		}
	}
}

// WithFaultLog enables the processing-fault audit trail.
func WithFaultLog(repo faults.Repository) Option {
	return func(p *Processor) { p.faults = repo }
}

func New(repo domain.Repository, analyzer domai.Analyzer, clock application.Clock, log *slog.Logger, opts ...Option) *Processor {
	if log == nil {
		log = slog.Default()
	}
	p := &Processor{
		repo:        repo,
		analyzer:    analyzer,
		clock:       clock,
		log:         log,
		interval:    defaultInterval,
		callTimeout: defaultCallTimeout,
		kick:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Kick requests an immediate tick. Non-blocking; a pending kick coalesces.
func (p *Processor) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run polls on a fixed interval (and on Kick) until ctx is cancelled.
// Each tick handles at most one item, keeping external-service load at
// exactly one in-flight call and the processing order auditable.
func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("queue processor started", "interval", p.interval, "call_timeout", p.callTimeout)
	for {
		select {
		case <-ctx.Done():
			p.log.Info("queue processor stopped")
			return
		case <-ticker.C:
		case <-p.kick:
		}

		if _, err := p.ProcessNext(ctx); err != nil {
			p.log.Error("tick aborted", "error", err)
		}
	}
}

// ProcessNext selects the oldest pending item and runs it through analysis.
// It returns whether an item was picked up. Analysis outcomes (success,
// sensitive, failure) are absorbed into item status and never returned as
// errors; the returned error covers store-level failures only.
func (p *Processor) ProcessNext(ctx context.Context) (bool, error) {
	pending, err := p.repo.ListPending(ctx)
	if err != nil {
		return false, err
	}
	if len(pending) == 0 {
		return false, nil
	}
	item := pending[0]

	// Mark in-progress before the external call: a crash mid-call leaves
	// the item visibly stuck in processing instead of silently re-queued.
	if err := p.repo.UpdateStatus(ctx, item.ID, domain.StatusProcessing); err != nil {
		return false, err
	}

	middleware.IncrementAnalyses()
	middleware.IncrementAnalysesRunning()
	start := p.clock.Now()

	cctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	result, aerr := p.analyzer.Analyze(cctx, item.RawContent, item.Images)
	cancel()

	middleware.DecrementAnalysesRunning()
	elapsed := p.clock.Now().Sub(start)

	switch {
	case errors.Is(aerr, domai.ErrSensitiveContent):
		// Terminal. Derived fields stay exactly as set at ingestion so no
		// sensitive content leaks into them.
		middleware.IncrementAnalysesSensitive()
		p.log.Warn("analysis flagged sensitive content", "item_id", item.ID, "duration", elapsed)
		if err := p.repo.UpdateStatus(ctx, item.ID, domain.StatusSensitive); err != nil {
			return true, err
		}

	case aerr != nil:
		middleware.IncrementAnalysesFailed()
		p.log.Error("analysis failed", "item_id", item.ID, "duration", elapsed, "error", aerr)
		if err := p.repo.MarkFailed(ctx, item.ID, aerr.Error()); err != nil {
			return true, err
		}
		p.recordFault(ctx, string(item.ID), aerr)

	default:
		// Overwrite derived fields only when the service supplied values;
		// provisional ones survive otherwise.
		title := strings.TrimSpace(result.Title)
		if title == "" {
			title = item.Title
		}
		tags := result.Tags
		if len(tags) == 0 {
			tags = item.Tags
		}
		category := strings.TrimSpace(result.Category)
		if category == "" {
			category = item.Category
		}
		if err := p.repo.ApplyAnalysis(ctx, item.ID, title, tags, category, result); err != nil {
			return true, err
		}
		p.log.Info("item processed", "item_id", item.ID, "category", category, "duration", elapsed)
	}

	return true, nil
}

// recordFault is best-effort; a broken audit trail must not affect the item.
func (p *Processor) recordFault(ctx context.Context, itemID string, aerr error) {
	if p.faults == nil {
		return
	}
	f := &faults.Fault{
		ItemID:    itemID,
		Stage:     "analyze",
		Message:   aerr.Error(),
		CreatedAt: p.clock.Now(),
	}
	if err := p.faults.Save(ctx, f); err != nil {
		p.log.Warn("failed to record fault", "item_id", itemID, "error", err)
	}
}
