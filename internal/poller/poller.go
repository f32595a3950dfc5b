// Package poller runs the fetch, extract and present cycle on a fixed interval.
//
// Each tick starts an independent cycle in its own goroutine. A slow fetch is
// not cancelled when the next tick fires, so cycles may overlap and the last
// response to arrive wins. A failed cycle is logged and leaves the display as
// it was.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"kpiboard/internal/config"
	"kpiboard/internal/extract"
	"kpiboard/internal/infrastructure"
	"kpiboard/internal/presenter"
	"kpiboard/internal/source"
	"kpiboard/pkg/contracts/domain"
)

// Applier receives the values extracted in a successful cycle
type Applier interface {
	Apply(ctx context.Context, ext domain.Extraction) presenter.Result
}

// Status describes the poller's recent activity
type Status struct {
	Running     bool          `json:"running"`
	Source      string        `json:"source"`
	Interval    time.Duration `json:"interval"`
	Cycles      uint64        `json:"cycles"`
	Failures    uint64        `json:"failures"`
	LastAttempt time.Time     `json:"last_attempt,omitempty"`
	LastSuccess time.Time     `json:"last_success,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	LastRows    int           `json:"last_rows"`
}

// Poller owns the interval, the source and the presenter of the board
type Poller struct {
	source   source.GridSource
	applier  Applier
	interval time.Duration
	extract  extract.Options
	logger   *slog.Logger
	metrics  *infrastructure.KPIMetrics
	tracer   trace.Tracer

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu     sync.RWMutex
	status Status
	latest domain.Extraction
}

// Option configures a Poller
type Option func(*Poller)

// WithInterval sets the time between cycles
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithExtractOptions sets the grid layout
func WithExtractOptions(o extract.Options) Option {
	return func(p *Poller) { p.extract = o }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// WithMetrics sets the instruments
func WithMetrics(m *infrastructure.KPIMetrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// WithTracer sets the tracer used for cycle and fetch spans
func WithTracer(t trace.Tracer) Option {
	return func(p *Poller) { p.tracer = t }
}

// New creates a stopped poller
func New(src source.GridSource, applier Applier, opts ...Option) *Poller {
	p := &Poller{
		source:   src,
		applier:  applier,
		interval: config.DefaultPollInterval,
		extract:  extract.DefaultOptions(),
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("kpiboard/poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = infrastructure.ForComponent(p.logger, "poller", slog.String("source", src.Name()))
	p.status.Source = src.Name()
	p.status.Interval = p.interval
	return p
}

// Start runs one cycle immediately and then one per interval until ctx is
// done or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.cancel != nil {
		return fmt.Errorf("poller already running")
	}
	if p.interval <= 0 {
		return fmt.Errorf("invalid poll interval %s", p.interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.setRunning(true)

	p.wg.Add(1)
	go p.loop(ctx)

	p.logger.InfoContext(ctx, "Poller started", slog.Duration("interval", p.interval))
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.spawn(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.spawn(ctx)
		}
	}
}

func (p *Poller) spawn(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_ = p.RunOnce(ctx)
	}()
}

// Stop cancels the loop and waits for in-flight cycles to return
func (p *Poller) Stop() {
	p.lifecycle.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	p.setRunning(false)
	p.logger.Info("Poller stopped")
}

// RunOnce performs a single fetch, extract and present cycle. Errors are
// logged and returned; the display is only touched on success.
func (p *Poller) RunOnce(ctx context.Context) error {
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := p.tracer.Start(ctx, "kpi.poll_cycle",
		trace.WithAttributes(attribute.String("kpi.source", p.source.Name())))
	defer span.End()

	attempt := time.Now()
	p.mu.Lock()
	p.status.LastAttempt = attempt
	p.mu.Unlock()

	grid, err := p.fetch(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		p.metrics.RecordPollCycle(ctx, p.source.Name(), false)
		p.recordFailure(err)
		p.logger.ErrorContext(ctx, "Poll cycle failed", slog.String("error", err.Error()))
		return err
	}

	ext, report := extract.ExtractWithReport(grid, p.extract)
	p.metrics.RecordExtractedRows(ctx, len(ext))
	span.SetAttributes(attribute.Int("kpi.rows", report.Rows), attribute.Int("kpi.matched", len(ext)))
	if len(report.Duplicates) > 0 {
		p.logger.DebugContext(ctx, "Duplicate KPI rows, later rows win", slog.Any("kpis", report.Duplicates))
	}

	res := p.applier.Apply(ctx, ext)
	p.metrics.RecordPollCycle(ctx, p.source.Name(), true)
	p.recordSuccess(ext)

	p.logger.InfoContext(ctx, "Poll cycle complete",
		slog.Int("rows", report.Rows),
		slog.Int("matched", len(ext)),
		slog.Int("cells", res.Cells),
		slog.Duration("duration", time.Since(attempt)))
	return nil
}

func (p *Poller) fetch(ctx context.Context) (domain.Grid, error) {
	ctx, span := p.tracer.Start(ctx, "kpi.fetch")
	defer span.End()

	start := time.Now()
	grid, err := p.source.FetchGrid(ctx)
	p.metrics.RecordFetch(ctx, p.source.Name(), time.Since(start))
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}
	return grid, err
}

func (p *Poller) recordFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Cycles++
	p.status.Failures++
	p.status.LastError = err.Error()
}

func (p *Poller) recordSuccess(ext domain.Extraction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Cycles++
	p.status.LastSuccess = time.Now()
	p.status.LastError = ""
	p.status.LastRows = len(ext)
	p.latest = ext
}

func (p *Poller) setRunning(running bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Running = running
}

// Status returns a copy of the current status
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Ready reports whether at least one cycle has succeeded
func (p *Poller) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.status.LastSuccess.IsZero()
}

// Latest returns the values of the most recent successful cycle
func (p *Poller) Latest() (domain.Extraction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return nil, false
	}
	out := make(domain.Extraction, len(p.latest))
	for k, v := range p.latest {
		out[k] = v
	}
	return out, true
}
