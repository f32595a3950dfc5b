// Package presenter writes extracted KPI values into the display table.
package presenter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"kpiboard/internal/classify"
	"kpiboard/internal/display"
	"kpiboard/internal/extract"
	"kpiboard/internal/infrastructure"
	"kpiboard/pkg/contracts/domain"
)

// Notifier is told about the values written in each cycle
type Notifier interface {
	NotifyKPIUpdate(rows map[domain.KPIID][]string)
}

// Result summarizes one Apply call
type Result struct {
	Updated []domain.KPIID `json:"updated"`
	Missing []domain.KPIID `json:"missing"`
	Cells   int            `json:"cells"`
}

type cellKey struct {
	row, slot int
}

// Presenter owns all writes to a display table
type Presenter struct {
	table     *display.Table
	highlight time.Duration
	logger    *slog.Logger
	metrics   *infrastructure.KPIMetrics
	notifier  Notifier

	mu         sync.Mutex
	generation map[cellKey]uint64
}

// Option configures a Presenter
type Option func(*Presenter)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Presenter) { p.logger = l }
}

// WithHighlight sets how long an updated cell stays highlighted. Zero disables highlighting.
func WithHighlight(d time.Duration) Option {
	return func(p *Presenter) { p.highlight = d }
}

// WithMetrics sets the instruments used to count display misses
func WithMetrics(m *infrastructure.KPIMetrics) Option {
	return func(p *Presenter) { p.metrics = m }
}

// WithNotifier sets who gets told about updates
func WithNotifier(n Notifier) Option {
	return func(p *Presenter) { p.notifier = n }
}

// New creates a presenter for table
func New(table *display.Table, opts ...Option) *Presenter {
	p := &Presenter{
		table:      table,
		logger:     slog.Default(),
		generation: make(map[cellKey]uint64),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = infrastructure.ForComponent(p.logger, "presenter")
	return p
}

// Table returns the display table the presenter writes to
func (p *Presenter) Table() *display.Table {
	return p.table
}

// rowIndex classifies every display row label. When two rows share a KPI the later one wins.
func (p *Presenter) rowIndex() map[domain.KPIID]int {
	index := make(map[domain.KPIID]int)
	for i, label := range p.table.Labels() {
		if id, ok := classify.Classify(label); ok {
			index[id] = i
		}
	}
	return index
}

// Apply writes every extracted KPI into its display row. KPIs without a
// display row are logged and skipped.
func (p *Presenter) Apply(ctx context.Context, ext domain.Extraction) Result {
	index := p.rowIndex()
	var res Result
	pushed := make(map[domain.KPIID][]string, len(ext))

	for _, id := range domain.AllKPIs() {
		values, ok := ext[id]
		if !ok {
			continue
		}

		normalized := make([]string, domain.SlotCount)
		for i, v := range values {
			normalized[i] = extract.NormalizeValue(v)
		}
		pushed[id] = normalized

		rowIdx, ok := index[id]
		if !ok {
			p.logger.WarnContext(ctx, "No display row for KPI", slog.String("kpi", string(id)))
			p.metrics.RecordDisplayMiss(ctx, string(id))
			res.Missing = append(res.Missing, id)
			continue
		}

		for slot, v := range normalized {
			if !p.table.SetCell(rowIdx, slot, v) {
				continue
			}
			res.Cells++
			p.flash(rowIdx, slot)
		}
		res.Updated = append(res.Updated, id)
	}

	if p.notifier != nil && len(pushed) > 0 {
		p.notifier.NotifyKPIUpdate(pushed)
	}

	p.logger.DebugContext(ctx, "Display updated",
		slog.Int("updated", len(res.Updated)),
		slog.Int("missing", len(res.Missing)),
		slog.Int("cells", res.Cells))
	return res
}

// flash highlights a cell and clears it after the highlight delay. A newer
// flash on the same cell extends the highlight.
func (p *Presenter) flash(rowIdx, slot int) {
	if p.highlight <= 0 {
		return
	}

	key := cellKey{row: rowIdx, slot: slot}
	p.mu.Lock()
	p.generation[key]++
	gen := p.generation[key]
	p.table.SetHighlight(rowIdx, slot, true)
	p.mu.Unlock()

	time.AfterFunc(p.highlight, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.generation[key] == gen {
			p.table.SetHighlight(rowIdx, slot, false)
		}
	})
}
