package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"kpiboard/internal/exporter"
	"kpiboard/internal/extract"
	"kpiboard/internal/presenter"
	"kpiboard/pkg/contracts/domain"
)

// printer is the poller's applier for terminal output
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	json    bool
	now     func() time.Time
	history *exporter.HistoryWriter
	logger  *slog.Logger
}

func newPrinter(out io.Writer, asJSON bool) *printer {
	return &printer{out: out, json: asJSON, now: time.Now, logger: slog.Default()}
}

// jsonLine is one JSON output record
type jsonLine struct {
	Time string              `json:"time"`
	Data map[string][]string `json:"data"`
}

// Apply prints one cycle. Cycles may finish concurrently, so output is serialized.
func (p *printer) Apply(ctx context.Context, ext domain.Extraction) presenter.Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.history != nil {
		if err := p.history.Record(ext, p.now()); err != nil {
			p.logger.WarnContext(ctx, "Failed to record cycle",
				slog.String("path", p.history.Path()),
				slog.String("error", err.Error()))
		}
	}

	var res presenter.Result
	rows := make(map[string][]string, len(ext))
	for _, id := range domain.AllKPIs() {
		values, ok := ext[id]
		if !ok {
			res.Missing = append(res.Missing, id)
			continue
		}
		normalized := make([]string, len(values))
		for i, v := range values {
			normalized[i] = extract.NormalizeValue(v)
		}
		rows[string(id)] = normalized
		res.Updated = append(res.Updated, id)
		res.Cells += len(normalized)
	}

	if p.json {
		_ = json.NewEncoder(p.out).Encode(jsonLine{
			Time: p.now().Format(time.RFC3339),
			Data: rows,
		})
		return res
	}

	w := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "KPI\t%s\n", strings.Join(domain.ValueSlots(), "\t"))
	for _, id := range domain.AllKPIs() {
		values, ok := rows[string(id)]
		if !ok {
			fmt.Fprintf(w, "%s\t%s\n", id.Label(), strings.TrimSuffix(strings.Repeat("-\t", domain.SlotCount), "\t"))
			continue
		}
		cells := make([]string, len(values))
		for i, v := range values {
			if v == "" {
				v = "-"
			}
			cells[i] = v
		}
		fmt.Fprintf(w, "%s\t%s\n", id.Label(), strings.Join(cells, "\t"))
	}
	_ = w.Flush()
	fmt.Fprintf(p.out, "updated %s\n\n", p.now().Format("15:04:05"))
	return res
}
