// Package display holds the server-side model of the KPI table.
//
// The board is an ordinary HTML document. Rows are located with a CSS
// selector, each row is named by its first th cell and its td cells are the
// value slots in left-to-right order. Every classified row is tagged with a
// data-kpi attribute so the browser can apply pushed updates.
package display

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"kpiboard/internal/classify"
	"kpiboard/pkg/contracts/domain"
)

// HighlightClass is set on a cell while its highlight is active
const HighlightClass = "kpi-flash"

//go:embed templates/kpi.html
var templates embed.FS

// row is one display row and its value cells
type row struct {
	label string
	tr    *goquery.Selection
	cells []*goquery.Selection
}

// Table is the mutable KPI table. All methods are safe for concurrent use.
type Table struct {
	mu        sync.RWMutex
	doc       *goquery.Document
	rows      []*row
	updatedAt time.Time
}

// RowSnapshot is the read-only state of one display row
type RowSnapshot struct {
	Label       string       `json:"label"`
	KPI         domain.KPIID `json:"kpi,omitempty"`
	Values      []string     `json:"values"`
	Highlighted []bool       `json:"highlighted"`
}

// Snapshot is the read-only state of the whole table
type Snapshot struct {
	Rows      []RowSnapshot `json:"rows"`
	UpdatedAt time.Time     `json:"updated_at,omitempty"`
}

// Load parses an HTML document and indexes the rows matched by selector.
// Rows without a th cell are ignored.
func Load(r io.Reader, selector string) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	t := &Table{doc: doc}
	doc.Find(selector).Each(func(_ int, tr *goquery.Selection) {
		th := tr.Find("th").First()
		if th.Length() == 0 {
			return
		}
		label := strings.TrimSpace(th.Text())

		rw := &row{label: label, tr: tr}
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			rw.cells = append(rw.cells, td)
		})
		if id, ok := classify.Classify(label); ok {
			tr.SetAttr("data-kpi", string(id))
		}
		t.rows = append(t.rows, rw)
	})

	if len(t.rows) == 0 {
		return nil, fmt.Errorf("no rows match selector %q", selector)
	}
	return t, nil
}

// LoadFile loads a board template from disk
func LoadFile(path, selector string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open display template: %w", err)
	}
	defer f.Close()
	return Load(f, selector)
}

// Default loads the built-in board
func Default(selector string) (*Table, error) {
	data, err := templates.ReadFile("templates/kpi.html")
	if err != nil {
		return nil, err
	}
	return Load(bytes.NewReader(data), selector)
}

// Open loads path when set, otherwise the built-in board
func Open(path, selector string) (*Table, error) {
	if path == "" {
		return Default(selector)
	}
	return LoadFile(path, selector)
}

// Labels returns the row labels in document order
func (t *Table) Labels() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.label
	}
	return out
}

// CellCount returns how many value cells the row has
func (t *Table) CellCount(rowIdx int) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if rowIdx < 0 || rowIdx >= len(t.rows) {
		return 0
	}
	return len(t.rows[rowIdx].cells)
}

// SetCell replaces the text of one cell and reports whether the cell exists
func (t *Table) SetCell(rowIdx, slot int, value string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cell := t.cell(rowIdx, slot)
	if cell == nil {
		return false
	}
	cell.SetText(value)
	t.updatedAt = time.Now()
	return true
}

// SetHighlight toggles the highlight class on one cell
func (t *Table) SetHighlight(rowIdx, slot int, on bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cell := t.cell(rowIdx, slot)
	if cell == nil {
		return false
	}
	if on {
		cell.AddClass(HighlightClass)
	} else {
		cell.RemoveClass(HighlightClass)
	}
	return true
}

func (t *Table) cell(rowIdx, slot int) *goquery.Selection {
	if rowIdx < 0 || rowIdx >= len(t.rows) {
		return nil
	}
	cells := t.rows[rowIdx].cells
	if slot < 0 || slot >= len(cells) {
		return nil
	}
	return cells[slot]
}

// Values returns the text of every value cell of a row
func (t *Table) Values(rowIdx int) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if rowIdx < 0 || rowIdx >= len(t.rows) {
		return nil
	}
	cells := t.rows[rowIdx].cells
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.Text()
	}
	return out
}

// Snapshot copies the current table state
func (t *Table) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Snapshot{Rows: make([]RowSnapshot, 0, len(t.rows)), UpdatedAt: t.updatedAt}
	for _, r := range t.rows {
		rs := RowSnapshot{
			Label:       r.label,
			Values:      make([]string, len(r.cells)),
			Highlighted: make([]bool, len(r.cells)),
		}
		if id, ok := classify.Classify(r.label); ok {
			rs.KPI = id
		}
		for i, c := range r.cells {
			rs.Values[i] = c.Text()
			rs.Highlighted[i] = c.HasClass(HighlightClass)
		}
		snap.Rows = append(snap.Rows, rs)
	}
	return snap
}

// Render writes the whole document as HTML
func (t *Table) Render(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return goquery.Render(w, t.doc.Selection)
}
