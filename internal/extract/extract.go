// Package extract turns a raw spreadsheet grid into per-KPI value rows.
package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"kpiboard/internal/classify"
	"kpiboard/pkg/contracts/domain"
)

// Options locates the label and the value window inside each grid row
type Options struct {
	LabelColumn int `yaml:"label_column" json:"label_column"`
	ValueStart  int `yaml:"value_start" json:"value_start"`
	Width       int `yaml:"width" json:"width"`
}

// DefaultOptions matches the sheet layout: label in column B, ten values from column C
func DefaultOptions() Options {
	return Options{
		LabelColumn: 1,
		ValueStart:  2,
		Width:       domain.SlotCount,
	}
}

func (o Options) width() int {
	if o.Width <= 0 || o.Width > domain.SlotCount {
		return domain.SlotCount
	}
	return o.Width
}

// Report summarizes what happened to each grid row during extraction
type Report struct {
	Rows       int            `json:"rows"`
	Short      int            `json:"short"`
	Skipped    int            `json:"skipped"`
	Matched    int            `json:"matched"`
	Duplicates []domain.KPIID `json:"duplicates,omitempty"`
}

// Extract classifies every row and collects the value window of each
// recognized KPI. Later rows overwrite earlier rows for the same KPI.
func Extract(grid domain.Grid, opts Options) domain.Extraction {
	out, _ := ExtractWithReport(grid, opts)
	return out
}

// ExtractWithReport is Extract plus a per-row accounting of the grid
func ExtractWithReport(grid domain.Grid, opts Options) (domain.Extraction, Report) {
	out := make(domain.Extraction)
	report := Report{Rows: len(grid)}
	width := opts.width()

	for _, raw := range grid {
		if len(raw) < 2 {
			report.Short++
			continue
		}

		label := cellAt(raw, opts.LabelColumn)
		id, ok := classify.Classify(label)
		if !ok {
			report.Skipped++
			continue
		}

		var values domain.ValueRow
		for i := 0; i < width; i++ {
			values[i] = cellAt(raw, opts.ValueStart+i)
		}

		if _, seen := out[id]; seen {
			report.Duplicates = append(report.Duplicates, id)
		}
		out[id] = values
		report.Matched++
	}

	return out, report
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// CellText stringifies a raw cell as delivered by a source API.
// A nil cell becomes the empty string.
func CellText(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(c), 'f', -1, 32)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case bool:
		return strconv.FormatBool(c)
	case json.Number:
		return c.String()
	default:
		return strings.TrimSpace(fmt.Sprint(c))
	}
}

// GridFromValues converts a loosely typed value matrix into a Grid
func GridFromValues(values [][]interface{}) domain.Grid {
	grid := make(domain.Grid, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = CellText(v)
		}
		grid = append(grid, cells)
	}
	return grid
}

// NormalizeValue prepares a value for display: surrounding quote characters
// are removed and a lone decimal comma becomes a period.
func NormalizeValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, `"'`)
	v = strings.TrimSpace(v)
	if strings.Contains(v, ",") && !strings.Contains(v, ".") {
		v = strings.ReplaceAll(v, ",", ".")
	}
	return v
}
