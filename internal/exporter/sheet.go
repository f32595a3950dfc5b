package exporter

import (
	"time"

	"kpiboard/internal/display"
	"kpiboard/internal/extract"
	"kpiboard/pkg/contracts/domain"
)

// Sheet is a tabular export: one header row and the records under it
type Sheet struct {
	Name    string
	Headers []string
	Records [][]string
}

// Header returns the export columns: time, kpi, label and the ten value slots
func Header() []string {
	return append([]string{"time", "kpi", "label"}, domain.ValueSlots()...)
}

func stamp(at time.Time) string {
	if at.IsZero() {
		return ""
	}
	return at.UTC().Format(time.RFC3339)
}

// FromExtraction lays one cycle out in KPI order. KPIs missing from ext are skipped.
// Values are normalized the same way the board shows them.
func FromExtraction(ext domain.Extraction, at time.Time) Sheet {
	sheet := Sheet{Name: "KPI", Headers: Header()}
	ts := stamp(at)
	for _, id := range domain.AllKPIs() {
		values, ok := ext[id]
		if !ok {
			continue
		}
		record := make([]string, 0, 3+domain.SlotCount)
		record = append(record, ts, string(id), id.Label())
		for _, v := range values {
			record = append(record, extract.NormalizeValue(v))
		}
		sheet.Records = append(sheet.Records, record)
	}
	return sheet
}

// FromSnapshot lays the board out row by row, keeping its own labels.
// Rows shorter than ten cells are padded.
func FromSnapshot(snap display.Snapshot) Sheet {
	sheet := Sheet{Name: "KPI", Headers: Header()}
	ts := stamp(snap.UpdatedAt)
	for _, r := range snap.Rows {
		record := make([]string, 3, 3+domain.SlotCount)
		record[0], record[1], record[2] = ts, string(r.KPI), r.Label
		for i := 0; i < domain.SlotCount; i++ {
			v := ""
			if i < len(r.Values) {
				v = r.Values[i]
			}
			record = append(record, v)
		}
		sheet.Records = append(sheet.Records, record)
	}
	return sheet
}
