package exporter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// EncodeXLSX writes the sheet as a single-worksheet workbook with a bold,
// frozen header row. Cells that parse as numbers are stored as numbers.
func EncodeXLSX(w io.Writer, sheet Sheet) error {
	f, err := buildWorkbook(sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to path
func SaveXLSX(path string, sheet Sheet) error {
	f, err := buildWorkbook(sheet)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func buildWorkbook(sheet Sheet) (*excelize.File, error) {
	name := sheet.Name
	if name == "" {
		name = "Sheet1"
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name worksheet: %w", err)
	}

	if err := writeRow(f, name, 1, toCells(sheet.Headers, false)); err != nil {
		f.Close()
		return nil, err
	}
	for i, record := range sheet.Records {
		if err := writeRow(f, name, i+2, toCells(record, true)); err != nil {
			f.Close()
			return nil, err
		}
	}

	if len(sheet.Headers) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err == nil {
			end, _ := excelize.CoordinatesToCellName(len(sheet.Headers), 1)
			_ = f.SetCellStyle(name, "A1", end, style)
		}
		_ = f.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func toCells(values []string, numeric bool) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
		if !numeric || v == "" {
			continue
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			out[i] = n
		}
	}
	return out
}
