// Package exporter writes KPI tables as CSV or XLSX.
//
// A Sheet is a header plus records. It is built either from one poll cycle's
// extraction (FromExtraction) or from the current board (FromSnapshot) and
// encoded with EncodeCSV or EncodeXLSX.
//
// HistoryWriter appends one timestamped block of rows per poll cycle to a CSV
// file, or rewrites an XLSX workbook with the latest cycle.
//
// Example usage:
//
//	sheet := exporter.FromSnapshot(table.Snapshot())
//	err := exporter.Encode(w, exporter.FormatXLSX, sheet)
package exporter
