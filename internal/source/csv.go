package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"

	apperrors "kpiboard/internal/errors"
	"kpiboard/pkg/contracts/domain"
)

// CSVSource reads a publicly exported CSV document
type CSVSource struct {
	url   string
	fetch fetcher
}

// NewCSVSource creates a source for the CSV export at url
func NewCSVSource(url string, client *http.Client) *CSVSource {
	return &CSVSource{url: url, fetch: newFetcher(client)}
}

// Name implements GridSource
func (s *CSVSource) Name() string { return "csv" }

// FetchGrid downloads and parses the export. Blank lines are skipped and rows
// may have differing widths.
func (s *CSVSource) FetchGrid(ctx context.Context) (domain.Grid, error) {
	body, err := s.fetch.get(ctx, s.url, "text/csv")
	if err != nil {
		return nil, apperrors.Upstream(s.Name(), err)
	}

	grid, err := ParseCSV(body)
	if err != nil {
		return nil, apperrors.Parsing(s.Name(), err)
	}
	return grid, nil
}

// ParseCSV parses a delimited document into a grid
func ParseCSV(data []byte) (domain.Grid, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return domain.Grid(records), nil
}
