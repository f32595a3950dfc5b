package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "kpiboard/internal/errors"
	"kpiboard/pkg/contracts/domain"
)

// XLSXSource reads one worksheet of an Excel workbook, either downloaded over
// HTTP(S) or opened from a local path.
type XLSXSource struct {
	location string
	sheet    string
	fetch    fetcher
}

// NewXLSXSource creates a workbook source. An empty sheet selects the first worksheet.
func NewXLSXSource(location, sheet string, client *http.Client) *XLSXSource {
	return &XLSXSource{location: location, sheet: sheet, fetch: newFetcher(client)}
}

// Name implements GridSource
func (s *XLSXSource) Name() string { return "xlsx" }

// FetchGrid implements GridSource
func (s *XLSXSource) FetchGrid(ctx context.Context) (domain.Grid, error) {
	var (
		data []byte
		err  error
	)
	if isRemote(s.location) {
		data, err = s.fetch.get(ctx, s.location, "")
	} else {
		data, err = os.ReadFile(s.location)
	}
	if err != nil {
		return nil, apperrors.Upstream(s.Name(), err)
	}

	grid, err := ParseXLSX(bytes.NewReader(data), s.sheet)
	if err != nil {
		return nil, apperrors.Parsing(s.Name(), err)
	}
	return grid, nil
}

// ParseXLSX reads the rows of sheet from a workbook stream
func ParseXLSX(r io.Reader, sheet string) (domain.Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return domain.Grid(rows), nil
}

func isRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
