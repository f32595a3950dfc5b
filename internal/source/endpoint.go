package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperrors "kpiboard/internal/errors"
	"kpiboard/internal/extract"
	"kpiboard/pkg/contracts/domain"
)

// KPIResponse is the success body of the /api/kpi endpoint. Rows is the
// remote sheet in the remote board's own column layout.
type KPIResponse struct {
	OK   bool                `json:"ok"`
	Data map[string][]string `json:"data"`
	Rows [][]interface{}     `json:"rows"`
}

// EndpointSource reads another board's /api/kpi endpoint
type EndpointSource struct {
	url    string
	fetch  fetcher
	layout extract.Options
}

// NewEndpointSource creates a source for the KPI endpoint at url. The grid it
// returns uses the default column layout; see WithLayout.
func NewEndpointSource(url string, client *http.Client) *EndpointSource {
	return &EndpointSource{url: url, fetch: newFetcher(client), layout: extract.DefaultOptions()}
}

// WithLayout sets the column layout of the returned grid. It must match the
// options the grid is extracted with.
func (s *EndpointSource) WithLayout(layout extract.Options) *EndpointSource {
	s.layout = layout
	return s
}

// Name implements GridSource
func (s *EndpointSource) Name() string { return "endpoint" }

// FetchGrid rebuilds a grid from the remote board's data so that extracting it
// with the source's layout yields those values unchanged. The remote rows are
// not re-extracted since the remote board may use another layout.
func (s *EndpointSource) FetchGrid(ctx context.Context) (domain.Grid, error) {
	body, err := s.fetch.get(ctx, s.url, "application/json")
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			var remote apperrors.KPIErrorBody
			if json.Unmarshal([]byte(statusErr.Body), &remote) == nil && remote.Error != "" {
				err = fmt.Errorf("%w: remote error %s", statusErr, remote.Error)
			}
		}
		return nil, apperrors.Upstream(s.Name(), err)
	}

	var resp KPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Parsing(s.Name(), err)
	}
	if !resp.OK || resp.Data == nil {
		return nil, apperrors.Parsing(s.Name(), fmt.Errorf("bad api response"))
	}

	return GridFromData(resp.Data, s.layout), nil
}

// GridFromData lays extracted values out as grid rows in the given column
// layout, one row per known KPI present in data.
func GridFromData(data map[string][]string, layout extract.Options) domain.Grid {
	width := layout.Width
	if width <= 0 || width > domain.SlotCount {
		width = domain.SlotCount
	}
	cols := max(layout.LabelColumn+1, layout.ValueStart+width)

	grid := make(domain.Grid, 0, len(data))
	for _, id := range domain.AllKPIs() {
		values, ok := data[string(id)]
		if !ok {
			continue
		}
		row := make([]string, cols)
		for i := 0; i < width && i < len(values); i++ {
			row[layout.ValueStart+i] = values[i]
		}
		row[layout.LabelColumn] = id.Label()
		grid = append(grid, row)
	}
	return grid
}
