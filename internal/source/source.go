package source

import (
	"context"

	"kpiboard/pkg/contracts/domain"
)

// GridSource produces one grid of text cells per call
type GridSource interface {
	FetchGrid(ctx context.Context) (domain.Grid, error)
	Name() string
}
