package source

import (
	"context"
	"net/http"

	"kpiboard/internal/config"
	apperrors "kpiboard/internal/errors"
	"kpiboard/internal/extract"
	"kpiboard/pkg/contracts/domain"
)

// Select builds the source the configuration asks for. With kind "auto" the
// first configured of endpoint_url, csv_url, xlsx_url and the Sheets settings wins.
func Select(ctx context.Context, cfg config.SourceConfig, client *http.Client) (GridSource, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.FetchTimeout}
	}

	kind := cfg.Kind
	if kind == "" || kind == config.SourceAuto {
		kind = autoKind(cfg)
	}

	switch kind {
	case config.SourceEndpoint:
		if cfg.EndpointURL == "" {
			return nil, apperrors.ConfigMissing("ENDPOINT_URL")
		}
		return NewEndpointSource(cfg.EndpointURL, client).WithLayout(extract.Options{
			LabelColumn: cfg.LabelColumn,
			ValueStart:  cfg.ValueStart,
			Width:       domain.SlotCount,
		}), nil
	case config.SourceCSV:
		if cfg.CSVURL == "" {
			return nil, apperrors.ConfigMissing("CSV_URL")
		}
		return NewCSVSource(cfg.CSVURL, client), nil
	case config.SourceXLSX:
		if cfg.XLSXURL == "" {
			return nil, apperrors.ConfigMissing("XLSX_URL")
		}
		return NewXLSXSource(cfg.XLSXURL, cfg.XLSXSheet, client), nil
	case config.SourceSheets:
		key, err := cfg.ServiceAccountJSON()
		if err != nil {
			return nil, err
		}
		return NewSheetsSource(ctx, SheetsSettings{
			ServiceAccountKey: key,
			SpreadsheetID:     cfg.SpreadsheetID,
			Range:             cfg.SheetRange,
		})
	default:
		return nil, apperrors.ConfigMissing("ENDPOINT_URL", "CSV_URL", "SPREADSHEET_ID")
	}
}

func autoKind(cfg config.SourceConfig) string {
	switch {
	case cfg.EndpointURL != "":
		return config.SourceEndpoint
	case cfg.CSVURL != "":
		return config.SourceCSV
	case cfg.XLSXURL != "":
		return config.SourceXLSX
	case cfg.SpreadsheetID != "" || cfg.ServiceAccountKey != "" || cfg.ServiceAccountKeyFile != "":
		return config.SourceSheets
	default:
		return ""
	}
}
