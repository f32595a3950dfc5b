package config

import "time"

const (
	AppName    = "kpiboard"
	AppVersion = "1.2.0"

	// EnvPrefix prefixes every environment key
	EnvPrefix = "KPI"

	DefaultSheetRange   = "Sheet1!A1:L100"
	DefaultPollInterval = 5 * time.Second
	DefaultHighlight    = 700 * time.Millisecond
	DefaultFetchTimeout = 15 * time.Second
	DefaultSelector     = "#tabla-kpi tbody tr"

	// SheetsReadOnlyScope is the only OAuth scope the service account needs
	SheetsReadOnlyScope = "https://www.googleapis.com/auth/spreadsheets.readonly"
)

// Source kinds accepted by SourceConfig.Kind
const (
	SourceAuto     = "auto"
	SourceSheets   = "sheets"
	SourceCSV      = "csv"
	SourceXLSX     = "xlsx"
	SourceEndpoint = "endpoint"
)
