// Package config loads kpiboard settings.
//
// Values are layered, later layers winning:
//
//	1. built-in defaults (Default)
//	2. a YAML file (KPI_CONFIG_FILE, or config.yaml / configs/config.yaml)
//	3. environment variables, optionally seeded from a .env file
//
// Environment keys are prefixed with KPI and the section name, for example
// KPI_SERVER_PORT or KPI_POLLER_INTERVAL. The data source locators and
// credentials alone also accept a bare name when the prefixed key is unset:
//
//	SERVICE_ACCOUNT_KEY   service account JSON (or SERVICE_ACCOUNT_KEY_FILE)
//	SPREADSHEET_ID        spreadsheet to read
//	SHEET_RANGE           range expression, default Sheet1!A1:L100
//	ENDPOINT_URL          a kpiboard /api/kpi endpoint to poll instead
//	CSV_URL               a published CSV export to poll instead
//	XLSX_URL              a published .xlsx export (or local file) to poll instead
//	XLSX_SHEET            worksheet of XLSX_URL, default the first
//
// Missing source settings are not a load error. They surface per request as
// CONFIG_MISSING.
package config
