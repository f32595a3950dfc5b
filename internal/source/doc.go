// Package source fetches the KPI grid from wherever it lives.
//
// Every variant implements GridSource, so the extractor and the presenter
// never know whether cells came from an authenticated Sheets read, a public
// CSV export, an XLSX workbook or another board's /api/kpi endpoint. Plain
// HTTP fetches always bypass caches: a changing t=<unix millis> query
// parameter is attached and no-cache request headers are sent.
package source
