// Package http implements the HTTP handlers of the KPI board.
//
// Handlers stay thin: they parse the request, call a service or the display
// table, and format the response. Routing and middleware ordering live in
// internal/app.
//
// # Endpoints
//
//	GET     /api/kpi             remote read of the KPI rows ({ok, data, rows})
//	OPTIONS /api/kpi             CORS preflight, 204
//	GET     /api/kpi/rules       classification table
//	GET     /api/kpi/classify    classify ?label=
//	GET     /api/display         snapshot of the server-side KPI table
//	GET     /api/poller          state of the background poll loop
//	POST    /api/client-log      browser-side log entries
//	GET     /api/health[/ready|/live], /api/version
//	GET     /                    the board page
//	GET     /ws                  kpi:update stream
//
// # Errors
//
// The KPI endpoint answers failures with status 500 and {"error": code}
// where code is CONFIG_MISSING, INVALID_SERVICE_KEY or the failure message.
// Every other endpoint uses RFC 7807 problem documents.
package http
