// Package services holds the request-scoped logic behind the HTTP handlers.
//
// # Available Services
//
//	- KPIService: reads the configured spreadsheet range on demand and
//	  returns the extracted KPI rows together with the raw cells
//	- HealthService: liveness, readiness and version reporting
//
// Services take their collaborators as small interfaces so handlers and
// tests can substitute them.
//
// # Error Handling
//
// KPIService returns errors wrapping the sentinels of internal/errors.
// Handlers map them onto the KPI endpoint's error codes with
// errors.WriteKPIError.
package services
