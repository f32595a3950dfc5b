// Package app wires the KPI board together and owns its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, config file, .env and environment
//	2. Initialize logging and OpenTelemetry
//	3. Load the display table and create the presenter and websocket hub
//	4. Select the poll source; without one, polling is disabled
//	5. Build the KPI and health services, handlers and the chi router
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns once ctx is cancelled. The HTTP server drains active requests
// within the shutdown timeout, the poller waits for in-flight cycles, the hub
// closes every websocket and telemetry is flushed.
//
// A missing data source never prevents startup: the KPI endpoint reports
// CONFIG_MISSING per request and the poller stays off.
package app
