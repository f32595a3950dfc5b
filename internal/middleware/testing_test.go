package middleware

import "kpiboard/internal/config"

func testTelemetry() config.TelemetryConfig {
	return config.TelemetryConfig{
		Environment:    "test",
		TraceExporter:  "none",
		MetricsEnabled: true,
		SampleRatio:    1,
	}
}
