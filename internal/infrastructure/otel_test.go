package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"kpiboard/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestInitializeOTel_MetricsExposed(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{
		Environment:    "test",
		TraceExporter:  "none",
		MetricsEnabled: true,
		SampleRatio:    1,
	}, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.MeterProvider)
	require.NotNil(t, providers.Metrics)
	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)

	ctx := context.Background()
	providers.Metrics.RecordPollCycle(ctx, "csv", true)
	providers.Metrics.RecordPollCycle(ctx, "csv", false)
	providers.Metrics.RecordFetch(ctx, "csv", 120*time.Millisecond)
	providers.Metrics.RecordDisplayMiss(ctx, "ltir")
	providers.Metrics.RecordExtractedRows(ctx, 7)

	body := scrape(t, providers.PrometheusHTTP)
	assert.Contains(t, body, "kpi_poll_cycles_total")
	assert.Contains(t, body, `result="success"`)
	assert.Contains(t, body, `result="failure"`)
	assert.Contains(t, body, "kpi_fetch_duration_seconds")
	assert.Contains(t, body, "kpi_display_misses_total")
	assert.Contains(t, body, "kpi_extracted_rows")
}

func TestInitializeOTel_RepeatedInitDoesNotCollide(t *testing.T) {
	cfg := config.TelemetryConfig{MetricsEnabled: true, SampleRatio: 1}

	first, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	defer first.Shutdown(context.Background())

	second, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	defer second.Shutdown(context.Background())

	second.Metrics.RecordPollCycle(context.Background(), "sheets", true)
	assert.Contains(t, scrape(t, second.PrometheusHTTP), "kpi_poll_cycles_total")
	assert.NotContains(t, scrape(t, first.PrometheusHTTP), "kpi_poll_cycles_total{")
}

func TestInitializeOTel_MetricsDisabled(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{TraceExporter: "none"}, quietLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.MeterProvider)
	require.NotNil(t, providers.Metrics)
	providers.Metrics.RecordPollCycle(context.Background(), "csv", true)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_UnsupportedTraceExporter(t *testing.T) {
	_, err := InitializeOTel(config.TelemetryConfig{TraceExporter: "zipkin"}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestKPIMetrics_NilSafe(t *testing.T) {
	var m *KPIMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordPollCycle(ctx, "csv", true)
		m.RecordFetch(ctx, "csv", time.Second)
		m.RecordDisplayMiss(ctx, "plan")
		m.RecordExtractedRows(ctx, 3)
	})

	assert.NotPanics(t, func() {
		NoopKPIMetrics().RecordPollCycle(ctx, "csv", false)
	})
}

func TestTraceIDFromContext(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "poll")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))
}

func TestRecordError(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "fetch")
	assert.NotPanics(t, func() {
		RecordError(ctx, errors.New("upstream down"))
	})
	span.End()

	assert.NotPanics(t, func() {
		RecordError(context.Background(), errors.New("no span"))
	})
}
