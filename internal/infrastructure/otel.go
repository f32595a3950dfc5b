package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"kpiboard/internal/config"
)

const (
	ServiceName = config.AppName
	MeterName   = "kpiboard"
)

// Poll cycle outcomes used as the result attribute
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *KPIMetrics
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics from the telemetry config.
// Disabled parts fall back to no-op implementations so callers never need nil checks.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}
	ctx := context.Background()

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	if err := initializeTracing(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if cfg.MetricsEnabled {
		if err := initializeMetrics(ctx, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	} else {
		providers.PrometheusHTTP = http.NotFoundHandler()
	}

	providers.Metrics, err = NewKPIMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create kpi metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled),
		slog.String("environment", cfg.Environment))

	return providers, nil
}

func createResource(cfg config.TelemetryConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

func initializeTracing(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.TraceExporter {
	case "", "none":
		return nil
	case "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

// initializeMetrics wires the otel Prometheus exporter to a private registry
// so that repeated initialization never collides on the default registerer.
func initializeMetrics(ctx context.Context, res *resource.Resource, providers *OTelProviders) error {
	registry := prom.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	otel.SetMeterProvider(mp)

	providers.Logger.InfoContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// KPIMetrics holds the dashboard's instruments
type KPIMetrics struct {
	PollCycles    metric.Int64Counter
	FetchDuration metric.Float64Histogram
	DisplayMisses metric.Int64Counter
	ExtractedRows metric.Int64Gauge
}

// NewKPIMetrics creates the dashboard instruments on the given meter
func NewKPIMetrics(meter metric.Meter) (*KPIMetrics, error) {
	pollCycles, err := meter.Int64Counter(
		"kpi_poll_cycles_total",
		metric.WithDescription("Total number of poll cycles by result"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"kpi_fetch_duration_seconds",
		metric.WithDescription("Duration of a grid fetch in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	displayMisses, err := meter.Int64Counter(
		"kpi_display_misses_total",
		metric.WithDescription("Extracted KPIs with no matching display row"),
	)
	if err != nil {
		return nil, err
	}

	extractedRows, err := meter.Int64Gauge(
		"kpi_extracted_rows",
		metric.WithDescription("KPI rows extracted in the latest cycle"),
	)
	if err != nil {
		return nil, err
	}

	return &KPIMetrics{
		PollCycles:    pollCycles,
		FetchDuration: fetchDuration,
		DisplayMisses: displayMisses,
		ExtractedRows: extractedRows,
	}, nil
}

// NoopKPIMetrics returns instruments that record nothing
func NoopKPIMetrics() *KPIMetrics {
	m, _ := NewKPIMetrics(metricnoop.NewMeterProvider().Meter(MeterName))
	return m
}

// RecordPollCycle counts one finished poll cycle
func (m *KPIMetrics) RecordPollCycle(ctx context.Context, source string, success bool) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	m.PollCycles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
		attribute.String("source", source),
	))
}

// RecordFetch records how long a fetch took
func (m *KPIMetrics) RecordFetch(ctx context.Context, source string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("source", source)))
}

// RecordDisplayMiss counts a KPI that had no display row
func (m *KPIMetrics) RecordDisplayMiss(ctx context.Context, kpi string) {
	if m == nil {
		return
	}
	m.DisplayMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("kpi", kpi)))
}

// RecordExtractedRows sets the number of rows extracted in the latest cycle
func (m *KPIMetrics) RecordExtractedRows(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.ExtractedRows.Record(ctx, int64(n))
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the otel trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}
