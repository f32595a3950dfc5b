package services

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"kpiboard/internal/config"
	"kpiboard/internal/extract"
	"kpiboard/internal/infrastructure"
	"kpiboard/internal/source"
)

// ValuesReader returns a spreadsheet range as the API delivered it
type ValuesReader interface {
	FetchValues(ctx context.Context) ([][]interface{}, error)
}

// ReaderFactory builds the ValuesReader on first use
type ReaderFactory func(ctx context.Context) (ValuesReader, error)

// SheetsFactory builds the authenticated Sheets reader from source settings.
// Settings are resolved on every call, so a missing or malformed credential
// is reported per request rather than at startup.
func SheetsFactory(cfg config.SourceConfig) ReaderFactory {
	return func(ctx context.Context) (ValuesReader, error) {
		key, err := cfg.ServiceAccountJSON()
		if err != nil {
			return nil, err
		}
		// The client outlives the request, so its token source must not inherit the cancellation.
		return source.NewSheetsSource(context.WithoutCancel(ctx), source.SheetsSettings{
			ServiceAccountKey: key,
			SpreadsheetID:     cfg.SpreadsheetID,
			Range:             cfg.SheetRange,
		})
	}
}

// KPIService serves the remote-read path of the KPI endpoint
type KPIService struct {
	factory ReaderFactory
	opts    extract.Options
	logger  *slog.Logger
	tracer  trace.Tracer

	mu     sync.Mutex
	reader ValuesReader
}

// KPIServiceOption configures a KPIService
type KPIServiceOption func(*KPIService)

// WithServiceLogger sets the service logger
func WithServiceLogger(l *slog.Logger) KPIServiceOption {
	return func(s *KPIService) { s.logger = l }
}

// WithServiceTracer sets the tracer used for read spans
func WithServiceTracer(t trace.Tracer) KPIServiceOption {
	return func(s *KPIService) { s.tracer = t }
}

// NewKPIService creates the service. The reader is built lazily and kept
// once construction succeeds.
func NewKPIService(factory ReaderFactory, opts extract.Options, options ...KPIServiceOption) *KPIService {
	s := &KPIService{
		factory: factory,
		opts:    opts,
		logger:  infrastructure.GetLogger(),
		tracer:  tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName),
	}
	for _, o := range options {
		o(s)
	}
	s.logger = infrastructure.ForComponent(s.logger, "kpi_service")
	return s
}

func (s *KPIService) getReader(ctx context.Context) (ValuesReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader != nil {
		return s.reader, nil
	}
	r, err := s.factory(ctx)
	if err != nil {
		return nil, err
	}
	s.reader = r
	return r, nil
}

// Read fetches the range and extracts every recognized KPI.
// Data holds the ten raw values per KPI; Rows is the untouched cell matrix.
func (s *KPIService) Read(ctx context.Context) (*source.KPIResponse, error) {
	ctx, span := s.tracer.Start(ctx, "kpi.read")
	defer span.End()

	reader, err := s.getReader(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "KPI source unavailable", slog.String("error", err.Error()))
		return nil, err
	}

	values, err := reader.FetchValues(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "KPI read failed", slog.String("error", err.Error()))
		return nil, err
	}

	ext, report := extract.ExtractWithReport(extract.GridFromValues(values), s.opts)
	span.SetAttributes(
		attribute.Int("kpi.rows", report.Rows),
		attribute.Int("kpi.matched", report.Matched),
	)

	data := make(map[string][]string, len(ext))
	for id, row := range ext {
		data[string(id)] = append([]string(nil), row[:]...)
	}

	s.logger.DebugContext(ctx, "KPI read complete",
		slog.Int("rows", report.Rows),
		slog.Int("matched", report.Matched),
		slog.Int("duplicates", len(report.Duplicates)))

	return &source.KPIResponse{OK: true, Data: data, Rows: values}, nil
}
