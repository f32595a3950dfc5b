package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kpiboard/internal/config"
	"kpiboard/internal/exporter"
	"kpiboard/internal/extract"
	"kpiboard/internal/infrastructure"
	"kpiboard/internal/poller"
	"kpiboard/internal/source"
	"kpiboard/pkg/contracts/domain"
)

var watchFlags struct {
	url         string
	kind        string
	xlsxSheet   string
	interval    time.Duration
	once        bool
	json        bool
	labelColumn int
	valueStart  int
	logLevel    string
	export      string
}

func bindFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&watchFlags.url, "url", "", "source URL: a board's /api/kpi, a CSV export or an .xlsx file")
	f.StringVar(&watchFlags.kind, "kind", config.SourceEndpoint, "how to read --url: endpoint, csv or xlsx")
	f.StringVar(&watchFlags.xlsxSheet, "sheet", "", "worksheet to read for --kind=xlsx (default first)")
	f.DurationVar(&watchFlags.interval, "interval", config.DefaultPollInterval, "poll interval")
	f.BoolVar(&watchFlags.once, "once", false, "read once and exit")
	f.BoolVar(&watchFlags.json, "json", false, "print JSON instead of a table")
	f.IntVar(&watchFlags.labelColumn, "label-column", -1, "zero-based label column (default from config)")
	f.IntVar(&watchFlags.valueStart, "value-start", -1, "zero-based first value column (default from config)")
	f.StringVar(&watchFlags.logLevel, "log-level", "warn", "log level written to stderr")
	f.StringVar(&watchFlags.export, "export", "", "also record every cycle to a .csv (appended) or .xlsx (latest) file")
}

// sourceConfig merges the flags over the loaded source configuration
func sourceConfig(base config.SourceConfig) (config.SourceConfig, error) {
	cfg := base
	if watchFlags.labelColumn >= 0 {
		cfg.LabelColumn = watchFlags.labelColumn
	}
	if watchFlags.valueStart >= 0 {
		cfg.ValueStart = watchFlags.valueStart
	}
	if watchFlags.url == "" {
		return cfg, nil
	}

	cfg.Kind = watchFlags.kind
	switch watchFlags.kind {
	case config.SourceEndpoint:
		cfg.EndpointURL = watchFlags.url
	case config.SourceCSV:
		cfg.CSVURL = watchFlags.url
	case config.SourceXLSX:
		cfg.XLSXURL = watchFlags.url
		cfg.XLSXSheet = watchFlags.xlsxSheet
	default:
		return cfg, fmt.Errorf("unsupported --kind %q for --url", watchFlags.kind)
	}
	return cfg, nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	srcCfg, err := sourceConfig(cfg.Source)
	if err != nil {
		return err
	}

	logger := infrastructure.NewLoggerTo(cmd.ErrOrStderr(), config.LoggingConfig{
		Level:  watchFlags.logLevel,
		Format: "text",
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := source.Select(ctx, srcCfg, &http.Client{Timeout: srcCfg.FetchTimeout})
	if err != nil {
		return fmt.Errorf("select source: %w", err)
	}

	printer := newPrinter(cmd.OutOrStdout(), watchFlags.json)
	if watchFlags.export != "" {
		history, err := exporter.NewHistoryWriter(watchFlags.export, logger)
		if err != nil {
			return err
		}
		printer.history = history
	}
	printer.logger = logger
	p := poller.New(src, printer,
		poller.WithInterval(watchFlags.interval),
		poller.WithExtractOptions(extract.Options{
			LabelColumn: srcCfg.LabelColumn,
			ValueStart:  srcCfg.ValueStart,
			Width:       domain.SlotCount,
		}),
		poller.WithLogger(logger),
	)

	if watchFlags.once {
		return p.RunOnce(ctx)
	}

	logger.Info("Watching KPI source",
		slog.String("source", src.Name()),
		slog.Duration("interval", watchFlags.interval))
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	p.Stop()
	return nil
}
