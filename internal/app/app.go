package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"kpiboard/internal/config"
	apperrors "kpiboard/internal/errors"
	"kpiboard/internal/display"
	"kpiboard/internal/extract"
	"kpiboard/internal/infrastructure"
	customMiddleware "kpiboard/internal/middleware"
	"kpiboard/internal/poller"
	"kpiboard/internal/presenter"
	"kpiboard/internal/services"
	"kpiboard/internal/source"
	handlers "kpiboard/internal/transport/http"
	ws "kpiboard/internal/websocket"
	"kpiboard/pkg/contracts"
	"kpiboard/pkg/contracts/domain"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Router        *chi.Mux
	Server        *http.Server

	Table        *display.Table
	Presenter    *presenter.Presenter
	WebSocketHub *ws.Hub
	// Poller is nil when no poll source is configured or polling is disabled
	Poller *poller.Poller

	KPIService    *services.KPIService
	HealthService *services.HealthService
}

// NewApplication loads configuration and logging and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := a.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	a.createServer()

	return a, nil
}

func (a *Application) extractOptions() extract.Options {
	return extract.Options{
		LabelColumn: a.Config.Source.LabelColumn,
		ValueStart:  a.Config.Source.ValueStart,
		Width:       domain.SlotCount,
	}
}

// initializeServices creates the display pipeline and the services
func (a *Application) initializeServices() error {
	table, err := display.Open(a.Config.Display.TemplatePath, a.Config.Display.Selector)
	if err != nil {
		return fmt.Errorf("failed to load display: %w", err)
	}
	a.Table = table
	a.Logger.Info("Display loaded",
		slog.String("template", a.Config.Display.TemplatePath),
		slog.Any("rows", table.Labels()))

	a.WebSocketHub = ws.NewHub(a.Logger)
	a.WebSocketHub.SetHeartbeat(a.Config.WebSocket.PingPeriod, a.Config.WebSocket.PongWait)

	a.Presenter = presenter.New(table,
		presenter.WithLogger(a.Logger),
		presenter.WithHighlight(a.Config.Poller.Highlight),
		presenter.WithMetrics(a.OTelProviders.Metrics),
		presenter.WithNotifier(a.WebSocketHub),
	)

	if err := a.initializePoller(); err != nil {
		return err
	}

	a.KPIService = services.NewKPIService(
		services.SheetsFactory(a.Config.Source),
		a.extractOptions(),
		services.WithServiceLogger(a.Logger),
		services.WithServiceTracer(a.OTelProviders.Tracer),
	)

	// A nil *poller.Poller must reach the health service as a nil interface.
	var pollStatus services.PollStatusProvider
	if a.Poller != nil {
		pollStatus = a.Poller
	}
	a.HealthService = services.NewHealthService(pollStatus, a.WebSocketHub, a.Logger)
	return nil
}

// initializePoller selects the poll source. Configuration problems disable
// polling instead of failing startup.
func (a *Application) initializePoller() error {
	if !a.Config.Poller.Enabled {
		a.Logger.Info("Polling disabled by configuration")
		return nil
	}

	client := &http.Client{Timeout: a.Config.Source.FetchTimeout}
	src, err := source.Select(context.Background(), a.Config.Source, client)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeConfig) || apperrors.IsType(err, apperrors.ErrTypeCredential) {
			a.Logger.Warn("Polling disabled: no usable source",
				slog.String("error_code", apperrors.Code(err)),
				slog.String("error", err.Error()))
			return nil
		}
		return fmt.Errorf("failed to create poll source: %w", err)
	}

	a.Poller = poller.New(src, a.Presenter,
		poller.WithInterval(a.Config.Poller.Interval),
		poller.WithExtractOptions(a.extractOptions()),
		poller.WithLogger(a.Logger),
		poller.WithMetrics(a.OTelProviders.Metrics),
		poller.WithTracer(a.OTelProviders.Tracer),
	)
	a.Logger.Info("Poll source selected",
		slog.String("source", src.Name()),
		slog.Duration("interval", a.Config.Poller.Interval))
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	errorHandler := apperrors.NewErrorHandler(a.Logger, false)

	kpiHandler := handlers.NewKPIHandler(a.KPIService, a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	clientLogHandler := handlers.NewClientLogHandler(a.Logger, errorHandler)
	wsHandler := handlers.NewWebSocketHandler(a.WebSocketHub,
		a.Config.WebSocket.ReadBufferSize, a.Config.WebSocket.WriteBufferSize,
		a.Config.Security.AllowedOrigins, a.Logger)

	var pollStatus handlers.PollStatusProvider
	if a.Poller != nil {
		pollStatus = a.Poller
	}
	displayHandler := handlers.NewDisplayHandler(a.Table, pollStatus, a.Logger)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return err
	}

	// The remote read spends upstream quota, so only the KPI routes are limited.
	var kpiLimits []func(http.Handler) http.Handler
	if rl := a.Config.Security.RateLimit; rl.Enabled {
		kpiLimits = append(kpiLimits, customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
	}

	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	// The websocket route stays outside the group so nothing buffers the upgrade.
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Get("/ws", wsHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		r.Get("/", displayHandler.Page)

		r.Route("/api", func(r chi.Router) {
			r.Mount("/kpi", kpiHandler.Routes(kpiLimits...))

			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
					AllowedOrigins: a.Config.Security.AllowedOrigins,
					Logger:         a.Logger,
				}))
				r.Use(render.SetContentType(render.ContentTypeJSON))

				r.Get("/health", healthHandler.HealthCheck)
				r.Get("/health/ready", healthHandler.ReadinessCheck)
				r.Get("/health/live", healthHandler.LivenessCheck)
				r.Get("/version", healthHandler.Version)

				r.Get("/display", displayHandler.Snapshot)
				r.Get("/display/export", displayHandler.Export)
				r.Get("/poller", displayHandler.PollerStatus)
				r.Post("/client-log", clientLogHandler.Handle)
			})
		})
	})

	r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)

	a.Router = r
	return nil
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run listens on the configured address and serves until ctx is cancelled
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the hub, the poller and the HTTP server on ln. It returns when
// ctx is cancelled or the server fails, after shutting everything down.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	a.WebSocketHub.Start()
	if a.Poller != nil {
		if err := a.Poller.Start(gctx); err != nil {
			a.WebSocketHub.Stop()
			_ = ln.Close()
			return fmt.Errorf("failed to start poller: %w", err)
		}
	}

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", ln.Addr().String()),
		slog.Bool("polling", a.Poller != nil))

	g.Go(func() error {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.Poller != nil {
		a.Poller.Stop()
	}
	a.WebSocketHub.Stop()

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}
