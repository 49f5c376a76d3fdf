package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/config"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/http/handler"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Handlers groups the HTTP handlers mounted by the server
type Handlers struct {
	Sessions  *handler.SessionHandler
	Inventory *handler.InventoryHandler
	Barcode   *handler.BarcodeHandler
}

// Server represents the HTTP server
type Server struct {
	router        *chi.Mux
	config        *config.ServerConfig
	handlers      Handlers
	logger        *slog.Logger
	meterProvider metric.MeterProvider
	httpServer    *http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.ServerConfig,
	handlers Handlers,
	meterProvider metric.MeterProvider,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		config:        cfg,
		handlers:      handlers,
		logger:        logger,
		meterProvider: meterProvider,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler: s.instrument(),
	}

	return s
}

// Handler returns the routed handler without the otelhttp wrapper
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures the middleware chain
func (s *Server) setupMiddleware() {
	// Structured JSON logging middleware (replaces chimiddleware.Logger)
	s.router.Use(middleware.StructuredLogger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.RequestID)

	// Add HTTP route to context so all logs include it automatically
	s.router.Use(middleware.HTTPRouteContext())

	meter := s.meterProvider.Meter("inventory-scanner")
	s.router.Use(middleware.ActiveRequestsMiddleware(meter))
	if s.config.DurationMillis {
		s.router.Use(middleware.DurationMillisecondsMiddleware(meter))
	}
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handlers.Sessions.Open)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(middleware.SessionContext("id"))

			r.Get("/", s.handlers.Sessions.Get)
			r.Delete("/", s.handlers.Sessions.Close)
			r.Post("/start", s.handlers.Sessions.Start)
			r.Post("/capture", s.handlers.Sessions.Capture)
			r.Post("/upload", s.handlers.Sessions.Upload)
			r.Post("/symbol", s.handlers.Sessions.Symbol)
			r.Patch("/record", s.handlers.Sessions.EditRecord)
			r.Post("/commit", s.handlers.Sessions.Commit)
			r.Post("/restart", s.handlers.Sessions.Restart)
		})
	})

	s.router.Route("/inventory", func(r chi.Router) {
		r.Get("/", s.handlers.Inventory.ListItems)
		r.Get("/{symbol}", s.handlers.Inventory.GetItem)
		r.Put("/{symbol}", s.handlers.Inventory.UpsertItem)
	})

	s.router.Get("/lookup/{symbol}", s.handlers.Inventory.Lookup)
	s.router.Post("/api/barcode/scan", s.handlers.Barcode.Scan)

	// Health check endpoint
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint - exposes OpenTelemetry metrics
	s.router.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// Start starts the HTTP server and blocks until it stops. A graceful
// Shutdown makes it return nil.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		slog.String("address", s.httpServer.Addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// instrument wraps the entire router with otelhttp for automatic HTTP metrics and tracing
// This provides: http.server.request.duration, http.server.request.body.size, etc.
func (s *Server) instrument() http.Handler {
	return otelhttp.NewHandler(s.router, "http-server",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
		otelhttp.WithMeterProvider(s.meterProvider),
		otelhttp.WithMetricAttributesFn(func(r *http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{
				attribute.String("http.route", middleware.RoutePattern(r)),
			}
		}),
	)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
