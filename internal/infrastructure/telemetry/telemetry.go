package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mrops-br/inventory-scanner/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Telemetry holds all OpenTelemetry components
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Logger         *slog.Logger

	conn *grpc.ClientConn
}

// New picks the exporting or the no-op telemetry based on configuration
func New(cfg *config.OTLPConfig) (*Telemetry, error) {
	if !cfg.Enabled {
		return NewNoOpTelemetry(cfg)
	}
	return NewTelemetry(cfg)
}

// NewTelemetry initializes all OpenTelemetry components
func NewTelemetry(cfg *config.OTLPConfig) (*Telemetry, error) {
	ctx := context.Background()

	// Initialize logger first for debugging
	logger := initLogger(cfg)

	logger.Info("Initializing OpenTelemetry",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("service_name", cfg.ServiceName),
	)

	conn, err := grpc.NewClient(cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	tp, err := initTracerProvider(ctx, conn, res)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logger.Info("Tracer provider initialized successfully")

	mp, err := initMeterProvider(ctx, cfg, conn, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetMeterProvider(mp)
	logger.Info("Meter provider initialized successfully (OTLP + Prometheus exporters)")

	return &Telemetry{
		TracerProvider: tp,
		MeterProvider:  mp,
		Logger:         logger,
		conn:           conn,
	}, nil
}

// NewNoOpTelemetry creates a telemetry instance that exports nothing over OTLP
func NewNoOpTelemetry(cfg *config.OTLPConfig) (*Telemetry, error) {
	logger := initLogger(cfg)

	// Tracer provider without a span processor records nothing
	tp := sdktrace.NewTracerProvider()

	// Prometheus metrics still work
	mp, err := initPrometheusOnlyMeterProvider(nil)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	logger.Info("Telemetry initialized in no-op mode (export disabled)")

	return &Telemetry{
		TracerProvider: tp,
		MeterProvider:  mp,
		Logger:         logger,
	}, nil
}

// Shutdown gracefully shuts down all telemetry components. Every component
// is shut down even when an earlier one fails.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.Logger.Info("Shutting down OpenTelemetry")

	var errs []error
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		t.Logger.Error("Failed to shutdown tracer provider", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("tracer provider: %w", err))
	}

	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		t.Logger.Error("Failed to shutdown meter provider", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("meter provider: %w", err))
	}

	if t.conn != nil {
		if err := t.conn.Close(); err != nil {
			t.Logger.Error("Failed to close gRPC connection", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("grpc connection: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	t.Logger.Info("OpenTelemetry shutdown successfully")
	return nil
}
