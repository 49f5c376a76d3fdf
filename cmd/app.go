package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mrops-br/inventory-scanner/internal/app/service"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/camera"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/catalog"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/config"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/decoder"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/repository"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "inventory-scanner"

// application wires the collaborators shared by every command
type application struct {
	telem     *telemetry.Telemetry
	tracer    trace.Tracer
	meter     metric.Meter
	logger    *slog.Logger
	store     io.Closer
	lookup    *service.LookupService
	inventory *service.InventoryService
	pipeline  service.ScanPipeline
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	telem, err := telemetry.New(&cfg.OTLP)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	tracer := telem.TracerProvider.Tracer(instrumentationName)
	meter := telem.MeterProvider.Meter(instrumentationName)
	logger := telem.Logger

	repo, store, err := repository.NewByEngine(ctx, &cfg.Store, tracer, logger)
	if err != nil {
		_ = telem.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open inventory store: %w", err)
	}
	logger.Info("Inventory store ready", slog.String("engine", cfg.Store.Engine))

	dec, err := decoder.New(&cfg.Decoder, tracer, logger)
	if err != nil {
		_ = store.Close()
		_ = telem.Shutdown(ctx)
		return nil, err
	}

	var device camera.Device = camera.Unavailable{}
	if cfg.Camera.SnapshotURL != "" {
		device = camera.NewSnapshotDevice(cfg.Camera.SnapshotURL, cfg.Camera.Timeout)
	}

	off := catalog.NewOpenFoodFacts(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, tracer, logger)
	lookup := service.NewLookupService(repo, off, tracer, meter, logger)
	inventory := service.NewInventoryService(repo, tracer, meter, logger)

	return &application{
		telem:     telem,
		tracer:    tracer,
		meter:     meter,
		logger:    logger,
		store:     store,
		lookup:    lookup,
		inventory: inventory,
		pipeline: service.ScanPipeline{
			Source:    camera.NewSource(device, tracer, logger),
			Decoder:   dec,
			Resolver:  lookup,
			Committer: inventory,
		},
	}, nil
}

func (a *application) close(ctx context.Context) error {
	var errs []error
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close inventory store: %w", err))
	}
	if err := a.telem.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
	}
	return errors.Join(errs...)
}
