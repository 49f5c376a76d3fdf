package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// LookupService resolves a symbol against the inventory store, then the public catalog
type LookupService struct {
	repo        domain.InventoryRepository
	catalog     domain.Catalog
	tracer      trace.Tracer
	logger      *slog.Logger
	resolutions metric.Int64Counter
}

// NewLookupService creates a new lookup service
func NewLookupService(
	repo domain.InventoryRepository,
	catalog domain.Catalog,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *LookupService {
	resolutions, _ := meter.Int64Counter(
		"lookup.resolutions",
		metric.WithDescription("Product lookups by outcome and source"),
	)

	return &LookupService{
		repo:        repo,
		catalog:     catalog,
		tracer:      tracer,
		logger:      logger,
		resolutions: resolutions,
	}
}

// Resolve returns the stored record verbatim when the store has the symbol.
// Otherwise the catalog is consulted and missing fields are defaulted.
// Every failure, including store or catalog transport errors, is reported as
// domain.ErrProductNotFound with the cause kept in the chain.
func (s *LookupService) Resolve(ctx context.Context, symbol domain.Symbol) (*domain.Resolution, error) {
	ctx, span := s.tracer.Start(ctx, "LookupService.Resolve")
	defer span.End()

	span.SetAttributes(attribute.String("product.symbol", symbol.String()))

	item, err := s.repo.FindBySymbol(ctx, symbol)
	switch {
	case err == nil:
		s.record(ctx, "found", domain.SourceInventory)
		span.SetAttributes(attribute.String("lookup.source", string(domain.SourceInventory)))
		span.SetStatus(codes.Ok, "Resolved from inventory")
		s.logger.InfoContext(ctx, "Product resolved from inventory",
			slog.String("symbol", symbol.String()),
		)
		record := item.ProductRecord.Clone()
		record.Symbol = symbol
		return &domain.Resolution{Record: record, Source: domain.SourceInventory}, nil

	case !errors.Is(err, domain.ErrProductNotFound):
		span.RecordError(err)
		span.SetStatus(codes.Error, "Inventory lookup failed")
		s.logger.WarnContext(ctx, "Inventory lookup failed",
			slog.String("symbol", symbol.String()),
			slog.String("error", err.Error()),
		)
		s.record(ctx, "error", domain.SourceInventory)
		return nil, fmt.Errorf("%w: %w", domain.ErrProductNotFound, err)
	}

	record, err := s.catalog.Lookup(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			s.record(ctx, "not_found", domain.SourceCatalog)
			s.logger.InfoContext(ctx, "Product not found in inventory or catalog",
				slog.String("symbol", symbol.String()),
			)
			span.SetStatus(codes.Error, "Product not found")
			return nil, domain.ErrProductNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Catalog lookup failed")
		s.logger.WarnContext(ctx, "Catalog lookup failed",
			slog.String("symbol", symbol.String()),
			slog.String("error", err.Error()),
		)
		s.record(ctx, "error", domain.SourceCatalog)
		return nil, fmt.Errorf("%w: %w", domain.ErrProductNotFound, err)
	}

	resolved := withDefaults(symbol, record)
	s.record(ctx, "found", domain.SourceCatalog)
	span.SetAttributes(attribute.String("lookup.source", string(domain.SourceCatalog)))
	span.SetStatus(codes.Ok, "Resolved from catalog")
	s.logger.InfoContext(ctx, "Product resolved from catalog",
		slog.String("symbol", symbol.String()),
		slog.String("name", resolved.Name),
	)
	return &domain.Resolution{Record: resolved, Source: domain.SourceCatalog}, nil
}

func (s *LookupService) record(ctx context.Context, result string, source domain.RecordSource) {
	s.resolutions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("result", result),
			attribute.String("source", string(source)),
		),
	)
}

// withDefaults fills display defaults for catalog fields that came back empty
func withDefaults(symbol domain.Symbol, in *domain.ProductRecord) *domain.ProductRecord {
	out := in.Clone()
	out.Symbol = symbol
	if strings.TrimSpace(out.Name) == "" {
		out.Name = domain.DefaultProductName
	}
	if strings.TrimSpace(out.Brand) == "" {
		out.Brand = domain.DefaultBrandName
	}
	if strings.TrimSpace(out.QuantityLabel) == "" {
		out.QuantityLabel = domain.DefaultQuantityLabel
	}
	if out.ImageURL != nil && strings.TrimSpace(*out.ImageURL) == "" {
		out.ImageURL = nil
	}
	return out
}
