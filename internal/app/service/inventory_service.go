package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mrops-br/inventory-scanner/internal/app/dto"
	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InventoryService handles inventory use cases
type InventoryService struct {
	repo                domain.InventoryRepository
	tracer              trace.Tracer
	logger              *slog.Logger
	commitCounter       metric.Int64Counter
	inventoryOperations metric.Int64Counter
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	repo domain.InventoryRepository,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *InventoryService {
	commitCounter, _ := meter.Int64Counter(
		"inventory.commits",
		metric.WithDescription("Inventory upserts by result"),
	)

	inventoryOperations, _ := meter.Int64Counter(
		"inventory.operations",
		metric.WithDescription("Total number of inventory read operations"),
	)

	return &InventoryService{
		repo:                repo,
		tracer:              tracer,
		logger:              logger,
		commitCounter:       commitCounter,
		inventoryOperations: inventoryOperations,
	}
}

// Commit upserts the record keyed by its symbol. Validation problems and
// store failures are both reported as domain.ErrWrite.
func (s *InventoryService) Commit(ctx context.Context, record *domain.ProductRecord) error {
	ctx, span := s.tracer.Start(ctx, "InventoryService.Commit")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.symbol", record.Symbol.String()),
		attribute.String("product.name", record.Name),
	)

	s.logger.InfoContext(ctx, "Committing inventory item",
		slog.String("symbol", record.Symbol.String()),
		slog.String("name", record.Name),
	)

	if err := record.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Validation failed")
		s.countCommit(ctx, "invalid")
		return fmt.Errorf("%w: %w", domain.ErrWrite, err)
	}

	if err := s.repo.Upsert(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store inventory item")
		s.logger.ErrorContext(ctx, "Failed to store inventory item",
			slog.String("symbol", record.Symbol.String()),
			slog.String("error", err.Error()),
		)
		s.countCommit(ctx, "failure")
		return fmt.Errorf("%w: %w", domain.ErrWrite, err)
	}

	s.countCommit(ctx, "success")
	s.logger.InfoContext(ctx, "Inventory item committed",
		slog.String("symbol", record.Symbol.String()),
	)
	span.SetStatus(codes.Ok, "Inventory item committed")
	return nil
}

// GetItem retrieves one inventory item by symbol
func (s *InventoryService) GetItem(ctx context.Context, symbol domain.Symbol) (*dto.InventoryItemResponse, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.GetItem")
	defer span.End()

	span.SetAttributes(attribute.String("product.symbol", symbol.String()))

	item, err := s.repo.FindBySymbol(ctx, symbol)
	if err != nil {
		span.RecordError(err)
		result := "failure"
		if errors.Is(err, domain.ErrProductNotFound) {
			result = "not_found"
			span.SetStatus(codes.Error, "Inventory item not found")
			s.logger.WarnContext(ctx, "Inventory item not found",
				slog.String("symbol", symbol.String()),
			)
		} else {
			span.SetStatus(codes.Error, "Failed to read inventory item")
			s.logger.ErrorContext(ctx, "Failed to read inventory item",
				slog.String("error", err.Error()),
			)
		}
		s.countOperation(ctx, "read", result)
		return nil, err
	}

	s.countOperation(ctx, "read", "success")
	span.SetStatus(codes.Ok, "Inventory item retrieved")
	return dto.ToInventoryItemResponse(item), nil
}

// ListItems retrieves the whole inventory
func (s *InventoryService) ListItems(ctx context.Context) ([]*dto.InventoryItemResponse, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ListItems")
	defer span.End()

	items, err := s.repo.FindAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list inventory")
		s.logger.ErrorContext(ctx, "Failed to list inventory",
			slog.String("error", err.Error()),
		)
		s.countOperation(ctx, "list", "failure")
		return nil, err
	}

	span.SetAttributes(attribute.Int("inventory.count", len(items)))
	s.countOperation(ctx, "list", "success")

	s.logger.InfoContext(ctx, "Inventory listed successfully",
		slog.Int("count", len(items)),
	)

	span.SetStatus(codes.Ok, "Inventory listed")
	return dto.ToInventoryItemResponseList(items), nil
}

func (s *InventoryService) countCommit(ctx context.Context, result string) {
	s.commitCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (s *InventoryService) countOperation(ctx context.Context, operation, result string) {
	s.inventoryOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}
