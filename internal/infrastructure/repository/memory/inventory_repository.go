package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InventoryRepository is an in-memory implementation of domain.InventoryRepository
type InventoryRepository struct {
	mu     sync.RWMutex
	items  map[domain.Symbol]*domain.InventoryItem
	now    func() time.Time
	tracer trace.Tracer
	logger *slog.Logger
}

// Option configures the in-memory repository
type Option func(*InventoryRepository)

// WithClock overrides the timestamp source used for LastUpdated
func WithClock(now func() time.Time) Option {
	return func(r *InventoryRepository) {
		r.now = now
	}
}

// NewInventoryRepository creates a new in-memory inventory repository
func NewInventoryRepository(tracer trace.Tracer, logger *slog.Logger, opts ...Option) *InventoryRepository {
	r := &InventoryRepository{
		items:  make(map[domain.Symbol]*domain.InventoryItem),
		now:    time.Now,
		tracer: tracer,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Upsert stores the record under its symbol, replacing any previous one
func (r *InventoryRepository) Upsert(ctx context.Context, record *domain.ProductRecord) error {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.Upsert")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.symbol", record.Symbol.String()),
		attribute.String("product.name", record.Name),
	)

	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced := r.items[record.Symbol]
	r.items[record.Symbol] = &domain.InventoryItem{
		ProductRecord: *record.Clone(),
		LastUpdated:   r.now().UTC(),
	}

	r.logger.InfoContext(ctx, "Inventory item stored in repository",
		slog.String("symbol", record.Symbol.String()),
		slog.String("product_name", record.Name),
		slog.Bool("replaced", replaced),
	)

	span.SetStatus(codes.Ok, "Inventory item stored")
	return nil
}

// FindBySymbol retrieves an inventory item by its barcode symbol
func (r *InventoryRepository) FindBySymbol(ctx context.Context, symbol domain.Symbol) (*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.FindBySymbol")
	defer span.End()

	span.SetAttributes(attribute.String("product.symbol", symbol.String()))

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[symbol]
	if !exists {
		span.SetStatus(codes.Error, "Inventory item not found")
		r.logger.DebugContext(ctx, "Inventory item not found",
			slog.String("symbol", symbol.String()),
		)
		return nil, domain.ErrProductNotFound
	}

	span.SetStatus(codes.Ok, "Inventory item found")
	return copyItem(item), nil
}

// FindAll retrieves all inventory items ordered by symbol
func (r *InventoryRepository) FindAll(ctx context.Context) ([]*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.FindAll")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*domain.InventoryItem, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, copyItem(item))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Symbol < items[j].Symbol
	})

	span.SetAttributes(attribute.Int("inventory.count", len(items)))

	r.logger.DebugContext(ctx, "Inventory items retrieved from repository",
		slog.Int("count", len(items)),
	)

	span.SetStatus(codes.Ok, "Inventory items retrieved")
	return items, nil
}

func copyItem(item *domain.InventoryItem) *domain.InventoryItem {
	return &domain.InventoryItem{
		ProductRecord: *item.ProductRecord.Clone(),
		LastUpdated:   item.LastUpdated,
	}
}
