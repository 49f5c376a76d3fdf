package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/repository/memory"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"
)

type upsertFailRepo struct {
	domain.InventoryRepository
}

func (upsertFailRepo) Upsert(context.Context, *domain.ProductRecord) error {
	return errors.New("write timeout")
}

func newInventory(repo domain.InventoryRepository) *InventoryService {
	return NewInventoryService(repo, noop.NewTracerProvider().Tracer("test"), metricnoop.NewMeterProvider().Meter("test"), testLogger())
}

func TestCommitIsIdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)
	clock := []time.Time{first, second}
	repo := memory.NewInventoryRepository(noop.NewTracerProvider().Tracer("test"), testLogger(),
		memory.WithClock(func() time.Time {
			now := clock[0]
			clock = clock[1:]
			return now
		}),
	)
	svc := newInventory(repo)

	record := &domain.ProductRecord{Symbol: "012345678905", Name: "Tea", Brand: "BrandX", QuantityLabel: "250g"}
	for i := 0; i < 2; i++ {
		if err := svc.Commit(ctx, record); err != nil {
			t.Fatalf("Commit() #%d error = %v", i+1, err)
		}
	}

	items, err := svc.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if !items[0].LastUpdated.Equal(second) {
		t.Fatalf("expected later timestamp %s, got %s", second, items[0].LastUpdated)
	}

	got, err := svc.GetItem(ctx, "012345678905")
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if got.Name != "Tea" || got.Symbol != "012345678905" {
		t.Fatalf("unexpected item %+v", got)
	}
}

func TestCommitFailuresAreWriteErrors(t *testing.T) {
	ctx := context.Background()

	err := newInventory(upsertFailRepo{}).Commit(ctx, &domain.ProductRecord{Symbol: "1", Name: "Tea"})
	if !errors.Is(err, domain.ErrWrite) {
		t.Fatalf("expected ErrWrite for store failure, got %v", err)
	}

	err = newInventory(newMemoryRepo()).Commit(ctx, &domain.ProductRecord{Symbol: "1"})
	if !errors.Is(err, domain.ErrWrite) || !errors.Is(err, domain.ErrInvalidProductName) {
		t.Fatalf("expected ErrWrite wrapping validation error, got %v", err)
	}
}

func TestGetItemMissing(t *testing.T) {
	_, err := newInventory(newMemoryRepo()).GetItem(context.Background(), "missing")
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
