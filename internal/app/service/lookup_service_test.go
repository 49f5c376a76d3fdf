package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/repository/memory"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"
)

type stubCatalog struct {
	records map[domain.Symbol]*domain.ProductRecord
	err     error
	calls   int
}

func (c *stubCatalog) Lookup(_ context.Context, symbol domain.Symbol) (*domain.ProductRecord, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	rec, ok := c.records[symbol]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return rec.Clone(), nil
}

type failingRepo struct {
	domain.InventoryRepository
	err error
}

func (r failingRepo) FindBySymbol(context.Context, domain.Symbol) (*domain.InventoryItem, error) {
	return nil, r.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLookup(repo domain.InventoryRepository, cat domain.Catalog) *LookupService {
	return NewLookupService(repo, cat, noop.NewTracerProvider().Tracer("test"), metricnoop.NewMeterProvider().Meter("test"), testLogger())
}

func newMemoryRepo() *memory.InventoryRepository {
	return memory.NewInventoryRepository(noop.NewTracerProvider().Tracer("test"), testLogger())
}

func TestResolvePrefersStoreRecord(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	stored := &domain.ProductRecord{Symbol: "8901063010283", Name: "Tata Tea Premium 1kg", Brand: "Tata", QuantityLabel: "1kg"}
	if err := repo.Upsert(ctx, stored); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	cat := &stubCatalog{records: map[domain.Symbol]*domain.ProductRecord{
		"8901063010283": {Symbol: "8901063010283", Name: "Catalog Name"},
	}}

	res, err := newLookup(repo, cat).Resolve(ctx, "8901063010283")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Source != domain.SourceInventory {
		t.Fatalf("expected inventory source, got %q", res.Source)
	}
	if *res.Record != *stored {
		t.Fatalf("expected stored record verbatim, got %+v", res.Record)
	}
	if cat.calls != 0 {
		t.Fatalf("catalog must not be called on a store hit, got %d calls", cat.calls)
	}
}

func TestResolveCatalogFillsDefaults(t *testing.T) {
	cat := &stubCatalog{records: map[domain.Symbol]*domain.ProductRecord{
		"5000000000001": {Symbol: "5000000000001"},
	}}

	res, err := newLookup(newMemoryRepo(), cat).Resolve(context.Background(), "5000000000001")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := domain.ProductRecord{
		Symbol:        "5000000000001",
		Name:          "Unknown Product",
		Brand:         "Unknown Brand",
		QuantityLabel: "N/A",
	}
	if *res.Record != want {
		t.Fatalf("expected %+v, got %+v", want, *res.Record)
	}
	if res.Source != domain.SourceCatalog {
		t.Fatalf("expected catalog source, got %q", res.Source)
	}
}

func TestResolveCatalogHitKeepsFields(t *testing.T) {
	cat := &stubCatalog{records: map[domain.Symbol]*domain.ProductRecord{
		"012345678905": {Symbol: "012345678905", Name: "Tea", Brand: "BrandX", QuantityLabel: "250g"},
	}}

	res, err := newLookup(newMemoryRepo(), cat).Resolve(context.Background(), "012345678905")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Record.Name != "Tea" || res.Record.Brand != "BrandX" || res.Record.QuantityLabel != "250g" || res.Record.ImageURL != nil {
		t.Fatalf("unexpected record %+v", res.Record)
	}
}

func TestResolveBothMissIsNotFound(t *testing.T) {
	_, err := newLookup(newMemoryRepo(), &stubCatalog{}).Resolve(context.Background(), "000")
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestResolveTransportFailuresCollapseToNotFound(t *testing.T) {
	transport := errors.New("dial tcp: connection refused")

	_, err := newLookup(newMemoryRepo(), &stubCatalog{err: transport}).Resolve(context.Background(), "000")
	if !errors.Is(err, domain.ErrProductNotFound) || !errors.Is(err, transport) {
		t.Fatalf("expected not found wrapping catalog cause, got %v", err)
	}

	cat := &stubCatalog{}
	_, err = newLookup(failingRepo{err: transport}, cat).Resolve(context.Background(), "000")
	if !errors.Is(err, domain.ErrProductNotFound) || !errors.Is(err, transport) {
		t.Fatalf("expected not found wrapping store cause, got %v", err)
	}
	if cat.calls != 0 {
		t.Fatalf("catalog must not be consulted when the store fails, got %d calls", cat.calls)
	}
}
