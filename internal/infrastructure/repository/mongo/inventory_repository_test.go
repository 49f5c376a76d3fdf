package mongo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestUpsertUpdateLetsServerAssignTimestamp(t *testing.T) {
	img := "https://img.example/tea.jpg"
	update := upsertUpdate(&domain.ProductRecord{
		Symbol:        "012345678905",
		Name:          "Tea",
		Brand:         "BrandX",
		QuantityLabel: "250g",
		ImageURL:      &img,
	})

	set, ok := update["$set"].(bson.M)
	if !ok {
		t.Fatalf("expected $set document, got %#v", update["$set"])
	}
	if _, ok := set["lastUpdated"]; ok {
		t.Fatalf("lastUpdated must not be supplied by the caller")
	}
	if set["upc"] != "012345678905" || set["quantity"] != "250g" {
		t.Fatalf("unexpected $set fields: %#v", set)
	}
	current, ok := update["$currentDate"].(bson.M)
	if !ok || current["lastUpdated"] != true {
		t.Fatalf("expected $currentDate lastUpdated, got %#v", update["$currentDate"])
	}
}

func TestDocumentToDomainFallsBackToID(t *testing.T) {
	empty := ""
	doc := inventoryDocument{ID: "8901030704994", Name: "Dove Shampoo 650ml", Image: &empty}

	item := doc.toDomain()
	if item.Symbol != "8901030704994" {
		t.Fatalf("expected symbol from _id, got %q", item.Symbol)
	}
	if item.ImageURL != nil {
		t.Fatalf("expected empty image to map to nil")
	}
}

// TestMongoInventoryIntegration runs against a live server when MONGO_TEST_URI is set.
func TestMongoInventoryIntegration(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collection := "inventory_test_" + uuid.NewString()
	repo, err := Connect(ctx, uri, "scanner_test", collection, noop.NewTracerProvider().Tracer("test"), logger)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.collection.Drop(context.Background())
		_ = repo.Close()
	})

	record := &domain.ProductRecord{Symbol: "012345678905", Name: "Tea", Brand: "BrandX", QuantityLabel: "250g"}
	if err := repo.Upsert(ctx, record); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	first, err := repo.FindBySymbol(ctx, record.Symbol)
	if err != nil {
		t.Fatalf("FindBySymbol() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := repo.Upsert(ctx, record); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	items, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 document, got %d", len(items))
	}
	if !items[0].LastUpdated.After(first.LastUpdated) {
		t.Fatalf("expected later timestamp, got %s then %s", first.LastUpdated, items[0].LastUpdated)
	}

	if _, err := repo.FindBySymbol(ctx, "missing"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
