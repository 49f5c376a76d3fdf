package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// inventoryDocument mirrors the inventory collection layout; _id is the upc
type inventoryDocument struct {
	ID          string    `bson:"_id"`
	UPC         string    `bson:"upc"`
	Name        string    `bson:"name"`
	Brand       string    `bson:"brand"`
	Quantity    string    `bson:"quantity"`
	Image       *string   `bson:"image"`
	LastUpdated time.Time `bson:"lastUpdated"`
}

func (d *inventoryDocument) toDomain() *domain.InventoryItem {
	symbol := d.UPC
	if symbol == "" {
		symbol = d.ID
	}
	item := &domain.InventoryItem{
		ProductRecord: domain.ProductRecord{
			Symbol:        domain.Symbol(symbol),
			Name:          d.Name,
			Brand:         d.Brand,
			QuantityLabel: d.Quantity,
		},
		LastUpdated: d.LastUpdated.UTC(),
	}
	if d.Image != nil && *d.Image != "" {
		img := *d.Image
		item.ImageURL = &img
	}
	return item
}

// upsertUpdate builds the update document; lastUpdated is set by the server
func upsertUpdate(record *domain.ProductRecord) bson.M {
	return bson.M{
		"$set": bson.M{
			"upc":      record.Symbol.String(),
			"name":     record.Name,
			"brand":    record.Brand,
			"quantity": record.QuantityLabel,
			"image":    record.ImageURL,
		},
		"$currentDate": bson.M{
			"lastUpdated": true,
		},
	}
}

// InventoryRepository persists inventory documents in a MongoDB collection
type InventoryRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	tracer     trace.Tracer
	logger     *slog.Logger
}

// Connect dials MongoDB, verifies the connection and returns a repository bound to the collection
func Connect(ctx context.Context, uri, dbName, collection string, tracer trace.Tracer, logger *slog.Logger) (*InventoryRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB",
		slog.String("database", dbName),
		slog.String("collection", collection),
	)

	return &InventoryRepository{
		client:     client,
		collection: client.Database(dbName).Collection(collection),
		tracer:     tracer,
		logger:     logger,
	}, nil
}

func (r *InventoryRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// Upsert replaces the document keyed by the record's symbol
func (r *InventoryRepository) Upsert(ctx context.Context, record *domain.ProductRecord) error {
	ctx, span := r.tracer.Start(ctx, "MongoInventoryRepository.Upsert")
	defer span.End()

	span.SetAttributes(attribute.String("product.symbol", record.Symbol.String()))

	filter := bson.M{"_id": record.Symbol.String()}
	res, err := r.collection.UpdateOne(ctx, filter, upsertUpdate(record), options.Update().SetUpsert(true))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upsert inventory item")
		return fmt.Errorf("failed to upsert record: %w", err)
	}

	r.logger.InfoContext(ctx, "Inventory item stored in MongoDB",
		slog.String("symbol", record.Symbol.String()),
		slog.Bool("inserted", res.UpsertedCount > 0),
	)
	span.SetStatus(codes.Ok, "Inventory item stored")
	return nil
}

// FindBySymbol reads the document whose _id equals the symbol
func (r *InventoryRepository) FindBySymbol(ctx context.Context, symbol domain.Symbol) (*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "MongoInventoryRepository.FindBySymbol")
	defer span.End()

	span.SetAttributes(attribute.String("product.symbol", symbol.String()))

	var doc inventoryDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": symbol.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		span.SetStatus(codes.Error, "Inventory item not found")
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read inventory item")
		return nil, fmt.Errorf("failed to find record: %w", err)
	}

	span.SetStatus(codes.Ok, "Inventory item found")
	return doc.toDomain(), nil
}

// FindAll lists the whole collection sorted by upc
func (r *InventoryRepository) FindAll(ctx context.Context) ([]*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "MongoInventoryRepository.FindAll")
	defer span.End()

	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list inventory")
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []inventoryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode inventory")
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	items := make([]*domain.InventoryItem, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].toDomain())
	}

	span.SetAttributes(attribute.Int("inventory.count", len(items)))
	span.SetStatus(codes.Ok, "Inventory listed")
	return items, nil
}
