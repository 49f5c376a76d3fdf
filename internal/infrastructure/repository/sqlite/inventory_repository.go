package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

// fixed width keeps stored timestamps ordered as text
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// InventoryRepository stores inventory documents in a local SQLite file
type InventoryRepository struct {
	db     *sql.DB
	tracer trace.Tracer
	logger *slog.Logger

	now    func() time.Time
	tsMu   sync.Mutex
	lastTS time.Time
}

// Option configures an InventoryRepository
type Option func(*InventoryRepository)

// WithClock overrides the clock used for last_updated
func WithClock(now func() time.Time) Option {
	return func(r *InventoryRepository) {
		r.now = now
	}
}

// NewInventoryRepository opens (and creates if needed) the SQLite database at filePath
func NewInventoryRepository(filePath string, tracer trace.Tracer, logger *slog.Logger, opts ...Option) (*InventoryRepository, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &InventoryRepository{db: db, tracer: tracer, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *InventoryRepository) Close() error {
	return r.db.Close()
}

func (r *InventoryRepository) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS inventory (
			upc TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT NOT NULL,
			quantity TEXT NOT NULL,
			image TEXT,
			last_updated TEXT NOT NULL
		)`)
	return err
}

// Upsert writes the record keyed by upc. last_updated is strictly increasing
// across writes made through this repository.
func (r *InventoryRepository) Upsert(ctx context.Context, record *domain.ProductRecord) error {
	ctx, span := r.tracer.Start(ctx, "SQLiteInventoryRepository.Upsert")
	defer span.End()

	span.SetAttributes(attribute.String("product.symbol", record.Symbol.String()))

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inventory (upc, name, brand, quantity, image, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(upc) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			quantity = excluded.quantity,
			image = excluded.image,
			last_updated = excluded.last_updated`,
		record.Symbol.String(),
		record.Name,
		record.Brand,
		record.QuantityLabel,
		nullableString(record.ImageURL),
		r.nextTimestamp().Format(tsLayout),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upsert inventory item")
		return fmt.Errorf("upsert %s: %w", record.Symbol, err)
	}

	r.logger.InfoContext(ctx, "Inventory item stored in sqlite",
		slog.String("symbol", record.Symbol.String()),
	)
	span.SetStatus(codes.Ok, "Inventory item stored")
	return nil
}

// FindBySymbol reads one inventory item by exact upc match
func (r *InventoryRepository) FindBySymbol(ctx context.Context, symbol domain.Symbol) (*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "SQLiteInventoryRepository.FindBySymbol")
	defer span.End()

	span.SetAttributes(attribute.String("product.symbol", symbol.String()))

	row := r.db.QueryRowContext(ctx, `
		SELECT upc, name, brand, quantity, image, last_updated
		FROM inventory
		WHERE upc = ?`,
		symbol.String(),
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "Inventory item not found")
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read inventory item")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Inventory item found")
	return item, nil
}

// FindAll lists every inventory item ordered by upc
func (r *InventoryRepository) FindAll(ctx context.Context) ([]*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "SQLiteInventoryRepository.FindAll")
	defer span.End()

	rows, err := r.db.QueryContext(ctx, `
		SELECT upc, name, brand, quantity, image, last_updated
		FROM inventory
		ORDER BY upc ASC`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list inventory")
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.InventoryItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("inventory.count", len(items)))
	span.SetStatus(codes.Ok, "Inventory listed")
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.InventoryItem, error) {
	var (
		upc, name, brand, quantity, lastUpdated string
		image                                   sql.NullString
	)
	if err := row.Scan(&upc, &name, &brand, &quantity, &image, &lastUpdated); err != nil {
		return nil, err
	}
	item := &domain.InventoryItem{
		ProductRecord: domain.ProductRecord{
			Symbol:        domain.Symbol(upc),
			Name:          name,
			Brand:         brand,
			QuantityLabel: quantity,
		},
		LastUpdated: fromTS(lastUpdated),
	}
	if image.Valid && image.String != "" {
		img := image.String
		item.ImageURL = &img
	}
	return item, nil
}

func nullableString(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func (r *InventoryRepository) nextTimestamp() time.Time {
	r.tsMu.Lock()
	defer r.tsMu.Unlock()

	ts := r.now().UTC()
	if !ts.After(r.lastTS) {
		ts = r.lastTS.Add(time.Nanosecond)
	}
	r.lastTS = ts
	return ts
}

func fromTS(v string) time.Time {
	t, err := time.Parse(tsLayout, v)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, v)
	}
	return t.UTC()
}
