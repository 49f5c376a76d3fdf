// Package seed loads product records from CSV into the inventory store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/mrops-br/inventory-scanner/internal/domain"
)

//go:embed sample_inventory.csv
var sampleInventory []byte

// Row is one CSV line. Columns match the inventory document fields.
type Row struct {
	UPC      string `csv:"upc"`
	Name     string `csv:"name"`
	Brand    string `csv:"brand,omitempty"`
	Quantity string `csv:"quantity,omitempty"`
	Image    string `csv:"image,omitempty"`
}

// Record converts the row, leaving ImageURL nil when the column is blank
func (r Row) Record() (*domain.ProductRecord, error) {
	symbol, err := domain.ParseSymbol(r.UPC)
	if err != nil {
		return nil, err
	}
	rec := &domain.ProductRecord{
		Symbol:        symbol,
		Name:          strings.TrimSpace(r.Name),
		Brand:         strings.TrimSpace(r.Brand),
		QuantityLabel: strings.TrimSpace(r.Quantity),
	}
	if img := strings.TrimSpace(r.Image); img != "" {
		rec.ImageURL = &img
	}
	return rec, rec.Validate()
}

// Parse decodes CSV rows into product records
func Parse(r io.Reader) ([]*domain.ProductRecord, error) {
	decoder, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}

	var rows []Row
	if err := decoder.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode CSV: %w", err)
	}

	records := make([]*domain.ProductRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := row.Record()
		if err != nil {
			// header is line 1
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseFile reads records from a CSV file, or the built-in sample inventory
// when path is empty
func ParseFile(path string) ([]*domain.ProductRecord, error) {
	if path == "" {
		return Parse(bytes.NewReader(sampleInventory))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Committer stores one record
type Committer interface {
	Commit(ctx context.Context, record *domain.ProductRecord) error
}

// Load commits every record and returns how many were written. It stops at
// the first failure.
func Load(ctx context.Context, c Committer, records []*domain.ProductRecord, logger *slog.Logger) (int, error) {
	for i, rec := range records {
		if err := c.Commit(ctx, rec); err != nil {
			return i, fmt.Errorf("seed %s: %w", rec.Symbol, err)
		}
		logger.DebugContext(ctx, "Seeded inventory item",
			slog.String("symbol", rec.Symbol.String()),
			slog.String("name", rec.Name),
		)
	}
	logger.InfoContext(ctx, "Inventory seeded", slog.Int("count", len(records)))
	return len(records), nil
}
