package domain

import (
	"context"
)

// InventoryRepository defines the contract for the inventory store.
// FindBySymbol returns ErrProductNotFound when no document exists.
// Upsert assigns LastUpdated itself; last write wins.
type InventoryRepository interface {
	FindBySymbol(ctx context.Context, symbol Symbol) (*InventoryItem, error)
	Upsert(ctx context.Context, record *ProductRecord) error
	FindAll(ctx context.Context) ([]*InventoryItem, error)
}

// Catalog is a read-only public product database
type Catalog interface {
	Lookup(ctx context.Context, symbol Symbol) (*ProductRecord, error)
}
