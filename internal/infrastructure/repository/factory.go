package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/config"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/repository/memory"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/repository/mongo"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/repository/sqlite"
	"go.opentelemetry.io/otel/trace"
)

const (
	EngineMemory = "memory"
	EngineSQLite = "sqlite"
	EngineMongo  = "mongo"
)

// NewByEngine builds the inventory store selected in configuration.
// The returned closer is never nil.
func NewByEngine(ctx context.Context, cfg *config.StoreConfig, tracer trace.Tracer, logger *slog.Logger) (domain.InventoryRepository, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EngineMemory:
		return memory.NewInventoryRepository(tracer, logger), nopCloser{}, nil
	case EngineSQLite:
		repo, err := sqlite.NewInventoryRepository(cfg.SQLitePath, tracer, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	case EngineMongo, "mongodb":
		repo, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, tracer, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	default:
		return nil, nil, errors.New("unsupported store engine: " + cfg.Engine)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
