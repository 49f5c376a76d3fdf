package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mrops-br/inventory-scanner/internal/infrastructure/config"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewByEngine(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	ctx := context.Background()

	for _, engine := range []string{"", "memory", "SQLite"} {
		cfg := &config.StoreConfig{Engine: engine, SQLitePath: filepath.Join(t.TempDir(), "inv.db")}
		repo, closer, err := NewByEngine(ctx, cfg, tracer, logger)
		if err != nil {
			t.Fatalf("NewByEngine(%q) error = %v", engine, err)
		}
		if repo == nil || closer == nil {
			t.Fatalf("NewByEngine(%q) returned nil repo or closer", engine)
		}
		if err := closer.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}

	if _, _, err := NewByEngine(ctx, &config.StoreConfig{Engine: "firestore"}, tracer, logger); err == nil {
		t.Fatalf("expected unsupported engine error")
	}
}
